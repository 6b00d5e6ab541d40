// Package main is the interactive terrain viewer.
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-terrain/internal/config"
	"github.com/Faultbox/midgard-terrain/internal/engine/scene"
	"github.com/Faultbox/midgard-terrain/internal/engine/terrain"
	"github.com/Faultbox/midgard-terrain/internal/logger"
	"github.com/Faultbox/midgard-terrain/internal/viewer"
)

var flagTextures = flag.String("textures", "textures", "Directory of layer textures")

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== Midgard Terrain Viewer ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	hf, err := loadHeightField(cfg)
	if err != nil {
		logger.Error("failed to load heightmap", zap.Error(err))
		os.Exit(1)
	}

	v, err := viewer.New(cfg, hf, *flagTextures)
	if err != nil {
		logger.Error("failed to create viewer", zap.Error(err))
		os.Exit(1)
	}
	defer v.Close()

	if err := v.Run(); err != nil {
		logger.Error("viewer error", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("viewer closed normally")
}

func loadHeightField(cfg *config.Config) (*terrain.HeightField, error) {
	if cfg.Viewer.Heightmap == "" {
		logger.Info("no heightmap configured, generating hills")
		return scene.Hills(128, 24), nil
	}
	return terrain.LoadHeightmap(cfg.Viewer.Heightmap)
}
