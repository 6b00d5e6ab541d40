package config

import "flag"

var (
	flagConfig    = flag.String("config", "", "Path to config file")
	flagDebug     = flag.Bool("debug", false, "Enable debug logging")
	flagHeightmap = flag.String("heightmap", "", "Heightmap image (PNG, BMP or TIFF)")
	flagMaxTess   = flag.Int("max-tess", 0, "Maximum tessellation level")
	flagMinTess   = flag.Int("min-tess", 0, "Minimum tessellation level")
	flagEditor    = flag.Bool("editor", false, "Check LOD every frame (editor mode)")
	flagWindowed  = flag.Bool("windowed", false, "Run in windowed mode")
	flagWidth     = flag.Int("width", 0, "Window width")
	flagHeight    = flag.Int("height", 0, "Window height")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagHeightmap != "" {
		cfg.Viewer.Heightmap = *flagHeightmap
	}
	if *flagMaxTess > 0 {
		cfg.Terrain.MaxTessellationLevel = *flagMaxTess
	}
	if *flagMinTess > 0 {
		cfg.Terrain.MinTessellationLevel = *flagMinTess
	}
	if *flagEditor {
		cfg.Terrain.EditorMode = true
	}
	if *flagWindowed {
		cfg.Viewer.Fullscreen = false
	}
	if *flagWidth > 0 {
		cfg.Viewer.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Viewer.Height = *flagHeight
	}
}
