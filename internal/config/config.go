// Package config handles terrain engine configuration loading and management.
package config

import (
	"math/bits"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-terrain/internal/logger"
)

// MaxEncodableTessellation is the highest tessellation level the packed vertex
// format can address (sub-quad positions are stored in one byte).
const MaxEncodableTessellation = 16

// Config holds all engine settings.
type Config struct {
	Terrain  TerrainConfig  `yaml:"terrain"`
	Material MaterialConfig `yaml:"material"`
	Viewer   ViewerConfig   `yaml:"viewer"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// TerrainConfig holds tessellation and LOD settings.
type TerrainConfig struct {
	MaxTessellationLevel      int     `yaml:"max_tessellation_level"`
	MinTessellationLevel      int     `yaml:"min_tessellation_level"`
	TessellationDistanceScale float32 `yaml:"tessellation_distance_scale"`
	LODBaseDistance           float32 `yaml:"lod_base_distance"`  // Farthest distance bucket
	LODCheckDistance          float32 `yaml:"lod_check_distance"` // Beyond this, LOD checks are amortized
	// SmoothLevels raises each quad to at least half of its strongest
	// neighbour's level, repeated until nothing changes.
	SmoothLevels              bool    `yaml:"smooth_levels"`
	MorphingEnabled           bool    `yaml:"morphing_enabled"`
	MorphingGradientsEnabled  bool    `yaml:"morphing_gradients_enabled"`
	ComponentSize             int     `yaml:"component_size"` // Quads per component side
	EditorMode                bool    `yaml:"editor_mode"`
}

// MaterialConfig holds material batch compilation settings.
type MaterialConfig struct {
	MaxTextureCountPerBatch int `yaml:"max_texture_count_per_batch"`
	// NormalMapLayerIndex indexes the compacted weighted-material list, not
	// the terrain layer list. Its normal replaces the blended normal of every
	// batch and counts against the texture budget. -1 disables it.
	NormalMapLayerIndex     int `yaml:"normal_map_layer_index"`
}

// ViewerConfig holds settings for the interactive viewer and the bake tool.
type ViewerConfig struct {
	Width      int        `yaml:"width"`
	Height     int        `yaml:"height"`
	Fullscreen bool       `yaml:"fullscreen"`
	VSync      bool       `yaml:"vsync"`
	FOV        float32    `yaml:"fov"` // Degrees
	Heightmap  string     `yaml:"heightmap"`
	DrawScale  [3]float32 `yaml:"draw_scale"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Terrain: TerrainConfig{
			MaxTessellationLevel:      16,
			MinTessellationLevel:      1,
			TessellationDistanceScale: 1.0,
			LODBaseDistance:           16384,
			LODCheckDistance:          4096,
			SmoothLevels:              true,
			MorphingEnabled:           true,
			MorphingGradientsEnabled:  false,
			ComponentSize:             16,
		},
		Material: MaterialConfig{
			MaxTextureCountPerBatch: 16,
			NormalMapLayerIndex:     -1,
		},
		Viewer: ViewerConfig{
			Width:     1280,
			Height:    720,
			VSync:     true,
			FOV:       60,
			DrawScale: [3]float32{256, 256, 256},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

// Normalize clamps every value into its valid range. Invalid settings are never
// reported as errors: the engine runs in a real-time loop and always gets a
// usable configuration.
func (c *Config) Normalize() {
	t := &c.Terrain

	maxLevel := FloorPowerOfTwo(t.MaxTessellationLevel)
	if maxLevel > MaxEncodableTessellation {
		maxLevel = MaxEncodableTessellation
	}
	minLevel := FloorPowerOfTwo(t.MinTessellationLevel)
	if minLevel > maxLevel {
		minLevel = maxLevel
	}
	if maxLevel != t.MaxTessellationLevel || minLevel != t.MinTessellationLevel {
		logger.Debug("tessellation levels clamped",
			zap.Int("max", t.MaxTessellationLevel), zap.Int("clampedMax", maxLevel),
			zap.Int("min", t.MinTessellationLevel), zap.Int("clampedMin", minLevel))
	}
	t.MaxTessellationLevel = maxLevel
	t.MinTessellationLevel = minLevel

	if t.TessellationDistanceScale <= 0 {
		t.TessellationDistanceScale = 1
	}
	if t.LODBaseDistance <= 0 {
		t.LODBaseDistance = Default().Terrain.LODBaseDistance
	}
	if t.LODCheckDistance <= 0 {
		t.LODCheckDistance = Default().Terrain.LODCheckDistance
	}
	if t.ComponentSize < 1 {
		t.ComponentSize = 1
	}
	if t.ComponentSize > 255 {
		t.ComponentSize = 255
	}
	if !t.MorphingEnabled {
		t.MorphingGradientsEnabled = false
	}

	if c.Material.MaxTextureCountPerBatch < 1 {
		c.Material.MaxTextureCountPerBatch = 1
	}
	if c.Material.NormalMapLayerIndex < -1 {
		c.Material.NormalMapLayerIndex = -1
	}
}

// FloorPowerOfTwo returns the largest power of two not above v, or 1 for v < 1.
func FloorPowerOfTwo(v int) int {
	if v < 1 {
		return 1
	}
	return 1 << (bits.Len(uint(v)) - 1)
}
