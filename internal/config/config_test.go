package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Terrain.MaxTessellationLevel != 16 {
		t.Errorf("expected max tessellation 16, got %d", cfg.Terrain.MaxTessellationLevel)
	}
	if cfg.Terrain.MinTessellationLevel != 1 {
		t.Errorf("expected min tessellation 1, got %d", cfg.Terrain.MinTessellationLevel)
	}
	if cfg.Terrain.TessellationDistanceScale != 1.0 {
		t.Errorf("expected distance scale 1.0, got %f", cfg.Terrain.TessellationDistanceScale)
	}
	if !cfg.Terrain.MorphingEnabled {
		t.Error("expected morphing to be enabled by default")
	}
	if cfg.Terrain.MorphingGradientsEnabled {
		t.Error("expected morphing gradients to be disabled by default")
	}
	if cfg.Material.NormalMapLayerIndex != -1 {
		t.Errorf("expected normal map layer -1, got %d", cfg.Material.NormalMapLayerIndex)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMax int
		wantMin int
	}{
		{"valid untouched", func(c *Config) {}, 16, 1},
		{"max not power of two", func(c *Config) { c.Terrain.MaxTessellationLevel = 12 }, 8, 1},
		{"max above encoding limit", func(c *Config) { c.Terrain.MaxTessellationLevel = 64 }, 16, 1},
		{"max zero", func(c *Config) { c.Terrain.MaxTessellationLevel = 0 }, 1, 1},
		{"min above max", func(c *Config) {
			c.Terrain.MaxTessellationLevel = 4
			c.Terrain.MinTessellationLevel = 8
		}, 4, 4},
		{"min not power of two", func(c *Config) { c.Terrain.MinTessellationLevel = 3 }, 16, 2},
		{"negative min", func(c *Config) { c.Terrain.MinTessellationLevel = -5 }, 16, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			cfg.Normalize()

			if cfg.Terrain.MaxTessellationLevel != tt.wantMax {
				t.Errorf("expected max %d, got %d", tt.wantMax, cfg.Terrain.MaxTessellationLevel)
			}
			if cfg.Terrain.MinTessellationLevel != tt.wantMin {
				t.Errorf("expected min %d, got %d", tt.wantMin, cfg.Terrain.MinTessellationLevel)
			}
		})
	}
}

func TestNormalizeMisc(t *testing.T) {
	cfg := Default()
	cfg.Terrain.TessellationDistanceScale = -2
	cfg.Terrain.ComponentSize = 1000
	cfg.Terrain.MorphingEnabled = false
	cfg.Terrain.MorphingGradientsEnabled = true
	cfg.Material.MaxTextureCountPerBatch = 0
	cfg.Material.NormalMapLayerIndex = -7
	cfg.Normalize()

	if cfg.Terrain.TessellationDistanceScale != 1 {
		t.Errorf("expected distance scale 1, got %f", cfg.Terrain.TessellationDistanceScale)
	}
	if cfg.Terrain.ComponentSize != 255 {
		t.Errorf("expected component size 255, got %d", cfg.Terrain.ComponentSize)
	}
	if cfg.Terrain.MorphingGradientsEnabled {
		t.Error("expected morphing gradients off when morphing is off")
	}
	if cfg.Material.MaxTextureCountPerBatch != 1 {
		t.Errorf("expected texture budget 1, got %d", cfg.Material.MaxTextureCountPerBatch)
	}
	if cfg.Material.NormalMapLayerIndex != -1 {
		t.Errorf("expected normal map layer -1, got %d", cfg.Material.NormalMapLayerIndex)
	}
}

func TestFloorPowerOfTwo(t *testing.T) {
	cases := map[int]int{-3: 1, 0: 1, 1: 1, 2: 2, 3: 2, 7: 4, 8: 8, 15: 8, 16: 16, 17: 16}
	for in, want := range cases {
		if got := FloorPowerOfTwo(in); got != want {
			t.Errorf("FloorPowerOfTwo(%d): expected %d, got %d", in, want, got)
		}
	}
}

func TestLoadFromFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "terrain.yaml")

	yamlContent := `
terrain:
  max_tessellation_level: 8
  min_tessellation_level: 2
  tessellation_distance_scale: 0.5
  morphing_enabled: true
  morphing_gradients_enabled: true
  component_size: 32

material:
  max_texture_count_per_batch: 8
  normal_map_layer_index: 2

viewer:
  heightmap: "maps/valley.png"

logging:
  level: "debug"
  log_file: "terrain.log"
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Terrain.MaxTessellationLevel != 8 {
		t.Errorf("expected max tessellation 8, got %d", cfg.Terrain.MaxTessellationLevel)
	}
	if cfg.Terrain.MinTessellationLevel != 2 {
		t.Errorf("expected min tessellation 2, got %d", cfg.Terrain.MinTessellationLevel)
	}
	if cfg.Terrain.TessellationDistanceScale != 0.5 {
		t.Errorf("expected distance scale 0.5, got %f", cfg.Terrain.TessellationDistanceScale)
	}
	if !cfg.Terrain.MorphingGradientsEnabled {
		t.Error("expected morphing gradients to be enabled")
	}
	if cfg.Terrain.ComponentSize != 32 {
		t.Errorf("expected component size 32, got %d", cfg.Terrain.ComponentSize)
	}
	if cfg.Material.NormalMapLayerIndex != 2 {
		t.Errorf("expected normal map layer 2, got %d", cfg.Material.NormalMapLayerIndex)
	}
	if cfg.Viewer.Heightmap != "maps/valley.png" {
		t.Errorf("expected heightmap maps/valley.png, got %s", cfg.Viewer.Heightmap)
	}
	// Untouched sections keep defaults.
	if cfg.Terrain.LODBaseDistance != 16384 {
		t.Errorf("expected default LOD base distance, got %f", cfg.Terrain.LODBaseDistance)
	}
	if cfg.Logging.LogFile != "terrain.log" {
		t.Errorf("expected log file 'terrain.log', got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "invalid.yaml")

	invalidYAML := `
terrain:
  max_tessellation_level: not a number
  invalid syntax here
`
	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	if err := loadFromFile(cfg, "/nonexistent/path/terrain.yaml"); err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "terrain.yaml")

	cfg := Default()
	cfg.Terrain.MaxTessellationLevel = 4
	cfg.Material.NormalMapLayerIndex = 1
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("failed to reload config: %v", err)
	}
	if loaded.Terrain.MaxTessellationLevel != 4 {
		t.Errorf("expected max tessellation 4, got %d", loaded.Terrain.MaxTessellationLevel)
	}
	if loaded.Material.NormalMapLayerIndex != 1 {
		t.Errorf("expected normal map layer 1, got %d", loaded.Material.NormalMapLayerIndex)
	}
}

func TestLoadPriority(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "terrain.yaml")

	yamlContent := `
terrain:
  max_tessellation_level: 8
  min_tessellation_level: 2
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	*flagConfig = configPath
	*flagMaxTess = 13
	defer func() {
		*flagConfig = ""
		*flagMaxTess = 0
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Flag wins over file, then normalization rounds 13 down to 8.
	if cfg.Terrain.MaxTessellationLevel != 8 {
		t.Errorf("expected max tessellation 8, got %d", cfg.Terrain.MaxTessellationLevel)
	}
	if cfg.Terrain.MinTessellationLevel != 2 {
		t.Errorf("expected min tessellation 2 from file, got %d", cfg.Terrain.MinTessellationLevel)
	}
}
