package scene

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/midgard-terrain/internal/config"
	"github.com/Faultbox/midgard-terrain/internal/engine/gpu"
	"github.com/Faultbox/midgard-terrain/internal/engine/material"
	"github.com/Faultbox/midgard-terrain/internal/engine/terrain"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Terrain.MaxTessellationLevel = 4
	cfg.Terrain.MinTessellationLevel = 1
	cfg.Terrain.ComponentSize = 8
	cfg.Terrain.EditorMode = true
	cfg.Viewer.DrawScale = [3]float32{1, 1, 1}
	return cfg
}

func overhead(x, y, z float32) terrain.View {
	eye := mgl32.Vec3{x, y, z}
	return terrain.NewView(eye, mgl32.LookAtV(eye, mgl32.Vec3{x, y, 0}, mgl32.Vec3{0, 1, 0}))
}

func TestSceneUpdateAndDecal(t *testing.T) {
	backend := gpu.NewMemoryBackend()
	queue := gpu.NewFrameQueue()
	s := New(testConfig(), terrain.NewHeightField(16, 16), backend, queue)

	s.Update(overhead(8, 8, 100))
	queue.Flush()
	if s.Frame() != 1 {
		t.Errorf("expected frame 1, got %d", s.Frame())
	}

	sum := s.Summarize()
	if sum.Components != 4 || sum.Packed != 4 {
		t.Errorf("expected 4 packed components, got %d/%d", sum.Packed, sum.Components)
	}
	if sum.Triangles != 4*8*8*32 {
		t.Errorf("expected %d triangles, got %d", 4*8*8*32, sum.Triangles)
	}
	if sum.Levels[4] != 256 {
		t.Errorf("expected 256 quads at level 4, got %v", sum.Levels)
	}
	if len(sum.Masks) != 1 || sum.Masks[0] != material.MaskOf(0) {
		t.Errorf("expected a single grass mask, got %v", sum.Masks)
	}

	s.PlaceDecal(mgl32.Vec3{4, 4, 0}, 2, 4)
	queue.Flush()
	sum = s.Summarize()
	if sum.Decals != 1 || sum.DecalTriangles != 128 {
		t.Errorf("expected 1 decal with 128 triangles, got %d with %d", sum.Decals, sum.DecalTriangles)
	}

	if err := s.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	if backend.Live() != 0 {
		t.Errorf("expected no live buffers, got %d", backend.Live())
	}
}

func TestDefaultLayers(t *testing.T) {
	flat := terrain.NewHeightField(4, 4)
	if layers := DefaultLayers(flat); len(layers) != 2 {
		t.Errorf("expected no snow on flat terrain, got %d layers", len(layers))
	}

	hf := terrain.NewHeightField(4, 4)
	hf.SetHeight(2, 2, terrain.RawHeight(8))
	layers := DefaultLayers(hf)
	if len(layers) != 3 {
		t.Fatalf("expected 3 layers, got %d", len(layers))
	}
	snow := layers[2].Materials[0]
	if snow.Material != Snow || snow.MinHeight != 6 {
		t.Errorf("expected snow above 6, got %v above %v", snow.Material.Name, snow.MinHeight)
	}
}

func TestHeightRange(t *testing.T) {
	hf := terrain.NewHeightField(2, 2)
	hf.SetHeight(0, 1, terrain.RawHeight(-3))
	hf.SetHeight(2, 2, terrain.RawHeight(5))
	lo, hi := HeightRange(hf)
	if lo != -3 || hi != 5 {
		t.Errorf("expected [-3,5], got [%v,%v]", lo, hi)
	}
}

func TestLightDir(t *testing.T) {
	s := &Scene{SunLongitude: 0, SunLatitude: 90}
	d := s.LightDir()
	if math.Abs(float64(d.Z()+1)) > 1e-5 || math.Abs(float64(d.X())) > 1e-5 {
		t.Errorf("expected light straight down, got %v", d)
	}
}

func TestHills(t *testing.T) {
	hf := Hills(32, 10)
	if hf.PatchesX != 32 || hf.PatchesY != 32 {
		t.Fatalf("expected 32x32 quads, got %dx%d", hf.PatchesX, hf.PatchesY)
	}
	lo, hi := HeightRange(hf)
	if lo < -10.01 || hi > 10.01 {
		t.Errorf("expected heights within amplitude, got [%v,%v]", lo, hi)
	}
	if hi-lo < 5 {
		t.Errorf("expected visible relief, got [%v,%v]", lo, hi)
	}
}
