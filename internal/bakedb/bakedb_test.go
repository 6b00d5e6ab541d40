package bakedb

import (
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/midgard-terrain/internal/config"
	"github.com/Faultbox/midgard-terrain/internal/engine/gpu"
	"github.com/Faultbox/midgard-terrain/internal/engine/scene"
	"github.com/Faultbox/midgard-terrain/internal/engine/terrain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "bakes", "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func bakedScene(t *testing.T) (*config.Config, *scene.Scene) {
	t.Helper()
	cfg := config.Default()
	cfg.Terrain.MaxTessellationLevel = 2
	cfg.Terrain.ComponentSize = 4
	cfg.Terrain.EditorMode = true
	cfg.Viewer.DrawScale = [3]float32{1, 1, 1}
	queue := gpu.NewFrameQueue()
	sc := scene.New(cfg, terrain.NewHeightField(8, 4), gpu.NewMemoryBackend(), queue)
	eye := mgl32.Vec3{4, 2, 50}
	sc.Update(terrain.NewView(eye, mgl32.LookAtV(eye, mgl32.Vec3{4, 2, 0}, mgl32.Vec3{0, 1, 0})))
	queue.Flush()
	t.Cleanup(func() { sc.Release() })
	return cfg, sc
}

func TestNewRun(t *testing.T) {
	cfg, sc := bakedScene(t)
	run := NewRun("flat.png", cfg.Terrain, sc, mgl32.Vec3{4, 2, 50})

	if run.PatchesX != 8 || run.PatchesY != 4 {
		t.Errorf("expected 8x4 patches, got %dx%d", run.PatchesX, run.PatchesY)
	}
	if run.Components != 2 || len(run.Sections) != 2 {
		t.Errorf("expected 2 components, got %d with %d sections", run.Components, len(run.Sections))
	}
	// 16 quads per component at level 2: 8 triangles each.
	if run.Triangles != 2*16*8 {
		t.Errorf("expected %d triangles, got %d", 2*16*8, run.Triangles)
	}
	if run.Sections[1].SectionX != 4 {
		t.Errorf("expected second section at x=4, got %d", run.Sections[1].SectionX)
	}
}

func TestRecordAndQuery(t *testing.T) {
	s := openTestStore(t)
	cfg, sc := bakedScene(t)

	first := NewRun("flat.png", cfg.Terrain, sc, mgl32.Vec3{})
	if err := s.Record(first); err != nil {
		t.Fatalf("record: %v", err)
	}
	if prev, err := s.Previous(first); err != nil || prev != nil {
		t.Errorf("expected no previous run, got %v (%v)", prev, err)
	}

	second := NewRun("flat.png", cfg.Terrain, sc, mgl32.Vec3{})
	second.Triangles = 10
	if err := s.Record(second); err != nil {
		t.Fatalf("record: %v", err)
	}
	other := NewRun("other.png", cfg.Terrain, sc, mgl32.Vec3{})
	if err := s.Record(other); err != nil {
		t.Fatalf("record: %v", err)
	}

	prev, err := s.Previous(second)
	if err != nil || prev == nil || prev.ID != first.ID {
		t.Fatalf("expected previous run %d, got %v (%v)", first.ID, prev, err)
	}

	runs, err := s.Latest("flat.png", 10)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != second.ID || runs[0].Triangles != 10 {
		t.Fatalf("expected newest run first, got %+v", runs)
	}
	if len(runs[1].Sections) != 2 {
		t.Errorf("expected preloaded sections, got %d", len(runs[1].Sections))
	}
}
