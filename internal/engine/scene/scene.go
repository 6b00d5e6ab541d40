// Package scene ties a terrain to the decals projected onto it, its paint
// layers and the sun. It holds no GL state, so the bake tool and the viewer
// share it.
package scene

import (
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-terrain/internal/config"
	"github.com/Faultbox/midgard-terrain/internal/engine/decal"
	"github.com/Faultbox/midgard-terrain/internal/engine/gpu"
	"github.com/Faultbox/midgard-terrain/internal/engine/lighting"
	"github.com/Faultbox/midgard-terrain/internal/engine/material"
	"github.com/Faultbox/midgard-terrain/internal/engine/terrain"
	"github.com/Faultbox/midgard-terrain/internal/logger"
)

// Scene manages a terrain with its decals and lighting.
type Scene struct {
	Terrain *terrain.Terrain
	Decals  *decal.Projector

	// Sun position in degrees.
	SunLongitude float32
	SunLatitude  float32

	frame uint64
}

// New creates a scene over hf. The terrain is scaled by the viewer's draw
// scale and painted with DefaultLayers.
func New(cfg *config.Config, hf *terrain.HeightField, backend gpu.Backend, queue gpu.CommandQueue) *Scene {
	t := terrain.New(hf, cfg, backend, queue)
	s := cfg.Viewer.DrawScale
	if s != ([3]float32{}) {
		t.SetTransform(mgl32.Scale3D(s[0], s[1], s[2]))
	}
	t.SetLayers(DefaultLayers(hf))

	return &Scene{
		Terrain:      t,
		Decals:       decal.NewProjector(t),
		SunLongitude: 135,
		SunLatitude:  45,
	}
}

// Update advances one frame with the given views.
func (s *Scene) Update(views ...terrain.View) {
	s.frame++
	s.Terrain.Tick(terrain.Frame{Number: s.frame, Views: views})
}

// Frame returns the number of the last updated frame.
func (s *Scene) Frame() uint64 { return s.frame }

// LightDir returns the direction sunlight travels.
func (s *Scene) LightDir() mgl32.Vec3 {
	return lighting.LightDirection(s.SunLongitude, s.SunLatitude)
}

// PlaceDecal adds a square decal of the given world size centered on a
// surface point, projecting straight down through depth world units.
func (s *Scene) PlaceDecal(surface mgl32.Vec3, size, depth float32) *decal.Decal {
	d := decal.New(surface.Add(mgl32.Vec3{0, 0, depth / 2}), size, size, depth)
	s.Decals.Add(d)
	logger.Debug("decal placed",
		zap.Float32("x", surface.X()),
		zap.Float32("y", surface.Y()),
		zap.Int("components", len(s.Decals.Interactions(d))))
	return d
}

// Release frees decal and terrain buffers.
func (s *Scene) Release() error {
	err := s.Decals.Release()
	return multierr.Append(err, s.Terrain.Release())
}

// Summary aggregates the packed state of the scene.
type Summary struct {
	Components     int
	Packed         int
	Vertices       int
	Triangles      int
	Batches        int
	Decals         int
	DecalTriangles int
	Levels         map[int]int
	Masks          []material.Mask // Distinct batch masks, first seen first
}

// Summarize collects the stats of every component and decal interaction.
func (s *Scene) Summarize() Summary {
	sum := Summary{Levels: make(map[int]int)}
	seen := make(map[material.Mask]bool)
	for _, c := range s.Terrain.Components() {
		st := c.Stats()
		sum.Components++
		if st.Tessellation > 0 {
			sum.Packed++
		}
		sum.Vertices += st.Vertices
		sum.Triangles += st.Triangles
		sum.Batches += st.Batches
		for level, n := range st.Levels {
			sum.Levels[level] += n
		}
		for _, m := range c.Batches() {
			if !seen[m] {
				seen[m] = true
				sum.Masks = append(sum.Masks, m)
			}
		}
		for _, it := range s.Decals.ComponentInteractions(c) {
			sum.Decals++
			sum.DecalTriangles += it.Triangles()
		}
	}
	return sum
}
