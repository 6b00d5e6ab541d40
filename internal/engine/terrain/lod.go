package terrain

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/midgard-terrain/internal/config"
)

// LodSelector picks a tessellation level for every quad from its view depth.
type LodSelector struct {
	MinLevel      int
	MaxLevel      int
	DistanceScale float32
	// Buckets are the depth thresholds of the halving cascade:
	// below Buckets[0] quads get MaxLevel, below Buckets[1] MaxLevel/2, and so on.
	Buckets         [4]float32
	CheckDistanceSq float32
	SmoothLevels    bool
	EditorMode      bool
}

// NewLodSelector creates a selector from normalized terrain settings.
func NewLodSelector(cfg config.TerrainConfig) *LodSelector {
	s := &LodSelector{
		MinLevel:        cfg.MinTessellationLevel,
		MaxLevel:        cfg.MaxTessellationLevel,
		DistanceScale:   cfg.TessellationDistanceScale,
		CheckDistanceSq: cfg.LODCheckDistance * cfg.LODCheckDistance,
		SmoothLevels:    cfg.SmoothLevels,
		EditorMode:      cfg.EditorMode,
	}
	for i := 0; i < 4; i++ {
		s.Buckets[i] = cfg.LODBaseDistance / float32(int(1)<<(3-i))
	}
	return s
}

// Static reports whether there is nothing to select.
func (s *LodSelector) Static() bool {
	return s.MinLevel == s.MaxLevel
}

// LevelForDepth maps a view-space depth to a tessellation level.
func (s *LodSelector) LevelForDepth(z float32) int {
	z = math32.Abs(z) * s.DistanceScale
	level := s.MaxLevel
	for i := 0; i < 4; i++ {
		if z < s.Buckets[i] {
			break
		}
		level >>= 1
	}
	if level < s.MinLevel {
		level = s.MinLevel
	}
	return level
}

// Accumulate raises every quad of field to the level view requires.
// center returns the world-space centre of a component-local quad.
func (s *LodSelector) Accumulate(field *TessellationLevelField, view View, center func(x, y int) mgl32.Vec3) {
	for y := 0; y < field.SizeY; y++ {
		for x := 0; x < field.SizeX; x++ {
			p := view.ViewMatrix.Mul4x1(center(x, y).Vec4(1))
			field.Raise(x, y, s.LevelForDepth(-p.Z()))
		}
	}
}

// Smooth raises quads so no quad is below half of any neighbor's level,
// iterated to a fixed point.
func (s *LodSelector) Smooth(field *TessellationLevelField) {
	for changed := true; changed; {
		changed = false
		for y := 0; y < field.SizeY; y++ {
			for x := 0; x < field.SizeX; x++ {
				need := 0
				if x > 0 {
					need = max(need, field.At(x-1, y))
				}
				if x+1 < field.SizeX {
					need = max(need, field.At(x+1, y))
				}
				if y > 0 {
					need = max(need, field.At(x, y-1))
				}
				if y+1 < field.SizeY {
					need = max(need, field.At(x, y+1))
				}
				need >>= 1
				if need > field.At(x, y) {
					field.Set(x, y, need)
					changed = true
				}
			}
		}
	}
}

// CheckInterval returns how many frames apart LOD checks run at squared distance distSq.
func (s *LodSelector) CheckInterval(distSq float32) uint64 {
	if s.CheckDistanceSq <= 0 {
		return 1
	}
	n := math32.Floor(distSq / s.CheckDistanceSq)
	if n < 1 {
		return 1
	}
	return uint64(n)
}

// lodState is the per-component check cadence.
type lodState struct {
	checked     bool
	lastVisible bool
	frameOffset uint64
}

// ShouldCheck decides whether a component recomputes its levels this frame.
// The first frame, visibility changes and editor mode always check; distant
// components check every CheckInterval frames, staggered by their offset.
func (s *LodSelector) ShouldCheck(st *lodState, frame uint64, visible bool, distSq float32) bool {
	force := s.EditorMode || !st.checked || visible != st.lastVisible
	st.lastVisible = visible
	if force {
		st.checked = true
		return true
	}
	return (frame+st.frameOffset)%s.CheckInterval(distSq) == 0
}
