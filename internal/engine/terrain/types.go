// Package terrain implements the adaptive level-of-detail terrain mesh: heightfield
// sampling, per-quad tessellation selection, and GPU vertex/index buffer packing.
package terrain

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Height encoding. Raw samples are unsigned 16-bit; HeightZero is local Z = 0
// and one local unit is HeightUnitsPerLocal raw steps.
const (
	HeightZero          = 32768
	HeightUnitsPerLocal = 128
)

// LocalZ converts a raw height sample to terrain-local Z.
func LocalZ(h uint16) float32 {
	return float32(int32(h)-HeightZero) / HeightUnitsPerLocal
}

// RawHeight converts terrain-local Z to a raw sample, clamping to the encodable range.
func RawHeight(z float32) uint16 {
	return quantizeHeight(z*HeightUnitsPerLocal + HeightZero)
}

// Bounds is an axis-aligned box.
type Bounds struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// EmptyBounds returns inverted bounds ready for Extend.
func EmptyBounds() Bounds {
	return Bounds{
		Min: mgl32.Vec3{1e30, 1e30, 1e30},
		Max: mgl32.Vec3{-1e30, -1e30, -1e30},
	}
}

// Extend grows the box to contain p.
func (b *Bounds) Extend(p mgl32.Vec3) {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] {
			b.Min[i] = p[i]
		}
		if p[i] > b.Max[i] {
			b.Max[i] = p[i]
		}
	}
}

// Corners returns the eight corners of the box.
func (b Bounds) Corners() [8]mgl32.Vec3 {
	var c [8]mgl32.Vec3
	for i := 0; i < 8; i++ {
		for axis := 0; axis < 3; axis++ {
			if i&(1<<axis) != 0 {
				c[i][axis] = b.Max[axis]
			} else {
				c[i][axis] = b.Min[axis]
			}
		}
	}
	return c
}

// Transform returns the bounds of the box after transforming it by m.
func (b Bounds) Transform(m mgl32.Mat4) Bounds {
	out := EmptyBounds()
	for _, c := range b.Corners() {
		out.Extend(mgl32.TransformCoordinate(c, m))
	}
	return out
}

// DistanceSquared returns the squared distance from p to the box (0 inside).
func (b Bounds) DistanceSquared(p mgl32.Vec3) float32 {
	var d float32
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] {
			d += (b.Min[i] - p[i]) * (b.Min[i] - p[i])
		} else if p[i] > b.Max[i] {
			d += (p[i] - b.Max[i]) * (p[i] - b.Max[i])
		}
	}
	return d
}

// View is one camera looking at the terrain this frame.
type View struct {
	ViewMatrix mgl32.Mat4 // World to view space, looking down -Z
	Origin     mgl32.Vec3 // Camera position in world space
}

// NewView builds a view from a camera position and view matrix.
func NewView(origin mgl32.Vec3, viewMatrix mgl32.Mat4) View {
	return View{ViewMatrix: viewMatrix, Origin: origin}
}

// Frame carries the per-frame inputs supplied by the scene.
type Frame struct {
	Number uint64
	Views  []View
	// Visible reports component visibility; nil means every component is visible.
	Visible func(c *Component) bool
}

func (f *Frame) visible(c *Component) bool {
	if f.Visible == nil {
		return true
	}
	return f.Visible(c)
}

// BatchRange is the slice of a component index buffer drawn with one material batch.
type BatchRange struct {
	Batch        int // Index into the component's batch masks
	FirstIndex   int
	NumTriangles int
}

// ComponentStats summarizes the packed state of one component.
type ComponentStats struct {
	SectionX, SectionY int
	Tessellation       int
	Vertices           int
	Triangles          int
	Batches            int
	Levels             map[int]int // Tessellation level histogram
}
