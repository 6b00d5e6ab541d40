// Package decal projects decals onto terrain components. For every component
// a decal frustum touches, it keeps an index buffer that covers only the
// affected quads at the component's current tessellation.
package decal

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/midgard-terrain/internal/engine/terrain"
)

// Decal is a box or pyramid projector in world space. It projects along its
// local -Z axis, so the identity orientation projects straight down.
type Decal struct {
	Location    mgl32.Vec3
	Orientation mgl32.Quat

	// Extent of the projected rectangle. With a perspective projection only
	// the Width/Height ratio is used.
	Width, Height float32
	Near, Far     float32

	FOV float32 // Vertical field of view in degrees, 0 for orthographic
}

// New returns an orthographic decal projecting down from location.
func New(location mgl32.Vec3, width, height, depth float32) *Decal {
	return &Decal{
		Location:    location,
		Orientation: mgl32.QuatIdent(),
		Width:       width,
		Height:      height,
		Far:         depth,
	}
}

func (d *Decal) halfExtent(dist float32) (float32, float32) {
	if d.FOV <= 0 {
		return d.Width / 2, d.Height / 2
	}
	hh := dist * math32.Tan(mgl32.DegToRad(d.FOV)/2)
	hw := hh
	if d.Height > 0 {
		hw = hh * d.Width / d.Height
	}
	return hw, hh
}

// FrustumCorners returns the four near-plane corners followed by the four
// far-plane corners in world space.
func (d *Decal) FrustumCorners() [8]mgl32.Vec3 {
	var out [8]mgl32.Vec3
	for i, dist := range [2]float32{d.Near, d.Far} {
		hw, hh := d.halfExtent(dist)
		for j, s := range [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}} {
			local := mgl32.Vec3{s[0] * hw, s[1] * hh, -dist}
			out[i*4+j] = d.Location.Add(d.Orientation.Rotate(local))
		}
	}
	return out
}

// View returns the world-to-decal transform.
func (d *Decal) View() mgl32.Mat4 {
	return d.Orientation.Conjugate().Mat4().Mul4(
		mgl32.Translate3D(-d.Location.X(), -d.Location.Y(), -d.Location.Z()))
}

// Projection maps decal space to clip space; the renderer uses it to derive
// decal texture coordinates.
func (d *Decal) Projection() mgl32.Mat4 {
	near := max(d.Near, 1e-3)
	if d.FOV <= 0 {
		return mgl32.Ortho(-d.Width/2, d.Width/2, -d.Height/2, d.Height/2, d.Near, d.Far)
	}
	aspect := float32(1)
	if d.Height > 0 {
		aspect = d.Width / d.Height
	}
	return mgl32.Perspective(mgl32.DegToRad(d.FOV), aspect, near, d.Far)
}

// PatchRange is the block of global quads [MinX, MaxX) x [MinY, MaxY) a decal
// covers on one component, with the decal's terrain-local Z interval.
type PatchRange struct {
	MinX, MinY int
	MaxX, MaxY int
	MinZ, MaxZ float32
}

// Window returns the range in the component's quad coordinates.
func (r PatchRange) Window(c *terrain.Component) terrain.Rect {
	return terrain.Rect{
		MinX: r.MinX - c.SectionX,
		MinY: r.MinY - c.SectionY,
		MaxX: r.MaxX - c.SectionX,
		MaxY: r.MaxY - c.SectionY,
	}
}

// Quads returns the number of quads in the range.
func (r PatchRange) Quads() int {
	return (r.MaxX - r.MinX) * (r.MaxY - r.MinY)
}

// ComputeRange projects d onto component c of t. ok is false when the decal is
// off the component or its depth interval misses the component's heights.
func ComputeRange(t *terrain.Terrain, c *terrain.Component, d *Decal) (r PatchRange, ok bool) {
	worldToLocal := t.WorldToLocal()
	lo := mgl32.Vec3{math32.MaxFloat32, math32.MaxFloat32, math32.MaxFloat32}
	hi := lo.Mul(-1)
	for _, p := range d.FrustumCorners() {
		p = mgl32.TransformCoordinate(p, worldToLocal)
		for k := 0; k < 3; k++ {
			lo[k] = min(lo[k], p[k])
			hi[k] = max(hi[k], p[k])
		}
	}

	r = PatchRange{
		MinX: clampInt(int(math32.Floor(lo.X())), c.SectionX, c.SectionX+c.SizeX),
		MinY: clampInt(int(math32.Floor(lo.Y())), c.SectionY, c.SectionY+c.SizeY),
		MaxX: clampInt(int(math32.Ceil(hi.X())), c.SectionX, c.SectionX+c.SizeX),
		MaxY: clampInt(int(math32.Ceil(hi.Y())), c.SectionY, c.SectionY+c.SizeY),
		MinZ: lo.Z(),
		MaxZ: hi.Z(),
	}
	if r.MinX >= r.MaxX || r.MinY >= r.MaxY {
		return r, false
	}

	minH, maxH, found := t.PatchHeightRange(r.MinX, r.MinY, r.MaxX, r.MaxY)
	if !found || r.MaxZ < minH || r.MinZ > maxH {
		return r, false
	}
	return r, true
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
