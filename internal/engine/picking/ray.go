// Package picking casts screen rays against terrain.
package picking

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/midgard-terrain/internal/engine/terrain"
)

// Ray represents a ray in 3D space with origin and direction.
type Ray struct {
	Origin    mgl32.Vec3
	Direction mgl32.Vec3 // Normalized
}

// ScreenToRay converts pixel coordinates to a world-space ray. invViewProj is
// the inverse of the view-projection matrix.
func ScreenToRay(screenX, screenY, viewportW, viewportH float32, invViewProj mgl32.Mat4) Ray {
	ndcX := 2*screenX/viewportW - 1
	ndcY := 1 - 2*screenY/viewportH // Flip Y

	nearWorld := mgl32.TransformCoordinate(mgl32.Vec3{ndcX, ndcY, -1}, invViewProj)
	farWorld := mgl32.TransformCoordinate(mgl32.Vec3{ndcX, ndcY, 1}, invViewProj)

	dir := farWorld.Sub(nearWorld)
	if dir.Len() > 0 {
		dir = dir.Normalize()
	}
	return Ray{Origin: nearWorld, Direction: dir}
}

// At returns the point at parameter t.
func (r Ray) At(t float32) mgl32.Vec3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

// IntersectPlaneZ intersects the ray with the horizontal plane at height z.
func (r Ray) IntersectPlaneZ(z float32) (x, y float32, ok bool) {
	if math32.Abs(r.Direction.Z()) < 1e-3 {
		return 0, 0, false // Ray parallel to plane
	}
	t := (z - r.Origin.Z()) / r.Direction.Z()
	if t < 0 {
		return 0, 0, false // Intersection behind ray origin
	}
	p := r.At(t)
	return p.X(), p.Y(), true
}

// IntersectBounds clips the ray against b and returns the entry and exit
// parameters. A ray starting inside the box enters at 0.
func (r Ray) IntersectBounds(b terrain.Bounds) (tEnter, tExit float32, hit bool) {
	tmin := float32(-math32.MaxFloat32)
	tmax := float32(math32.MaxFloat32)

	for k := 0; k < 3; k++ {
		o, d := r.Origin[k], r.Direction[k]
		if d == 0 {
			if o < b.Min[k] || o > b.Max[k] {
				return 0, 0, false
			}
			continue
		}
		t1 := (b.Min[k] - o) / d
		t2 := (b.Max[k] - o) / d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = max(tmin, t1)
		tmax = min(tmax, t2)
	}

	if tmax < tmin || tmax < 0 {
		return 0, 0, false
	}
	return max(tmin, 0), tmax, true
}

// marchStep is the horizontal distance, in quads, between height tests.
const marchStep = 0.25

// PickTerrain returns the first world-space point where r hits the terrain
// surface. The surface between vertices is taken as bilinear.
func PickTerrain(t *terrain.Terrain, r Ray) (mgl32.Vec3, bool) {
	toLocal := t.WorldToLocal()
	local := Ray{
		Origin:    mgl32.TransformCoordinate(r.Origin, toLocal),
		Direction: mgl32.TransformNormal(r.Direction, toLocal),
	}

	bounds := terrain.EmptyBounds()
	for _, c := range t.Components() {
		b := c.Bounds()
		bounds.Extend(b.Min)
		bounds.Extend(b.Max)
	}
	// Flat terrain has zero-height bounds; keep the slab open for marching.
	bounds.Min[2] -= 0.01
	bounds.Max[2] += 0.01
	tEnter, tExit, ok := local.IntersectBounds(bounds)
	if !ok {
		return mgl32.Vec3{}, false
	}

	hf := t.HeightField()
	above := func(s float32) bool {
		p := local.At(s)
		return p.Z() > SurfaceZ(hf, p.X(), p.Y())
	}

	horiz := math32.Hypot(local.Direction.X(), local.Direction.Y())
	dt := tExit - tEnter
	if horiz > 1e-6 {
		dt = min(dt, marchStep/horiz)
	}
	if dt <= 0 {
		dt = 1e-3
	}

	prev := tEnter
	if !above(prev) {
		return mgl32.TransformCoordinate(local.At(prev), t.LocalToWorld()), true
	}
	for s := tEnter + dt; prev < tExit; s += dt {
		s = min(s, tExit)
		if !above(s) {
			lo, hi := prev, s
			for i := 0; i < 16; i++ {
				mid := (lo + hi) / 2
				if above(mid) {
					lo = mid
				} else {
					hi = mid
				}
			}
			return mgl32.TransformCoordinate(local.At(hi), t.LocalToWorld()), true
		}
		prev = s
	}
	return mgl32.Vec3{}, false
}

// SurfaceZ returns the bilinear local height at terrain-local (x, y).
func SurfaceZ(hf *terrain.HeightField, x, y float32) float32 {
	x = mgl32.Clamp(x, 0, float32(hf.PatchesX))
	y = mgl32.Clamp(y, 0, float32(hf.PatchesY))
	ix := min(int(x), hf.PatchesX-1)
	iy := min(int(y), hf.PatchesY-1)
	fx, fy := x-float32(ix), y-float32(iy)

	z00 := terrain.LocalZ(hf.Height(ix, iy))
	z10 := terrain.LocalZ(hf.Height(ix+1, iy))
	z01 := terrain.LocalZ(hf.Height(ix, iy+1))
	z11 := terrain.LocalZ(hf.Height(ix+1, iy+1))
	return (z00*(1-fx)+z10*fx)*(1-fy) + (z01*(1-fx)+z11*fx)*fy
}
