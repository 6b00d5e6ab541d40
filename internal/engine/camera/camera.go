// Package camera provides the orbit camera used to inspect terrain.
package camera

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/midgard-terrain/internal/engine/terrain"
)

// OrbitCamera orbits around a center point in a Z-up world.
type OrbitCamera struct {
	Center mgl32.Vec3

	// Spherical coordinates
	Distance  float32
	RotationX float32 // Pitch above the horizon, radians
	RotationY float32 // Yaw around Z, radians

	// Constraints
	MinDistance float32
	MaxDistance float32
	MinPitch    float32
	MaxPitch    float32

	// Sensitivity
	DragSensitivity float32
	ZoomSensitivity float32

	// Projection
	FOV       float32 // Vertical, degrees
	Near, Far float32
}

// NewOrbitCamera creates a new orbit camera with default settings.
func NewOrbitCamera() *OrbitCamera {
	return &OrbitCamera{
		Distance:        2000,
		RotationX:       0.6,
		MinDistance:     10,
		MaxDistance:     500000,
		MinPitch:        0.05,
		MaxPitch:        1.55,
		DragSensitivity: 0.005,
		ZoomSensitivity: 0.1,
		FOV:             60,
		Near:            1,
		Far:             1000000,
	}
}

// Position returns the camera position in world space.
func (c *OrbitCamera) Position() mgl32.Vec3 {
	horiz := c.Distance * math32.Cos(c.RotationX)
	return c.Center.Add(mgl32.Vec3{
		horiz * math32.Sin(c.RotationY),
		-horiz * math32.Cos(c.RotationY),
		c.Distance * math32.Sin(c.RotationX),
	})
}

// ViewMatrix returns the world-to-view transform.
func (c *OrbitCamera) ViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position(), c.Center, mgl32.Vec3{0, 0, 1})
}

// Projection returns the perspective projection for the given aspect ratio.
func (c *OrbitCamera) Projection(aspect float32) mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.FOV), aspect, c.Near, c.Far)
}

// View returns the camera as a terrain LOD view.
func (c *OrbitCamera) View() terrain.View {
	return terrain.NewView(c.Position(), c.ViewMatrix())
}

// HandleDrag updates rotation based on mouse drag delta.
func (c *OrbitCamera) HandleDrag(deltaX, deltaY float32) {
	c.RotationY -= deltaX * c.DragSensitivity
	c.RotationX = mgl32.Clamp(c.RotationX+deltaY*c.DragSensitivity, c.MinPitch, c.MaxPitch)
}

// HandleZoom updates distance based on scroll wheel delta.
func (c *OrbitCamera) HandleZoom(delta float32) {
	c.Distance -= delta * c.Distance * c.ZoomSensitivity
	c.Distance = mgl32.Clamp(c.Distance, c.MinDistance, c.MaxDistance)
}

// HandleMovement pans the center on the ground plane relative to the view
// direction; up moves it along Z.
func (c *OrbitCamera) HandleMovement(forward, right, up float32) {
	// Speed scales with distance for consistent feel
	speed := c.Distance * 0.01

	sin, cos := math32.Sincos(c.RotationY)
	dir := mgl32.Vec3{-sin, cos, 0}
	side := mgl32.Vec3{cos, sin, 0}

	c.Center = c.Center.
		Add(dir.Mul(forward * speed)).
		Add(side.Mul(right * speed)).
		Add(mgl32.Vec3{0, 0, up * speed})
}

// FitToBounds centers the camera on b and backs off far enough to see it.
func (c *OrbitCamera) FitToBounds(b terrain.Bounds) {
	c.Center = b.Min.Add(b.Max).Mul(0.5)
	size := b.Max.Sub(b.Min)
	c.Distance = mgl32.Clamp(max(size.X(), size.Y())*0.8, c.MinDistance, c.MaxDistance)
	c.RotationX = 0.6
	c.RotationY = 0
}
