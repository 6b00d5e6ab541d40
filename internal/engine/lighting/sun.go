// Package lighting provides the directional light used to shade terrain.
package lighting

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// SunDirection converts longitude/latitude angles in degrees to the unit
// vector pointing towards the sun in a Z-up world. Longitude turns around Z
// starting from +Y; latitude is the elevation above the horizon.
func SunDirection(longitude, latitude float32) mgl32.Vec3 {
	lon := mgl32.DegToRad(longitude)
	lat := mgl32.DegToRad(latitude)
	return mgl32.Vec3{
		math32.Cos(lat) * math32.Sin(lon),
		math32.Cos(lat) * math32.Cos(lon),
		math32.Sin(lat),
	}
}

// LightDirection returns the direction light travels, the negated sun direction.
func LightDirection(longitude, latitude float32) mgl32.Vec3 {
	return SunDirection(longitude, latitude).Mul(-1)
}
