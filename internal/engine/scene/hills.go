package scene

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/midgard-terrain/internal/engine/terrain"
)

// Hills returns a size*size quad heightfield of rolling hills, used when no
// heightmap is configured. Heights stay within amplitude local units of zero.
func Hills(size int, amplitude float32) *terrain.HeightField {
	hf := terrain.NewHeightField(size, size)
	f := 2 * math32.Pi / float32(max(size, 1))
	for y := 0; y < hf.SizeY(); y++ {
		for x := 0; x < hf.SizeX(); x++ {
			fx, fy := float32(x)*f, float32(y)*f
			z := 0.6*math32.Sin(fx)*math32.Cos(fy) + 0.4*math32.Sin(3*fx+1)*math32.Sin(2*fy)
			hf.SetHeight(x, y, terrain.RawHeight(z*amplitude))
		}
	}
	return hf
}
