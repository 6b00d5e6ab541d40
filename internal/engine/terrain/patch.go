package terrain

import (
	"github.com/chewxy/math32"
)

// TerrainPatch is the 4x4 height neighborhood of one quad. Heights[1][1] is the
// quad's (X, Y) corner; rows are indexed by Y.
type TerrainPatch struct {
	X, Y    int
	Heights [4][4]float32
}

// PatchSampler interpolates heights inside a quad with a Catmull-Rom spline.
// Sub-quad positions are integer steps 0..MaxTessellation along each axis.
type PatchSampler struct {
	maxTess int
	basis   [][4]float32
}

// NewPatchSampler precomputes the spline basis for every step fraction.
func NewPatchSampler(maxTessellation int) *PatchSampler {
	if maxTessellation < 1 {
		maxTessellation = 1
	}
	s := &PatchSampler{
		maxTess: maxTessellation,
		basis:   make([][4]float32, maxTessellation+1),
	}
	for i := 0; i <= maxTessellation; i++ {
		t := float32(i) / float32(maxTessellation)
		t2 := t * t
		t3 := t2 * t
		s.basis[i] = [4]float32{
			(-t3 + 2*t2 - t) / 2,
			(3*t3 - 5*t2 + 2) / 2,
			(-3*t3 + 4*t2 + t) / 2,
			(t3 - t2) / 2,
		}
	}
	return s
}

// MaxTessellation returns the number of steps per quad side.
func (s *PatchSampler) MaxTessellation() int { return s.maxTess }

// Sample returns the interpolated raw height at step (subX, subY).
func (s *PatchSampler) Sample(p *TerrainPatch, subX, subY int) float32 {
	bx := &s.basis[subX]
	by := &s.basis[subY]
	var h float32
	for j := 0; j < 4; j++ {
		row := &p.Heights[j]
		h += by[j] * (bx[0]*row[0] + bx[1]*row[1] + bx[2]*row[2] + bx[3]*row[3])
	}
	return h
}

// SampleDerivX returns dHeight/dX in raw units per quad. It is the bilinear blend
// of central differences taken one full grid step either side of each quad
// corner, so it does not change with tessellation.
func (s *PatchSampler) SampleDerivX(p *TerrainPatch, subX, subY int) float32 {
	h := &p.Heights
	g00 := (h[1][2] - h[1][0]) / 2
	g10 := (h[1][3] - h[1][1]) / 2
	g01 := (h[2][2] - h[2][0]) / 2
	g11 := (h[2][3] - h[2][1]) / 2
	return s.bilerp(g00, g10, g01, g11, subX, subY)
}

// SampleDerivY returns dHeight/dY in raw units per quad.
func (s *PatchSampler) SampleDerivY(p *TerrainPatch, subX, subY int) float32 {
	h := &p.Heights
	g00 := (h[2][1] - h[0][1]) / 2
	g10 := (h[2][2] - h[0][2]) / 2
	g01 := (h[3][1] - h[1][1]) / 2
	g11 := (h[3][2] - h[1][2]) / 2
	return s.bilerp(g00, g10, g01, g11, subX, subY)
}

func (s *PatchSampler) bilerp(v00, v10, v01, v11 float32, subX, subY int) float32 {
	tx := float32(subX) / float32(s.maxTess)
	ty := float32(subY) / float32(s.maxTess)
	bottom := v00 + (v10-v00)*tx
	top := v01 + (v11-v01)*tx
	return bottom + (top-bottom)*ty
}

// quantizeHeight rounds to the nearest raw height.
func quantizeHeight(h float32) uint16 {
	if h <= 0 {
		return 0
	}
	if h >= 65535 {
		return 65535
	}
	return uint16(math32.Floor(h + 0.5))
}

// quantizeGradient rounds a gradient into a signed 16-bit value.
func quantizeGradient(g float32) int16 {
	if g <= -32768 {
		return -32768
	}
	if g >= 32767 {
		return 32767
	}
	return int16(math32.Floor(g + 0.5))
}

func sqrtf(v float32) float32 {
	if v <= 0 {
		return 0
	}
	return math32.Sqrt(v)
}
