package terrain

import (
	"encoding/binary"
	"math/bits"
)

// MorphMode selects the extra per-vertex data written for LOD morphing.
type MorphMode int

const (
	MorphNone MorphMode = iota
	MorphHeight
	MorphHeightGradient
)

// Vertex record strides in bytes.
//
//	0  PatchX  PatchY  SubX  SubY       quad in component, position in quad (1/256 units)
//	4  Zlo     Zhi     0     0
//	8  GradX (int16)   GradY (int16)
//	12 Transition ZTlo ZThi  0          MorphHeight and up
//	16 TransGradX      TransGradY       MorphHeightGradient only
const (
	VertexStride              = 12
	MorphVertexStride         = 16
	MorphGradientVertexStride = 20
)

// Stride returns the record size for the mode.
func (m MorphMode) Stride() int {
	switch m {
	case MorphHeight:
		return MorphVertexStride
	case MorphHeightGradient:
		return MorphGradientVertexStride
	}
	return VertexStride
}

// PackedVertex is a decoded vertex record.
type PackedVertex struct {
	PatchX, PatchY uint8
	SubX, SubY     uint8
	Height         uint16
	GradX, GradY   int16

	Transition  uint8
	MorphHeight uint16
	MorphGradX  int16
	MorphGradY  int16
}

// DecodeVertex reads record i of a packed vertex stream.
func DecodeVertex(data []byte, mode MorphMode, i int) PackedVertex {
	r := data[i*mode.Stride():]
	v := PackedVertex{
		PatchX: r[0],
		PatchY: r[1],
		SubX:   r[2],
		SubY:   r[3],
		Height: uint16(r[4]) | uint16(r[5])<<8,
		GradX:  int16(binary.LittleEndian.Uint16(r[8:])),
		GradY:  int16(binary.LittleEndian.Uint16(r[10:])),
	}
	if mode >= MorphHeight {
		v.Transition = r[12]
		v.MorphHeight = uint16(r[13]) | uint16(r[14])<<8
	}
	if mode == MorphHeightGradient {
		v.MorphGradX = int16(binary.LittleEndian.Uint16(r[16:]))
		v.MorphGradY = int16(binary.LittleEndian.Uint16(r[18:]))
	}
	return v
}

// VertexBufferPacker writes one vertex per tessellated grid point of a component.
// The scratch buffer is sized once for the worst case and reused.
type VertexBufferPacker struct {
	hf      *HeightField
	sampler *PatchSampler
	mode    MorphMode
	scratch []byte
}

// NewVertexBufferPacker creates a packer for components of sizeX*sizeY quads.
func NewVertexBufferPacker(hf *HeightField, sampler *PatchSampler, mode MorphMode, sizeX, sizeY int) *VertexBufferPacker {
	p := &VertexBufferPacker{hf: hf, sampler: sampler, mode: mode}
	p.scratch = make([]byte, p.Capacity(sizeX, sizeY))
	return p
}

// Mode returns the morph mode.
func (p *VertexBufferPacker) Mode() MorphMode { return p.mode }

// Capacity returns the byte size needed at maximum tessellation.
func (p *VertexBufferPacker) Capacity(sizeX, sizeY int) int {
	return VertexCount(sizeX, sizeY, p.sampler.MaxTessellation()) * p.mode.Stride()
}

// VertexCount returns the number of grid points of a component at tessellation tess.
func VertexCount(sizeX, sizeY, tess int) int {
	return (sizeX*tess + 1) * (sizeY*tess + 1)
}

// gridSample is the sampled state of one grid point.
type gridSample struct {
	height       uint16
	gradX, gradY int16
}

// gridSampler samples component grid points, caching the patch of the last quad visited.
type gridSampler struct {
	p       *VertexBufferPacker
	baseX   int
	baseY   int
	tess    int
	step    int // sampler steps per grid step
	patch   TerrainPatch
	patchOK bool
}

func (g *gridSampler) at(gx, gy int) gridSample {
	qx, sx := gx/g.tess, gx%g.tess
	qy, sy := gy/g.tess, gy%g.tess
	if !g.patchOK || g.patch.X != g.baseX+qx || g.patch.Y != g.baseY+qy {
		g.patch = g.p.hf.Patch(g.baseX+qx, g.baseY+qy)
		g.patchOK = true
	}
	s := g.p.sampler
	return gridSample{
		height: quantizeHeight(s.Sample(&g.patch, sx*g.step, sy*g.step)),
		gradX:  quantizeGradient(s.SampleDerivX(&g.patch, sx*g.step, sy*g.step)),
		gradY:  quantizeGradient(s.SampleDerivY(&g.patch, sx*g.step, sy*g.step)),
	}
}

// Pack fills the vertex stream for the component whose first quad is (baseX, baseY)
// at tessellation tess. The returned slice aliases the packer's scratch buffer.
func (p *VertexBufferPacker) Pack(baseX, baseY, sizeX, sizeY, tess int) []byte {
	stride := p.mode.Stride()
	rowLen := sizeX*tess + 1
	rows := sizeY*tess + 1
	out := p.scratch[:rowLen*rows*stride]

	g := &gridSampler{
		p:     p,
		baseX: baseX,
		baseY: baseY,
		tess:  tess,
		step:  p.sampler.MaxTessellation() / tess,
	}
	subScale := 256 / tess

	for gy := 0; gy < rows; gy++ {
		for gx := 0; gx < rowLen; gx++ {
			r := out[(gy*rowLen+gx)*stride:][:stride]
			s := g.at(gx, gy)

			r[0] = uint8(gx / tess)
			r[1] = uint8(gy / tess)
			r[2] = uint8((gx % tess) * subScale)
			r[3] = uint8((gy % tess) * subScale)
			r[4] = uint8(s.height)
			r[5] = uint8(s.height >> 8)
			r[6], r[7] = 0, 0
			binary.LittleEndian.PutUint16(r[8:], uint16(s.gradX))
			binary.LittleEndian.PutUint16(r[10:], uint16(s.gradY))

			if p.mode == MorphNone {
				continue
			}
			k, target := p.morphTarget(g, gx, gy, s)
			r[12] = uint8(k)
			r[13] = uint8(target.height)
			r[14] = uint8(target.height >> 8)
			r[15] = 0
			if p.mode == MorphHeightGradient {
				binary.LittleEndian.PutUint16(r[16:], uint16(target.gradX))
				binary.LittleEndian.PutUint16(r[18:], uint16(target.gradY))
			}
		}
	}
	return out
}

// gridLevel returns the coarsest tessellation level at which grid coordinate g
// lies on a grid line, for a component packed at tess.
func gridLevel(g, tess int) int {
	if g%tess == 0 {
		return 1
	}
	// g is a multiple of 2^tz but not of 2^(tz+1); that line first appears at tess>>tz.
	return tess >> bits.TrailingZeros(uint(g))
}

// TransitionIndex returns how many halvings separate the level at which grid
// point (gx, gy) first exists from level 1.
func TransitionIndex(gx, gy, tess int) int {
	level := max(gridLevel(gx, tess), gridLevel(gy, tess))
	return bits.TrailingZeros(uint(level))
}

// morphTarget returns the transition index of a grid point and the height it
// morphs to at the next coarser level: the midpoint of its two straddling
// coarser-level neighbors.
func (p *VertexBufferPacker) morphTarget(g *gridSampler, gx, gy int, own gridSample) (int, gridSample) {
	k := TransitionIndex(gx, gy, g.tess)
	if k == 0 {
		return 0, own
	}
	level := 1 << k
	step := g.tess / level
	oddX := gridLevel(gx, g.tess) == level
	oddY := gridLevel(gy, g.tess) == level

	var ax, ay, bx, by int
	switch {
	case oddX && oddY:
		// Centre of a coarser cell: it sits on that cell's diagonal.
		if p.hf.QuadFlip(g.baseX+gx/g.tess, g.baseY+gy/g.tess) {
			ax, ay, bx, by = gx+step, gy-step, gx-step, gy+step
		} else {
			ax, ay, bx, by = gx-step, gy-step, gx+step, gy+step
		}
	case oddX:
		ax, ay, bx, by = gx-step, gy, gx+step, gy
	default:
		ax, ay, bx, by = gx, gy-step, gx, gy+step
	}

	a := g.at(ax, ay)
	b := g.at(bx, by)
	return k, gridSample{
		height: uint16((uint32(a.height) + uint32(b.height)) / 2),
		gradX:  int16((int32(a.gradX) + int32(b.gradX)) / 2),
		gradY:  int16((int32(a.gradY) + int32(b.gradY)) / 2),
	}
}
