package material

import (
	"math/bits"
	"strconv"
	"strings"
)

// MaxWeightedMaterials is the number of weighted materials a terrain can address.
const MaxWeightedMaterials = 256

// Mask is a set of weighted material indices. It is comparable and used as a map key.
type Mask [MaxWeightedMaterials / 64]uint64

// MaskOf returns a mask with the given bits set.
func MaskOf(indices ...int) Mask {
	var m Mask
	for _, i := range indices {
		m.Set(i)
	}
	return m
}

// Set adds material i. Out-of-range indices are ignored.
func (m *Mask) Set(i int) {
	if i < 0 || i >= MaxWeightedMaterials {
		return
	}
	m[i/64] |= 1 << (i % 64)
}

// Has reports whether material i is in the mask.
func (m Mask) Has(i int) bool {
	if i < 0 || i >= MaxWeightedMaterials {
		return false
	}
	return m[i/64]&(1<<(i%64)) != 0
}

// IsZero reports whether no bit is set.
func (m Mask) IsZero() bool {
	return m == Mask{}
}

// Count returns the number of set bits.
func (m Mask) Count() int {
	n := 0
	for _, w := range m {
		n += bits.OnesCount64(w)
	}
	return n
}

// Bits returns the set indices in ascending order.
func (m Mask) Bits() []int {
	out := make([]int, 0, m.Count())
	for wi, w := range m {
		for w != 0 {
			b := bits.TrailingZeros64(w)
			out = append(out, wi*64+b)
			w &^= 1 << b
		}
	}
	return out
}

// Contains reports whether every bit of o is also set in m.
func (m Mask) Contains(o Mask) bool {
	for i := range m {
		if o[i]&^m[i] != 0 {
			return false
		}
	}
	return true
}

func (m Mask) String() string {
	parts := make([]string, 0, m.Count())
	for _, b := range m.Bits() {
		parts = append(parts, strconv.Itoa(b))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// WeightSource supplies per-vertex material weights in terrain-global vertex coordinates.
type WeightSource interface {
	NumWeightedMaterials() int
	MaterialWeight(material, x, y int) uint8
}

// MaskSet is the set of masks used by a block of quads, in first-seen order,
// with the batch index of every quad.
type MaskSet struct {
	Masks     []Mask
	SizeX     int
	quadBatch []int
}

// Batch returns the batch index of block-local quad (x, y).
func (s *MaskSet) Batch(x, y int) int {
	if s == nil || len(s.quadBatch) == 0 {
		return 0
	}
	return s.quadBatch[y*s.SizeX+x]
}

// Index returns the batch index of mask, or -1.
func (s *MaskSet) Index(mask Mask) int {
	for i, m := range s.Masks {
		if m == mask {
			return i
		}
	}
	return -1
}

// QuadMask returns the set of materials with nonzero summed corner weight on
// quad (x, y). A quad with no weights at all uses material 0.
func QuadMask(src WeightSource, x, y int) Mask {
	var m Mask
	n := min(src.NumWeightedMaterials(), MaxWeightedMaterials)
	for i := 0; i < n; i++ {
		sum := int(src.MaterialWeight(i, x, y)) +
			int(src.MaterialWeight(i, x+1, y)) +
			int(src.MaterialWeight(i, x, y+1)) +
			int(src.MaterialWeight(i, x+1, y+1))
		if sum != 0 {
			m.Set(i)
		}
	}
	if m.IsZero() {
		m.Set(0)
	}
	return m
}

// DiscoverMasks collects the distinct quad masks of the sizeX*sizeY block of
// quads starting at (baseX, baseY).
func DiscoverMasks(src WeightSource, baseX, baseY, sizeX, sizeY int) *MaskSet {
	s := &MaskSet{
		SizeX:     sizeX,
		quadBatch: make([]int, sizeX*sizeY),
	}
	index := make(map[Mask]int)
	for y := 0; y < sizeY; y++ {
		for x := 0; x < sizeX; x++ {
			m := QuadMask(src, baseX+x, baseY+y)
			b, ok := index[m]
			if !ok {
				b = len(s.Masks)
				index[m] = b
				s.Masks = append(s.Masks, m)
			}
			s.quadBatch[y*sizeX+x] = b
		}
	}
	return s
}
