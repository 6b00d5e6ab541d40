package terrain

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/midgard-terrain/internal/engine/material"
)

// FilteredMaterial is a material painted by a layer, optionally restricted to
// a height band and a slope band.
type FilteredMaterial struct {
	Material    *material.Material
	Alpha       float32 // 0..1
	Highlighted bool

	UseHeight            bool
	MinHeight, MaxHeight float32 // Local Z

	UseSlope           bool
	MinSlope, MaxSlope float32 // Local gradient magnitude
}

// weight returns the material's coverage at vertex (x, y).
func (f *FilteredMaterial) weight(hf *HeightField, x, y int) float32 {
	if f.UseHeight {
		z := LocalZ(hf.Height(x, y))
		if z < f.MinHeight || z > f.MaxHeight {
			return 0
		}
	}
	if f.UseSlope {
		s := hf.Slope(x, y)
		if s < f.MinSlope || s > f.MaxSlope {
			return 0
		}
	}
	return clamp01(f.Alpha)
}

// Layer is a paintable terrain layer. AlphaMap indexes a HeightField alpha map;
// -1 covers the whole terrain.
type Layer struct {
	Name      string
	AlphaMap  int
	Materials []FilteredMaterial
}

func (l *Layer) alpha(hf *HeightField, x, y int) float32 {
	if l.AlphaMap < 0 {
		return 1
	}
	return float32(hf.Alpha(l.AlphaMap, x, y)) / 255
}

func clamp01(v float32) float32 {
	return math32.Max(0, math32.Min(1, v))
}

type materialKey struct {
	material    *material.Material
	highlighted bool
}

// weightMaps holds the compacted per-vertex weights of every weighted material.
type weightMaps struct {
	materials []material.WeightedMaterial
	width     int
	weights   [][]uint8
}

// buildWeightMaps flattens layers into the weighted material list and
// per-vertex weights. Layers are composited from the last (top) to the first;
// each material takes its coverage of whatever weight the layers above left.
func buildWeightMaps(hf *HeightField, layers []Layer) *weightMaps {
	wm := &weightMaps{width: hf.SizeX()}

	index := make(map[materialKey]int)
	slots := make([][]int, len(layers))
	for li := range layers {
		slots[li] = make([]int, len(layers[li].Materials))
		for mi, fm := range layers[li].Materials {
			key := materialKey{fm.Material, fm.Highlighted}
			i, ok := index[key]
			if !ok {
				if len(wm.materials) >= material.MaxWeightedMaterials {
					slots[li][mi] = -1
					continue
				}
				i = len(wm.materials)
				index[key] = i
				wm.materials = append(wm.materials, material.WeightedMaterial{
					Material:    fm.Material,
					Highlighted: fm.Highlighted,
				})
			}
			slots[li][mi] = i
		}
	}

	n := hf.SizeX() * hf.SizeY()
	wm.weights = make([][]uint8, len(wm.materials))
	for i := range wm.weights {
		wm.weights[i] = make([]uint8, n)
	}

	acc := make([]float32, len(wm.materials))
	for y := 0; y < hf.SizeY(); y++ {
		for x := 0; x < hf.SizeX(); x++ {
			for i := range acc {
				acc[i] = 0
			}
			remaining := float32(1)
			for li := len(layers) - 1; li >= 0 && remaining > 0; li-- {
				l := &layers[li]
				a := l.alpha(hf, x, y)
				if a == 0 {
					continue
				}
				for mi := range l.Materials {
					slot := slots[li][mi]
					if slot < 0 {
						continue
					}
					c := a * l.Materials[mi].weight(hf, x, y) * remaining
					acc[slot] += c
					remaining -= c
				}
			}
			for i, w := range acc {
				wm.weights[i][y*wm.width+x] = uint8(math32.Floor(clamp01(w)*255 + 0.5))
			}
		}
	}
	return wm
}

func (wm *weightMaps) weight(i, x, y int) uint8 {
	if wm == nil || i < 0 || i >= len(wm.weights) || x < 0 || y < 0 || x >= wm.width {
		return 0
	}
	idx := y*wm.width + x
	if idx >= len(wm.weights[i]) {
		return 0
	}
	return wm.weights[i][idx]
}
