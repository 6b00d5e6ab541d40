package scene

import (
	"github.com/Faultbox/midgard-terrain/internal/engine/material"
	"github.com/Faultbox/midgard-terrain/internal/engine/terrain"
)

// Default layer materials, named after the textures they sample.
var (
	Grass = material.TexturedMaterial("grass", "grass")
	Rock  = material.TexturedMaterial("rock", "rock")
	Snow  = material.TexturedMaterial("snow", "snow")
)

const (
	rockSlope     = 0.75 // Local gradient magnitude
	snowLine      = 0.75 // Fraction of the height range
	minSnowRelief = 1    // Local Z units
)

// DefaultLayers paints hf with grass everywhere, rock on steep slopes and
// snow on the top quarter of its height range when it has enough relief.
func DefaultLayers(hf *terrain.HeightField) []terrain.Layer {
	layers := []terrain.Layer{
		{Name: "ground", AlphaMap: -1, Materials: []terrain.FilteredMaterial{
			{Material: Grass, Alpha: 1},
		}},
		{Name: "cliffs", AlphaMap: -1, Materials: []terrain.FilteredMaterial{
			{Material: Rock, Alpha: 1, UseSlope: true, MinSlope: rockSlope, MaxSlope: 1e9},
		}},
	}

	lo, hi := HeightRange(hf)
	if hi-lo >= minSnowRelief {
		layers = append(layers, terrain.Layer{Name: "snow", AlphaMap: -1, Materials: []terrain.FilteredMaterial{
			{Material: Snow, Alpha: 1, UseHeight: true, MinHeight: lo + (hi-lo)*snowLine, MaxHeight: hi + 1},
		}})
	}
	return layers
}

// HeightRange returns the lowest and highest local Z of hf.
func HeightRange(hf *terrain.HeightField) (lo, hi float32) {
	lo, hi = terrain.LocalZ(hf.Height(0, 0)), terrain.LocalZ(hf.Height(0, 0))
	for y := 0; y < hf.SizeY(); y++ {
		for x := 0; x < hf.SizeX(); x++ {
			z := terrain.LocalZ(hf.Height(x, y))
			lo = min(lo, z)
			hi = max(hi, z)
		}
	}
	return lo, hi
}
