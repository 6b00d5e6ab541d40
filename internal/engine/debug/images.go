package debug

import (
	"image"
	"image/color"
	"math/bits"

	"github.com/Faultbox/midgard-terrain/internal/engine/scene"
	"github.com/Faultbox/midgard-terrain/internal/engine/terrain"
)

// levelColors tints tessellation levels 1, 2, 4 ... 128.
var levelColors = [8]color.RGBA{
	{40, 40, 160, 255},
	{40, 140, 200, 255},
	{40, 180, 90, 255},
	{200, 200, 40, 255},
	{230, 130, 30, 255},
	{220, 40, 40, 255},
	{230, 80, 200, 255},
	{250, 250, 250, 255},
}

// LevelColor returns the overlay color of a tessellation level; 0 is black.
func LevelColor(level int) color.RGBA {
	if level <= 0 {
		return color.RGBA{0, 0, 0, 255}
	}
	i := min(bits.Len(uint(level))-1, len(levelColors)-1)
	return levelColors[i]
}

// HeightImage renders hf as grayscale, one pixel per vertex, black at the
// lowest sample and white at the highest.
func HeightImage(hf *terrain.HeightField) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, hf.SizeX(), hf.SizeY()))
	lo, hi := scene.HeightRange(hf)
	span := hi - lo
	for y := 0; y < hf.SizeY(); y++ {
		for x := 0; x < hf.SizeX(); x++ {
			v := uint8(0)
			if span > 0 {
				v = uint8((terrain.LocalZ(hf.Height(x, y)) - lo) / span * 255)
			}
			img.SetRGBA(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

// LevelImage renders the packed tessellation level of every quad of t.
func LevelImage(t *terrain.Terrain) *image.RGBA {
	hf := t.HeightField()
	img := image.NewRGBA(image.Rect(0, 0, hf.PatchesX, hf.PatchesY))
	for y := 0; y < hf.PatchesY; y++ {
		for x := 0; x < hf.PatchesX; x++ {
			level, _ := t.LevelAt(x, y)
			img.SetRGBA(x, y, LevelColor(level))
		}
	}
	return img
}
