package material

import (
	"image"
)

// PackWeightTextures packs per-vertex material weights into RGBA images, four
// materials per image. Images cover the width*height vertex grid; the channel
// of material i is WeightChannelOf(i).
func PackWeightTextures(src WeightSource, width, height int) []*image.RGBA {
	n := min(src.NumWeightedMaterials(), MaxWeightedMaterials)
	if n == 0 {
		return nil
	}
	textures := make([]*image.RGBA, (n+3)/4)
	for i := range textures {
		textures[i] = image.NewRGBA(image.Rect(0, 0, width, height))
	}
	for i := 0; i < n; i++ {
		img := textures[WeightTexture(i)]
		ch := WeightChannelOf(i)
		for y := 0; y < height; y++ {
			row := img.Pix[y*img.Stride:]
			for x := 0; x < width; x++ {
				row[x*4+ch] = src.MaterialWeight(i, x, y)
			}
		}
	}
	return textures
}
