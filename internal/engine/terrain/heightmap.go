package terrain

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// ErrEmptyHeightmap is returned for images with fewer than 2x2 pixels.
var ErrEmptyHeightmap = errors.New("heightmap needs at least 2x2 samples")

// FromImage builds a heightfield with one sample per pixel. 16-bit gray images
// map directly to raw heights; other formats are converted to gray and scaled
// from 8 to 16 bits.
func FromImage(img image.Image) (*HeightField, error) {
	b := img.Bounds()
	if b.Dx() < 2 || b.Dy() < 2 {
		return nil, ErrEmptyHeightmap
	}
	hf := NewHeightField(b.Dx()-1, b.Dy()-1)

	switch src := img.(type) {
	case *image.Gray16:
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				hf.SetHeight(x, y, src.Gray16At(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
	default:
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				g := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
				hf.SetHeight(x, y, uint16(g.Y)<<8|uint16(g.Y))
			}
		}
	}
	return hf, nil
}

// LoadHeightmap decodes a PNG, BMP or TIFF heightmap.
func LoadHeightmap(path string) (*HeightField, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open heightmap: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode heightmap %s: %w", path, err)
	}
	hf, err := FromImage(img)
	if err != nil {
		return nil, fmt.Errorf("heightmap %s (%s): %w", path, format, err)
	}
	return hf, nil
}
