// Package texture loads the images sampled by terrain materials.
package texture

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/Faultbox/midgard-terrain/internal/logger"
)

// Extensions are tried in order when a texture name has none.
var Extensions = []string{".png", ".tga", ".bmp", ".tif", ".tiff"}

// Load decodes a TGA, PNG, BMP or TIFF file.
func Load(path string) (*image.RGBA, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read texture: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".tga") {
		img, err := DecodeTGA(data)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		return img, nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return ToRGBA(img), nil
}

// ToRGBA converts img to a zero-origin RGBA image.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Rect, img, b.Min, draw.Src)
	return rgba
}

// Checker returns a size*size checkerboard of 8 pixel cells.
func Checker(size int, a, b color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := a
			if (x/8+y/8)%2 == 1 {
				c = b
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// Missing is the texture substituted for names that cannot be loaded.
var Missing = Checker(64, color.RGBA{R: 255, B: 255, A: 255}, color.RGBA{A: 255})

// Library resolves material texture names to images under a directory and
// caches them. Unresolvable names yield Missing and are logged once.
type Library struct {
	dir   string
	mu    sync.Mutex
	cache map[string]*image.RGBA
}

// NewLibrary creates a library rooted at dir.
func NewLibrary(dir string) *Library {
	return &Library{dir: dir, cache: make(map[string]*image.RGBA)}
}

// Get returns the image for name.
func (l *Library) Get(name string) *image.RGBA {
	l.mu.Lock()
	defer l.mu.Unlock()
	if img, ok := l.cache[name]; ok {
		return img
	}
	img, err := l.load(name)
	if err != nil {
		logger.WarnOnce("texture-missing-"+name, "texture not found, using placeholder",
			zap.String("name", name), zap.Error(err))
		img = Missing
	}
	l.cache[name] = img
	return img
}

func (l *Library) load(name string) (*image.RGBA, error) {
	if l.dir == "" {
		return nil, fmt.Errorf("no texture directory")
	}
	base := filepath.Join(l.dir, filepath.FromSlash(name))
	if filepath.Ext(base) != "" {
		return Load(base)
	}
	for _, ext := range Extensions {
		if _, err := os.Stat(base + ext); err == nil {
			return Load(base + ext)
		}
	}
	return nil, fmt.Errorf("no file for %q in %s", name, l.dir)
}
