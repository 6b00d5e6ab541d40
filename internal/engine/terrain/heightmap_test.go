package terrain

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func gray16Ramp(w, h int) *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray16(x, y, color.Gray16{Y: uint16(1000 + x*300 + y*7)})
		}
	}
	return img
}

func TestFromImageGray16(t *testing.T) {
	hf, err := FromImage(gray16Ramp(4, 3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hf.PatchesX != 3 || hf.PatchesY != 2 {
		t.Fatalf("expected 3x2 patches, got %dx%d", hf.PatchesX, hf.PatchesY)
	}
	if got := hf.Height(2, 1); got != 1000+600+7 {
		t.Errorf("expected %d, got %d", 1000+600+7, got)
	}
}

func TestFromImageScales8Bit(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 2, 2))
	img.SetGray(1, 1, color.Gray{Y: 0xff})
	img.SetGray(0, 1, color.Gray{Y: 0x80})
	hf, err := FromImage(img)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hf.Height(1, 1) != 0xffff || hf.Height(0, 1) != 0x8080 || hf.Height(0, 0) != 0 {
		t.Errorf("unexpected heights %d %d %d", hf.Height(1, 1), hf.Height(0, 1), hf.Height(0, 0))
	}
}

func TestFromImageTooSmall(t *testing.T) {
	_, err := FromImage(image.NewGray16(image.Rect(0, 0, 1, 8)))
	if !errors.Is(err, ErrEmptyHeightmap) {
		t.Errorf("expected ErrEmptyHeightmap, got %v", err)
	}
}

func TestLoadHeightmapFormats(t *testing.T) {
	dir := t.TempDir()
	ramp := gray16Ramp(5, 5)
	small := image.NewGray(image.Rect(0, 0, 3, 3))
	small.SetGray(2, 2, color.Gray{Y: 0x10})

	tests := []struct {
		name   string
		encode func(f *os.File) error
		x, y   int
		want   uint16
	}{
		{"ramp.png", func(f *os.File) error { return png.Encode(f, ramp) }, 4, 4, 1000 + 1200 + 28},
		{"ramp.tiff", func(f *os.File) error { return tiff.Encode(f, ramp, nil) }, 3, 1, 1000 + 900 + 7},
		{"small.bmp", func(f *os.File) error { return bmp.Encode(f, small) }, 2, 2, 0x1010},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name)
			f, err := os.Create(path)
			if err != nil {
				t.Fatal(err)
			}
			if err := tt.encode(f); err != nil {
				t.Fatalf("encode: %v", err)
			}
			f.Close()

			hf, err := LoadHeightmap(path)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if got := hf.Height(tt.x, tt.y); got != tt.want {
				t.Errorf("expected height %d, got %d", tt.want, got)
			}
		})
	}
}

func TestLoadHeightmapErrors(t *testing.T) {
	if _, err := LoadHeightmap(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("expected error for a missing file")
	}

	path := filepath.Join(t.TempDir(), "garbage.png")
	if err := os.WriteFile(path, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadHeightmap(path); err == nil {
		t.Error("expected decode error")
	}
}
