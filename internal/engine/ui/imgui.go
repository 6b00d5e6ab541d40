// Package ui provides the ImGui backend used by the terrain inspector.
package ui

import (
	"fmt"
	"image"

	"github.com/AllenDang/cimgui-go/backend"
	"github.com/AllenDang/cimgui-go/backend/sdlbackend"
	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/go-gl/gl/v4.1-core/gl"
)

// Backend wraps the ImGui SDL backend.
type Backend struct {
	backend backend.Backend[sdlbackend.SDLWindowFlags]
}

// NewBackend creates the ImGui window and GL context.
func NewBackend(title string, width, height int) (*Backend, error) {
	b := &Backend{}

	var err error
	b.backend, err = backend.CreateBackend(sdlbackend.NewSDLBackend())
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}

	b.backend.SetBgColor(imgui.NewVec4(0.1, 0.1, 0.12, 1.0))
	b.backend.CreateWindow(title, width, height)

	// Initialize OpenGL
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("init opengl: %w", err)
	}

	return b, nil
}

// Run starts the main render loop.
func (b *Backend) Run(renderFunc func()) {
	b.backend.Run(renderFunc)
}

// SetWindowTitle updates the window title.
func (b *Backend) SetWindowTitle(title string) {
	b.backend.SetWindowTitle(title)
}

// Viewport returns the main viewport work area.
func (b *Backend) Viewport() (pos, size imgui.Vec2) {
	viewport := imgui.MainViewport()
	return viewport.WorkPos(), viewport.WorkSize()
}

// Texture is an image uploaded for display in ImGui.
type Texture struct {
	tex    *backend.Texture
	Width  int
	Height int
}

// NewTexture uploads img.
func NewTexture(img *image.RGBA) *Texture {
	b := img.Bounds()
	return &Texture{tex: backend.NewTextureFromRgba(img), Width: b.Dx(), Height: b.Dy()}
}

// Release frees the texture. A nil texture is ignored.
func (t *Texture) Release() {
	if t != nil && t.tex != nil {
		t.tex.Release()
		t.tex = nil
	}
}

// Image draws the texture scaled by zoom on a dark background.
func (t *Texture) Image(zoom float32) {
	if t == nil || t.tex == nil {
		return
	}
	imgui.ImageWithBgV(
		t.tex.ID,
		imgui.NewVec2(float32(t.Width)*zoom, float32(t.Height)*zoom),
		imgui.NewVec2(0, 0),
		imgui.NewVec2(1, 1),
		imgui.NewVec4(0.1, 0.1, 0.1, 1.0),
		imgui.NewVec4(1, 1, 1, 1),
	)
}

// IsKeyPressed checks if a key was pressed this frame.
func IsKeyPressed(key imgui.Key) bool {
	return imgui.IsKeyChordPressed(imgui.KeyChord(key))
}
