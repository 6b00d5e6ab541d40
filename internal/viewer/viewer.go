// Package viewer implements the interactive terrain viewer loop.
package viewer

import (
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-terrain/internal/config"
	"github.com/Faultbox/midgard-terrain/internal/engine/camera"
	"github.com/Faultbox/midgard-terrain/internal/engine/debug"
	"github.com/Faultbox/midgard-terrain/internal/engine/decal"
	"github.com/Faultbox/midgard-terrain/internal/engine/gpu"
	"github.com/Faultbox/midgard-terrain/internal/engine/input"
	"github.com/Faultbox/midgard-terrain/internal/engine/picking"
	"github.com/Faultbox/midgard-terrain/internal/engine/renderer"
	"github.com/Faultbox/midgard-terrain/internal/engine/scene"
	"github.com/Faultbox/midgard-terrain/internal/engine/terrain"
	"github.com/Faultbox/midgard-terrain/internal/engine/texture"
	"github.com/Faultbox/midgard-terrain/internal/engine/window"
	"github.com/Faultbox/midgard-terrain/internal/logger"
)

// Decal footprint and projection depth in quads.
const (
	decalSize  = 4
	decalDepth = 64
)

// Viewer is the interactive terrain viewer.
type Viewer struct {
	config   *config.Config
	running  bool
	window   *window.Window
	renderer *renderer.Renderer
	input    *input.Input
	camera   *camera.OrbitCamera
	queue    *gpu.FrameQueue
	scene    *scene.Scene
	shots    *debug.ScreenshotCapture

	decals   []*decal.Decal
	dragging bool
	dragged  bool
	morph    bool
}

// New creates the window, the renderer and a scene over hf. Material
// textures are loaded from textureDir.
func New(cfg *config.Config, hf *terrain.HeightField, textureDir string) (*Viewer, error) {
	logger.Info("initializing viewer",
		zap.Int("width", cfg.Viewer.Width),
		zap.Int("height", cfg.Viewer.Height),
		zap.Int("patchesX", hf.PatchesX),
		zap.Int("patchesY", hf.PatchesY),
	)

	v := &Viewer{
		config: cfg,
		queue:  gpu.NewFrameQueue(),
		shots:  debug.NewScreenshotCapture("screenshots", "terrain"),
	}

	// Create window (this also creates OpenGL context)
	var err error
	v.window, err = window.New(window.ConfigFrom("Midgard Terrain", cfg.Viewer))
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	// Create renderer (AFTER window, since OpenGL context must exist)
	v.renderer, err = renderer.New(renderer.Config{
		Width:  cfg.Viewer.Width,
		Height: cfg.Viewer.Height,
		VSync:  cfg.Viewer.VSync,
	})
	if err != nil {
		v.window.Close()
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}
	w, h := v.window.GetSize()
	v.renderer.Resize(w, h)

	v.scene = scene.New(cfg, hf, v.renderer.Backend(), v.queue)
	v.renderer.SetTerrain(v.scene.Terrain, v.scene.Decals, texture.NewLibrary(textureDir))
	v.renderer.LightDir = v.scene.LightDir()

	v.camera = camera.NewOrbitCamera()
	v.camera.FOV = cfg.Viewer.FOV
	v.camera.FitToBounds(v.scene.Terrain.WorldBounds())

	v.input = input.New()

	logger.Info("viewer initialized successfully")
	return v, nil
}

// Run starts the main loop.
func (v *Viewer) Run() error {
	v.running = true

	lastTime := time.Now()
	frameCount := 0
	fpsTimer := time.Now()

	logger.Info("starting viewer loop")

	for v.running {
		now := time.Now()
		dt := float32(now.Sub(lastTime).Seconds())
		lastTime = now

		// 1. Process input
		if v.input.Update() {
			v.running = false
			break
		}
		v.handleEvents()

		// 2. Update LOD and decals, then run their GPU commands
		v.update(dt)
		v.queue.Flush()

		// 3. Render
		stats := v.render()

		// 4. Present (swap buffers)
		v.window.SwapBuffers()

		frameCount++
		if time.Since(fpsTimer) >= time.Second {
			logger.Debug("fps",
				zap.Int("count", frameCount),
				zap.Int("components", stats.Components),
				zap.Int("batches", stats.Batches),
				zap.Int("triangles", stats.Triangles),
				zap.Int("decals", stats.Decals))
			frameCount = 0
			fpsTimer = time.Now()
		}
	}

	return nil
}

func (v *Viewer) handleEvents() {
	for _, event := range v.input.Events() {
		switch event.Type {
		case input.EventWindowResize:
			v.renderer.Resize(event.Width, event.Height)
		case input.EventKeyDown:
			v.handleKey(event.Key)
		case input.EventMouseDown:
			if event.Button == sdl.BUTTON_LEFT {
				v.dragging = true
				v.dragged = false
			}
		case input.EventMouseMove:
			if v.dragging && (event.DeltaX != 0 || event.DeltaY != 0) {
				v.dragged = true
				v.camera.HandleDrag(float32(event.DeltaX), float32(event.DeltaY))
			}
		case input.EventMouseUp:
			if event.Button == sdl.BUTTON_LEFT {
				if !v.dragged {
					v.placeDecal(event.MouseX, event.MouseY)
				}
				v.dragging = false
			}
		case input.EventMouseWheel:
			v.camera.HandleZoom(float32(event.DeltaY))
		}
	}
}

func (v *Viewer) handleKey(key sdl.Scancode) {
	switch key {
	case sdl.SCANCODE_ESCAPE:
		v.running = false
	case sdl.SCANCODE_F1:
		v.renderer.Wireframe = !v.renderer.Wireframe
	case sdl.SCANCODE_F2:
		v.renderer.ShowBounds = !v.renderer.ShowBounds
	case sdl.SCANCODE_F5:
		v.scene.Terrain.RecacheMaterials()
		logger.Info("materials recached")
	case sdl.SCANCODE_M:
		v.morph = !v.morph
		for i := range v.renderer.MorphAlpha {
			v.renderer.MorphAlpha[i] = 0
			if v.morph {
				v.renderer.MorphAlpha[i] = 0.5
			}
		}
	case sdl.SCANCODE_BACKSPACE, sdl.SCANCODE_DELETE:
		if n := len(v.decals); n > 0 {
			v.scene.Decals.Remove(v.decals[n-1])
			v.decals = v.decals[:n-1]
		}
	case sdl.SCANCODE_F12:
		v.screenshot()
	}
}

// placeDecal projects a decal onto the terrain point under the cursor.
func (v *Viewer) placeDecal(mouseX, mouseY int) {
	w, h := v.window.GetSize()
	viewProj := v.viewProj()
	ray := picking.ScreenToRay(float32(mouseX), float32(mouseY), float32(w), float32(h), viewProj.Inv())
	hit, ok := picking.PickTerrain(v.scene.Terrain, ray)
	if !ok {
		return
	}
	s := v.config.Viewer.DrawScale
	d := v.scene.PlaceDecal(hit, decalSize*s[0], decalDepth*s[2])
	v.decals = append(v.decals, d)
}

func (v *Viewer) screenshot() {
	pixels, w, h := v.window.ReadPixels()
	path, err := v.shots.CaptureFromPixels(pixels, w, h)
	if err != nil {
		logger.Warn("screenshot failed", zap.Error(err))
		return
	}
	logger.Info("screenshot saved", zap.String("path", path))
}

func (v *Viewer) viewProj() mgl32.Mat4 {
	w, h := v.window.GetSize()
	aspect := float32(w) / float32(max(h, 1))
	return v.camera.Projection(aspect).Mul4(v.camera.ViewMatrix())
}

func (v *Viewer) update(dt float32) {
	forward := v.input.Axis(sdl.SCANCODE_W, sdl.SCANCODE_S)
	right := v.input.Axis(sdl.SCANCODE_D, sdl.SCANCODE_A)
	up := v.input.Axis(sdl.SCANCODE_E, sdl.SCANCODE_Q)
	if forward != 0 || right != 0 || up != 0 {
		step := dt * 60
		v.camera.HandleMovement(forward*step, right*step, up*step)
	}
	v.scene.Update(v.camera.View())
}

func (v *Viewer) render() renderer.DrawStats {
	v.renderer.Begin()
	stats := v.renderer.Draw(v.viewProj())
	v.renderer.End()
	return stats
}

// Close releases the scene and GL resources.
func (v *Viewer) Close() {
	logger.Info("closing viewer")

	if v.scene != nil {
		if err := v.scene.Release(); err != nil {
			logger.Warn("scene release", zap.Error(err))
		}
	}
	if v.renderer != nil {
		if err := v.renderer.Close(); err != nil {
			logger.Warn("renderer close", zap.Error(err))
		}
	}
	if v.window != nil {
		v.window.Close()
	}
}
