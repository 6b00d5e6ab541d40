// Terrain Panel - an ImGui inspector that bakes a heightmap headless and shows
// the resulting tessellation levels, material weights and batch shaders.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/sqweek/dialog"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-terrain/internal/config"
	"github.com/Faultbox/midgard-terrain/internal/engine/camera"
	"github.com/Faultbox/midgard-terrain/internal/engine/debug"
	"github.com/Faultbox/midgard-terrain/internal/engine/gpu"
	"github.com/Faultbox/midgard-terrain/internal/engine/material"
	"github.com/Faultbox/midgard-terrain/internal/engine/scene"
	"github.com/Faultbox/midgard-terrain/internal/engine/terrain"
	"github.com/Faultbox/midgard-terrain/internal/engine/ui"
	"github.com/Faultbox/midgard-terrain/internal/logger"
)

func main() {
	runtime.LockOSThread()

	config.ParseFlags()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	app, err := NewApp(cfg)
	if err != nil {
		logger.Error("failed to create panel", zap.Error(err))
		os.Exit(1)
	}
	defer app.Close()

	app.Run()
}

// App is the inspector state.
type App struct {
	backend *ui.Backend
	cfg     *config.Config

	path     string
	pending  string // Set by the file dialog goroutine, consumed on the main thread
	hf       *terrain.HeightField
	scene    *scene.Scene
	backendM *gpu.MemoryBackend
	summary  scene.Summary
	masks    []material.Mask
	selected int32

	// Camera sliders
	distance float32
	pitch    float32
	yaw      float32

	// Terrain sliders
	maxTess  int32
	minTess  int32
	lodBase  float32
	smooth   bool
	morphing bool

	heightTex  *ui.Texture
	levelTex   *ui.Texture
	weightTexs []*ui.Texture
	zoom       float32
	dirty      bool
}

// NewApp creates the window and bakes the configured heightmap.
func NewApp(cfg *config.Config) (*App, error) {
	b, err := ui.NewBackend("Terrain Panel", 1400, 860)
	if err != nil {
		return nil, err
	}
	app := &App{
		backend:  b,
		cfg:      cfg,
		pitch:    35,
		maxTess:  int32(cfg.Terrain.MaxTessellationLevel),
		minTess:  int32(cfg.Terrain.MinTessellationLevel),
		lodBase:  cfg.Terrain.LODBaseDistance,
		smooth:   cfg.Terrain.SmoothLevels,
		morphing: cfg.Terrain.MorphingEnabled,
		zoom:     2,
	}
	if err := app.open(cfg.Viewer.Heightmap); err != nil {
		logger.Warn("heightmap load failed", zap.Error(err))
	}
	return app, nil
}

// Run starts the main loop.
func (app *App) Run() {
	app.backend.Run(app.render)
}

// Close releases the baked scene and textures.
func (app *App) Close() {
	app.releaseScene()
}

// open loads a heightmap; an empty path generates hills.
func (app *App) open(path string) error {
	var hf *terrain.HeightField
	if path == "" {
		hf = scene.Hills(128, 24)
	} else {
		var err error
		hf, err = terrain.LoadHeightmap(path)
		if err != nil {
			return err
		}
	}
	app.path = path
	app.hf = hf
	app.distance = 0
	app.heightTex.Release()
	app.heightTex = ui.NewTexture(debug.HeightImage(hf))

	title := "Terrain Panel - hills"
	if path != "" {
		title = "Terrain Panel - " + filepath.Base(path)
	}
	app.backend.SetWindowTitle(title)
	app.bake()
	return nil
}

// openFileDialog shows a native file dialog to select a heightmap.
func (app *App) openFileDialog() {
	// SDL window operations must happen on the main thread; render picks up the path.
	go func() {
		filename, err := dialog.File().
			Filter("Heightmaps", "png", "bmp", "tif", "tiff").
			Filter("All Files", "*").
			Title("Open Heightmap").
			Load()
		if err != nil {
			if err != dialog.ErrCancelled {
				logger.Warn("file dialog error", zap.Error(err))
			}
			return
		}
		app.pending = filename
	}()
}

func (app *App) releaseScene() {
	if app.scene != nil {
		if err := app.scene.Release(); err != nil {
			logger.Warn("scene release", zap.Error(err))
		}
		app.scene = nil
	}
	app.levelTex.Release()
	app.levelTex = nil
	for _, t := range app.weightTexs {
		t.Release()
	}
	app.weightTexs = nil
}

// bake rebuilds the scene with the current sliders and ticks one frame.
func (app *App) bake() {
	app.releaseScene()

	cfg := app.cfg.Clone()
	cfg.Terrain.MaxTessellationLevel = int(app.maxTess)
	cfg.Terrain.MinTessellationLevel = int(app.minTess)
	cfg.Terrain.LODBaseDistance = app.lodBase
	cfg.Terrain.SmoothLevels = app.smooth
	cfg.Terrain.MorphingEnabled = app.morphing
	cfg.Terrain.EditorMode = true

	queue := gpu.NewFrameQueue()
	app.backendM = gpu.NewMemoryBackend()
	app.scene = scene.New(cfg, app.hf, app.backendM, queue)

	cam := camera.NewOrbitCamera()
	cam.FitToBounds(app.scene.Terrain.WorldBounds())
	if app.distance <= 0 {
		app.distance = cam.Distance
	}
	cam.Distance = app.distance
	cam.RotationX = mgl32.DegToRad(app.pitch)
	cam.RotationY = mgl32.DegToRad(app.yaw)

	app.scene.Update(cam.View())
	queue.Flush()

	app.summary = app.scene.Summarize()
	app.masks = app.summary.Masks
	app.selected = 0
	app.levelTex = ui.NewTexture(debug.LevelImage(app.scene.Terrain))
	hf := app.scene.Terrain.HeightField()
	for _, img := range material.PackWeightTextures(app.scene.Terrain, hf.SizeX(), hf.SizeY()) {
		app.weightTexs = append(app.weightTexs, ui.NewTexture(img))
	}
	app.dirty = false

	logger.Debug("panel bake",
		zap.Int("triangles", app.summary.Triangles),
		zap.Int("masks", len(app.masks)))
}

// render is called each frame to draw the UI.
func (app *App) render() {
	if app.pending != "" {
		path := app.pending
		app.pending = ""
		if err := app.open(path); err != nil {
			logger.Warn("heightmap load failed", zap.String("path", path), zap.Error(err))
		}
	}
	if app.dirty {
		app.bake()
	}

	pos, size := app.backend.Viewport()
	const controlsWidth = 320
	flags := imgui.WindowFlagsNoMove | imgui.WindowFlagsNoResize | imgui.WindowFlagsNoCollapse

	imgui.SetNextWindowPos(pos)
	imgui.SetNextWindowSize(imgui.NewVec2(controlsWidth, size.Y))
	if imgui.BeginV("Controls", nil, flags) {
		app.renderControls()
	}
	imgui.End()

	imgui.SetNextWindowPos(imgui.NewVec2(pos.X+controlsWidth, pos.Y))
	imgui.SetNextWindowSize(imgui.NewVec2(size.X-controlsWidth, size.Y))
	if imgui.BeginV("Maps", nil, flags) {
		app.renderMaps()
	}
	imgui.End()
}

func (app *App) renderControls() {
	if imgui.Button("Open heightmap...") {
		app.openFileDialog()
	}
	imgui.SameLine()
	if imgui.Button("Hills") {
		if err := app.open(""); err != nil {
			logger.Warn("hills", zap.Error(err))
		}
	}
	imgui.Separator()

	imgui.Text("Tessellation")
	maxEnc := int32(config.MaxEncodableTessellation)
	if imgui.SliderIntV("Max##tess", &app.maxTess, 1, maxEnc, "%d", imgui.SliderFlagsNone) {
		app.minTess = min(app.minTess, app.maxTess)
		app.dirty = true
	}
	if imgui.SliderIntV("Min##tess", &app.minTess, 1, app.maxTess, "%d", imgui.SliderFlagsNone) {
		app.dirty = true
	}
	if imgui.SliderFloatV("LOD base", &app.lodBase, 256, 65536, "%.0f", imgui.SliderFlagsNone) {
		app.dirty = true
	}
	if imgui.Checkbox("Smooth levels", &app.smooth) {
		app.dirty = true
	}
	if imgui.Checkbox("Morphing", &app.morphing) {
		app.dirty = true
	}
	imgui.Separator()

	imgui.Text("Camera")
	if imgui.SliderFloatV("Distance", &app.distance, 10, 200000, "%.0f", imgui.SliderFlagsNone) {
		app.dirty = true
	}
	if imgui.SliderFloatV("Pitch", &app.pitch, 3, 89, "%.0f deg", imgui.SliderFlagsNone) {
		app.dirty = true
	}
	if imgui.SliderFloatV("Yaw", &app.yaw, -180, 180, "%.0f deg", imgui.SliderFlagsNone) {
		app.dirty = true
	}
	imgui.Separator()

	s := app.summary
	imgui.Text(fmt.Sprintf("Quads: %dx%d", app.hf.PatchesX, app.hf.PatchesY))
	imgui.Text(fmt.Sprintf("Components: %d (%d packed)", s.Components, s.Packed))
	imgui.Text(fmt.Sprintf("Vertices: %d", s.Vertices))
	imgui.Text(fmt.Sprintf("Triangles: %d", s.Triangles))
	imgui.Text(fmt.Sprintf("Batches: %d", s.Batches))
	imgui.Text(fmt.Sprintf("GPU: %d buffers, %d KB", app.backendM.Live(), app.backendM.UsedBytes()/1024))
	for level := 1; level <= int(app.maxTess); level <<= 1 {
		if n := s.Levels[level]; n > 0 {
			imgui.Text(fmt.Sprintf("  level %d: %d quads", level, n))
		}
	}
	imgui.Separator()

	imgui.Text(fmt.Sprintf("Materials: %d  masks: %d", app.scene.Terrain.NumWeightedMaterials(), len(app.masks)))
	if len(app.masks) > 0 {
		imgui.SliderIntV("Mask", &app.selected, 0, int32(len(app.masks)-1), "%d", imgui.SliderFlagsNone)
		cm := app.scene.Terrain.Materials.Get(app.masks[app.selected])
		imgui.Text(fmt.Sprintf("%v: %d textures", cm.Mask, cm.TextureCount))
		if cm.Placeholder {
			imgui.Text("over texture budget")
		}
	}
}

func (app *App) renderMaps() {
	imgui.SliderFloatV("Zoom", &app.zoom, 0.5, 8, "%.1fx", imgui.SliderFlagsNone)
	if imgui.BeginChildStrV("MapView", imgui.NewVec2(0, 0), imgui.ChildFlagsBorders, imgui.WindowFlagsHorizontalScrollbar) {
		imgui.Text("Heightmap")
		app.heightTex.Image(app.zoom)
		imgui.Text("Tessellation levels")
		app.levelTex.Image(app.zoom)
		for i, t := range app.weightTexs {
			imgui.Text(fmt.Sprintf("Weights %d (materials %d-%d)", i, i*4, i*4+3))
			t.Image(app.zoom)
		}
		if len(app.masks) > 0 {
			imgui.Separator()
			imgui.Text(app.scene.Terrain.Materials.Get(app.masks[app.selected]).FragmentSource())
		}
	}
	imgui.EndChild()
}
