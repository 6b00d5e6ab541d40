// Package main runs the terrain pipeline headless: it tessellates a heightmap
// for one camera, projects decals and reports what would be drawn.
package main

import (
	"flag"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-terrain/internal/bakedb"
	"github.com/Faultbox/midgard-terrain/internal/config"
	"github.com/Faultbox/midgard-terrain/internal/engine/camera"
	"github.com/Faultbox/midgard-terrain/internal/engine/gpu"
	"github.com/Faultbox/midgard-terrain/internal/engine/material"
	"github.com/Faultbox/midgard-terrain/internal/engine/picking"
	"github.com/Faultbox/midgard-terrain/internal/engine/scene"
	"github.com/Faultbox/midgard-terrain/internal/engine/terrain"
	"github.com/Faultbox/midgard-terrain/internal/logger"
)

var (
	flagDistance   = flag.Float64("distance", 0, "Camera distance (0 fits the terrain)")
	flagPitch      = flag.Float64("pitch", 35, "Camera pitch in degrees")
	flagYaw        = flag.Float64("yaw", 0, "Camera yaw in degrees")
	flagFrames     = flag.Int("frames", 1, "Frames to simulate")
	flagDecals     = flag.String("decals", "", "Decals as x,y,size;... in quads")
	flagComponents = flag.Bool("components", false, "Print per-component stats")
	flagLayers     = flag.Bool("layers", false, "Print weighted materials and batch masks")
	flagGLSL       = flag.Bool("glsl", false, "Print the fragment shader of every batch mask")
	flagWeights    = flag.String("weights", "", "Write packed weight textures as PNG to this directory")
	flagRecord     = flag.String("record", "", "Record the bake in this SQLite database")
)

func main() {
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

	if err := run(cfg); err != nil {
		logger.Error("bake failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	hf, err := loadHeightField(cfg)
	if err != nil {
		return err
	}

	backend := gpu.NewMemoryBackend()
	queue := gpu.NewFrameQueue()
	s := scene.New(cfg, hf, backend, queue)
	defer func() {
		if err := s.Release(); err != nil {
			logger.Warn("scene release", zap.Error(err))
		}
	}()

	cam := camera.NewOrbitCamera()
	cam.FitToBounds(s.Terrain.WorldBounds())
	if *flagDistance > 0 {
		cam.Distance = float32(*flagDistance)
	}
	cam.RotationX = mgl32.DegToRad(float32(*flagPitch))
	cam.RotationY = mgl32.DegToRad(float32(*flagYaw))

	for i := 0; i < max(*flagFrames, 1); i++ {
		s.Update(cam.View())
		queue.Flush()
	}

	decals, err := parseDecals(*flagDecals)
	if err != nil {
		return err
	}
	scale := cfg.Viewer.DrawScale
	for _, d := range decals {
		top := mgl32.TransformCoordinate(mgl32.Vec3{d[0], d[1], 1e4}, s.Terrain.LocalToWorld())
		hit, ok := picking.PickTerrain(s.Terrain, picking.Ray{Origin: top, Direction: mgl32.Vec3{0, 0, -1}})
		if !ok {
			logger.Warn("decal misses the terrain", zap.Float32("x", d[0]), zap.Float32("y", d[1]))
			continue
		}
		s.PlaceDecal(hit, d[2]*scale[0], 64*scale[2])
	}
	queue.Flush()

	printSummary(s, cam)
	if *flagComponents {
		printComponents(s.Terrain)
	}
	if *flagLayers {
		printLayers(s)
	}
	if *flagGLSL {
		printGLSL(s)
	}
	if *flagWeights != "" {
		if err := writeWeights(s.Terrain, *flagWeights); err != nil {
			return err
		}
	}
	fmt.Printf("gpu: %d buffers, %d bytes\n", backend.Live(), backend.UsedBytes())

	if *flagRecord != "" {
		return record(*flagRecord, cfg, s, cam.Position())
	}
	return nil
}

// record stores the bake and prints the change against the previous
// comparable run.
func record(path string, cfg *config.Config, s *scene.Scene, eye mgl32.Vec3) error {
	store, err := bakedb.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	run := bakedb.NewRun(cfg.Viewer.Heightmap, cfg.Terrain, s, eye)
	if err := store.Record(run); err != nil {
		return err
	}
	prev, err := store.Previous(run)
	if err != nil {
		return err
	}
	fmt.Printf("recorded run %d", run.ID)
	if prev != nil {
		fmt.Printf(" (run %d: triangles %+d, vertices %+d)",
			prev.ID, run.Triangles-prev.Triangles, run.Vertices-prev.Vertices)
	}
	fmt.Println()
	return nil
}

func loadHeightField(cfg *config.Config) (*terrain.HeightField, error) {
	if cfg.Viewer.Heightmap == "" {
		logger.Info("no heightmap configured, generating hills")
		return scene.Hills(128, 24), nil
	}
	return terrain.LoadHeightmap(cfg.Viewer.Heightmap)
}

// parseDecals parses "x,y,size;x,y,size".
func parseDecals(s string) ([][3]float32, error) {
	var out [][3]float32
	for _, item := range strings.Split(s, ";") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.Split(item, ",")
		if len(parts) != 3 {
			return nil, fmt.Errorf("decal %q: expected x,y,size", item)
		}
		var d [3]float32
		for i, p := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
			if err != nil {
				return nil, fmt.Errorf("decal %q: %w", item, err)
			}
			d[i] = float32(v)
		}
		out = append(out, d)
	}
	return out, nil
}

func printSummary(s *scene.Scene, cam *camera.OrbitCamera) {
	sum := s.Summarize()
	p := cam.Position()
	fmt.Printf("camera: (%.1f, %.1f, %.1f) distance %.1f\n", p.X(), p.Y(), p.Z(), cam.Distance)
	fmt.Printf("components: %d (%d packed)\n", sum.Components, sum.Packed)
	fmt.Printf("vertices: %d  triangles: %d  batches: %d\n", sum.Vertices, sum.Triangles, sum.Batches)
	fmt.Printf("decal interactions: %d  decal triangles: %d\n", sum.Decals, sum.DecalTriangles)

	levels := make([]int, 0, len(sum.Levels))
	for l := range sum.Levels {
		levels = append(levels, l)
	}
	sort.Ints(levels)
	fmt.Print("levels:")
	for _, l := range levels {
		fmt.Printf(" %d:%d", l, sum.Levels[l])
	}
	fmt.Println()
}

func printComponents(t *terrain.Terrain) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SECTION\tTESS\tVERTICES\tTRIANGLES\tBATCHES")
	for _, st := range t.Stats() {
		fmt.Fprintf(w, "%d,%d\t%d\t%d\t%d\t%d\n",
			st.SectionX, st.SectionY, st.Tessellation, st.Vertices, st.Triangles, st.Batches)
	}
	w.Flush()
}

func printLayers(s *scene.Scene) {
	for i, wm := range s.Terrain.Materials.Materials() {
		fmt.Printf("material %d: %s (weight texture %d, channel %d)\n",
			i, wm.Material.Name, material.WeightTexture(i), material.WeightChannelOf(i))
	}
	for _, m := range s.Summarize().Masks {
		cm := s.Terrain.Materials.Get(m)
		fmt.Printf("mask %v: %d textures", m, cm.TextureCount)
		if cm.Placeholder {
			fmt.Print(" (over budget)")
		}
		fmt.Println()
	}
}

func printGLSL(s *scene.Scene) {
	for _, m := range s.Summarize().Masks {
		fmt.Printf("// mask %v\n%s\n", m, s.Terrain.Materials.Get(m).FragmentSource())
	}
}

func writeWeights(t *terrain.Terrain, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating weight dir: %w", err)
	}
	hf := t.HeightField()
	for i, img := range material.PackWeightTextures(t, hf.SizeX(), hf.SizeY()) {
		path := filepath.Join(dir, fmt.Sprintf("weights%d.png", i))
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		err = png.Encode(f, img)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		logger.Info("weight texture written", zap.String("path", path))
	}
	return nil
}
