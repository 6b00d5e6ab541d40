package terrain

import (
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-terrain/internal/config"
	"github.com/Faultbox/midgard-terrain/internal/engine/gpu"
	"github.com/Faultbox/midgard-terrain/internal/engine/material"
	"github.com/Faultbox/midgard-terrain/internal/logger"
)

// Terrain owns a heightfield, splits it into components and keeps their GPU
// buffers in step with the views looking at it. All methods run on the game
// thread; GPU work is handed to the command queue.
type Terrain struct {
	hf      *HeightField
	cfg     config.TerrainConfig
	backend gpu.Backend
	queue   gpu.CommandQueue

	sampler      *PatchSampler
	lod          *LodSelector
	vertexPacker *VertexBufferPacker
	indexPacker  *IndexBufferPacker

	localToWorld mgl32.Mat4
	worldToLocal mgl32.Mat4

	// Per-quad local Z range sampled at maximum tessellation.
	patchMinZ []float32
	patchMaxZ []float32

	components     []*Component
	compsX, compsY int

	layers    []Layer
	weights   *weightMaps
	Materials *material.Compiler
}

// New creates a terrain over hf with a normalized copy of cfg.
func New(hf *HeightField, cfg *config.Config, backend gpu.Backend, queue gpu.CommandQueue) *Terrain {
	cfg = cfg.Clone()
	cfg.Normalize()
	tc := cfg.Terrain

	mode := MorphNone
	if tc.MorphingEnabled {
		mode = MorphHeight
		if tc.MorphingGradientsEnabled {
			mode = MorphHeightGradient
		}
	}

	size := tc.ComponentSize
	t := &Terrain{
		hf:           hf,
		cfg:          tc,
		backend:      backend,
		queue:        queue,
		sampler:      NewPatchSampler(tc.MaxTessellationLevel),
		lod:          NewLodSelector(tc),
		indexPacker:  NewIndexBufferPacker(hf),
		localToWorld: mgl32.Ident4(),
		worldToLocal: mgl32.Ident4(),
		patchMinZ:    make([]float32, hf.PatchesX*hf.PatchesY),
		patchMaxZ:    make([]float32, hf.PatchesX*hf.PatchesY),
		compsX:       (hf.PatchesX + size - 1) / size,
		compsY:       (hf.PatchesY + size - 1) / size,
		Materials:    material.NewCompiler(cfg.Material),
	}
	t.vertexPacker = NewVertexBufferPacker(hf, t.sampler, mode, min(size, hf.PatchesX), min(size, hf.PatchesY))

	for cy := 0; cy < t.compsY; cy++ {
		for cx := 0; cx < t.compsX; cx++ {
			x, y := cx*size, cy*size
			c := newComponent(t, len(t.components), x, y,
				min(size, hf.PatchesX-x), min(size, hf.PatchesY-y))
			t.components = append(t.components, c)
		}
	}

	t.rebuildBounds()
	t.CacheWeightMaps()

	logger.Info("terrain created",
		zap.Int("patchesX", hf.PatchesX),
		zap.Int("patchesY", hf.PatchesY),
		zap.Int("components", len(t.components)),
		zap.Int("maxTessellation", tc.MaxTessellationLevel),
		zap.Int("minTessellation", tc.MinTessellationLevel),
		zap.Int("vertexStride", mode.Stride()))
	return t
}

// HeightField returns the terrain data.
func (t *Terrain) HeightField() *HeightField { return t.hf }

// Config returns the normalized terrain settings.
func (t *Terrain) Config() config.TerrainConfig { return t.cfg }

// Backend returns the GPU buffer backend.
func (t *Terrain) Backend() gpu.Backend { return t.backend }

// Queue returns the rendering command queue.
func (t *Terrain) Queue() gpu.CommandQueue { return t.queue }

// MorphMode returns the vertex record layout.
func (t *Terrain) MorphMode() MorphMode { return t.vertexPacker.Mode() }

// Components returns every component in row-major order.
func (t *Terrain) Components() []*Component { return t.components }

// LocalToWorld returns the terrain transform.
func (t *Terrain) LocalToWorld() mgl32.Mat4 { return t.localToWorld }

// WorldToLocal returns the inverse terrain transform.
func (t *Terrain) WorldToLocal() mgl32.Mat4 { return t.worldToLocal }

// SetTransform moves the terrain. Listeners see a geometry change.
func (t *Terrain) SetTransform(localToWorld mgl32.Mat4) {
	t.localToWorld = localToWorld
	t.worldToLocal = localToWorld.Inv()
	for _, c := range t.components {
		c.worldBounds = c.bounds.Transform(t.localToWorld)
		c.notify(ChangeGeometry)
	}
}

func (t *Terrain) toWorld(x, y, z float32) mgl32.Vec3 {
	return mgl32.TransformCoordinate(mgl32.Vec3{x, y, z}, t.localToWorld)
}

// ComponentAt returns the component owning global quad (x, y).
func (t *Terrain) ComponentAt(x, y int) *Component {
	if x < 0 || y < 0 || x >= t.hf.PatchesX || y >= t.hf.PatchesY {
		return nil
	}
	size := t.cfg.ComponentSize
	return t.components[(y/size)*t.compsX+x/size]
}

// LevelAt returns the packed level of global quad (x, y). Quads outside the
// terrain or in unpacked components report false.
func (t *Terrain) LevelAt(x, y int) (int, bool) {
	c := t.ComponentAt(x, y)
	if c == nil || c.tess == 0 {
		return 0, false
	}
	return c.levels.At(x-c.SectionX, y-c.SectionY), true
}

func (t *Terrain) patchRange(x, y int) (float32, float32) {
	i := y*t.hf.PatchesX + x
	return t.patchMinZ[i], t.patchMaxZ[i]
}

// PatchHeightRange returns the local Z range of the global quads in
// [minX, maxX) x [minY, maxY). ok is false when the range holds no quad.
func (t *Terrain) PatchHeightRange(minX, minY, maxX, maxY int) (lo, hi float32, ok bool) {
	minX, minY = max(minX, 0), max(minY, 0)
	maxX, maxY = min(maxX, t.hf.PatchesX), min(maxY, t.hf.PatchesY)
	for y := minY; y < maxY; y++ {
		for x := minX; x < maxX; x++ {
			a, b := t.patchRange(x, y)
			if !ok {
				lo, hi, ok = a, b, true
				continue
			}
			lo = min(lo, a)
			hi = max(hi, b)
		}
	}
	return lo, hi, ok
}

// WorldBounds returns the union of the component world bounds.
func (t *Terrain) WorldBounds() Bounds {
	b := EmptyBounds()
	for _, c := range t.components {
		b.Extend(c.worldBounds.Min)
		b.Extend(c.worldBounds.Max)
	}
	return b
}

// rebuildBounds samples every quad at maximum tessellation for its Z range and
// refreshes component bounds.
func (t *Terrain) rebuildBounds() {
	n := t.sampler.MaxTessellation()
	for y := 0; y < t.hf.PatchesY; y++ {
		for x := 0; x < t.hf.PatchesX; x++ {
			p := t.hf.Patch(x, y)
			lo, hi := float32(1e30), float32(-1e30)
			for sy := 0; sy <= n; sy++ {
				for sx := 0; sx <= n; sx++ {
					z := LocalZ(quantizeHeight(t.sampler.Sample(&p, sx, sy)))
					lo = min(lo, z)
					hi = max(hi, z)
				}
			}
			t.patchMinZ[y*t.hf.PatchesX+x] = lo
			t.patchMaxZ[y*t.hf.PatchesX+x] = hi
		}
	}

	for _, c := range t.components {
		lo, hi, _ := t.PatchHeightRange(c.SectionX, c.SectionY, c.SectionX+c.SizeX, c.SectionY+c.SizeY)
		c.bounds = Bounds{
			Min: mgl32.Vec3{float32(c.SectionX), float32(c.SectionY), lo},
			Max: mgl32.Vec3{float32(c.SectionX + c.SizeX), float32(c.SectionY + c.SizeY), hi},
		}
		c.worldBounds = c.bounds.Transform(t.localToWorld)

		c.hasVisible = false
		for y := c.SectionY; y < c.SectionY+c.SizeY && !c.hasVisible; y++ {
			for x := c.SectionX; x < c.SectionX+c.SizeX; x++ {
				if t.hf.QuadVisible(x, y) {
					c.hasVisible = true
					break
				}
			}
		}
	}
}

// Tick runs LOD selection for every component and repacks what changed:
// vertices before indices for each component, then the index buffers of
// neighbors whose borders moved, then listeners.
func (t *Terrain) Tick(frame Frame) {
	var changed []*Component
	for _, c := range t.components {
		if c.updateLOD(&frame) {
			changed = append(changed, c)
		}
	}
	if len(changed) == 0 {
		return
	}

	vertexDirty := make(map[*Component]bool, len(changed))
	for _, c := range changed {
		c.levels.CopyFrom(c.pending)
		if tess := c.levels.Max(); tess != c.tess {
			c.tess = tess
			vertexDirty[c] = true
		}
	}

	repacked := make(map[*Component]bool, len(changed))
	for _, c := range changed {
		if vertexDirty[c] {
			c.repackVertices()
		}
		c.repackIndices()
		repacked[c] = true
	}

	var neighbors []*Component
	for _, c := range changed {
		for _, n := range t.neighbors(c) {
			if !repacked[n] && n.tess != 0 {
				repacked[n] = true
				neighbors = append(neighbors, n)
				n.repackIndices()
			}
		}
	}

	for _, c := range changed {
		c.notify(ChangeTessellation)
	}
	for _, n := range neighbors {
		n.notify(ChangeTessellation)
	}
}

func (t *Terrain) neighbors(c *Component) []*Component {
	var out []*Component
	for _, d := range [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
		x := c.SectionX + d[0]
		y := c.SectionY + d[1]
		if d[0] > 0 {
			x = c.SectionX + c.SizeX
		}
		if d[1] > 0 {
			y = c.SectionY + c.SizeY
		}
		if n := t.ComponentAt(x, y); n != nil && n != c {
			out = append(out, n)
		}
	}
	return out
}

// EditHeights stops the rendering thread, applies edit to the heightfield and
// repacks every packed component.
func (t *Terrain) EditHeights(edit func(hf *HeightField)) {
	t.queue.Flush()
	edit(t.hf)
	t.rebuildBounds()
	if len(t.layers) > 0 {
		t.cacheWeights()
	}
	for _, c := range t.components {
		if c.tess == 0 {
			continue
		}
		c.repackVertices()
		c.repackIndices()
	}
	for _, c := range t.components {
		c.notify(ChangeGeometry)
	}
}

// SetLayers replaces the paint layers and recomputes weight maps.
func (t *Terrain) SetLayers(layers []Layer) {
	t.layers = append([]Layer(nil), layers...)
	t.CacheWeightMaps()
}

// Layers returns the paint layers.
func (t *Terrain) Layers() []Layer { return t.layers }

// CacheWeightMaps flattens the layers into weighted materials and per-vertex
// weights, rediscovers every component's material batches and repacks their
// index buffers.
func (t *Terrain) CacheWeightMaps() {
	t.queue.Flush()
	t.cacheWeights()
	for _, c := range t.components {
		if c.tess != 0 {
			c.repackIndices()
		}
	}
}

func (t *Terrain) cacheWeights() {
	t.weights = buildWeightMaps(t.hf, t.layers)
	if len(t.weights.materials) == 0 {
		t.weights.materials = []material.WeightedMaterial{{Material: material.DefaultMaterial()}}
		t.weights.weights = [][]uint8{make([]uint8, t.hf.SizeX()*t.hf.SizeY())}
	}
	t.Materials.SetMaterials(t.weights.materials)
	for _, c := range t.components {
		c.batches = material.DiscoverMasks(t, c.SectionX, c.SectionY, c.SizeX, c.SizeY)
	}
	logger.Debug("terrain weight maps cached",
		zap.Int("layers", len(t.layers)),
		zap.Int("materials", len(t.weights.materials)))
}

// RecacheMaterials waits for the rendering thread and drops every compiled material.
func (t *Terrain) RecacheMaterials() {
	t.queue.Flush()
	t.Materials.Reset()
}

// NumWeightedMaterials implements material.WeightSource.
func (t *Terrain) NumWeightedMaterials() int {
	if t.weights == nil {
		return 0
	}
	return len(t.weights.weights)
}

// MaterialWeight implements material.WeightSource over global vertex coordinates.
func (t *Terrain) MaterialWeight(i, x, y int) uint8 {
	if x < 0 || y < 0 || x >= t.hf.SizeX() || y >= t.hf.SizeY() {
		return 0
	}
	return t.weights.weight(i, x, y)
}

// Stats returns the stats of every component.
func (t *Terrain) Stats() []ComponentStats {
	out := make([]ComponentStats, len(t.components))
	for i, c := range t.components {
		out[i] = c.Stats()
	}
	return out
}

// Release frees every component's buffers.
func (t *Terrain) Release() error {
	var err error
	for _, c := range t.components {
		err = multierr.Append(err, c.Release())
	}
	return err
}
