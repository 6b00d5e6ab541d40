package terrain

import (
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-terrain/internal/engine/gpu"
	"github.com/Faultbox/midgard-terrain/internal/engine/material"
	"github.com/Faultbox/midgard-terrain/internal/logger"
)

// ChangeKind tells listeners what happened to a component.
type ChangeKind int

const (
	// ChangeTessellation: levels changed and the buffers were repacked.
	ChangeTessellation ChangeKind = iota
	// ChangeGeometry: heights, holes or the terrain transform changed.
	ChangeGeometry
	// ChangeReleased: the component is about to free its buffers.
	ChangeReleased
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeTessellation:
		return "tessellation"
	case ChangeGeometry:
		return "geometry"
	case ChangeReleased:
		return "released"
	}
	return "unknown"
}

// ComponentListener is notified on the game thread after a component's own
// commands for a change were enqueued.
type ComponentListener interface {
	ComponentChanged(c *Component, change ChangeKind)
}

// DrawState is what the renderer needs to draw a component. It is owned by the
// rendering thread.
type DrawState struct {
	VertexBuffer gpu.BufferHandle
	IndexBuffer  gpu.BufferHandle
	IndexSize    int
	Tessellation int
	Stride       int
	Batches      []BatchRange
	Masks        []material.Mask
	Triangles    int

	indexCapacity int
}

// Component is a rectangular tile of the terrain with its own tessellation
// levels and GPU buffers.
type Component struct {
	terrain *Terrain

	SectionX, SectionY int // Global coordinates of the first quad
	SizeX, SizeY       int

	levels  *TessellationLevelField // packed
	pending *TessellationLevelField // accumulated this frame
	tess    int                     // vertex grid tessellation, 0 until first pack
	lod     lodState

	bounds      Bounds // local
	worldBounds Bounds
	batches     *material.MaskSet

	vertices   int
	triangles  int
	hasVisible bool

	listeners []ComponentListener

	draw DrawState
}

func newComponent(t *Terrain, index, x, y, sizeX, sizeY int) *Component {
	c := &Component{
		terrain:  t,
		SectionX: x,
		SectionY: y,
		SizeX:    sizeX,
		SizeY:    sizeY,
		levels:   NewTessellationLevelField(sizeX, sizeY, t.lod.MinLevel),
		pending:  NewTessellationLevelField(sizeX, sizeY, t.lod.MinLevel),
	}
	c.lod.frameOffset = uint64(index)
	return c
}

// Terrain returns the owning terrain.
func (c *Component) Terrain() *Terrain { return c.terrain }

// Levels returns the packed tessellation levels.
func (c *Component) Levels() *TessellationLevelField { return c.levels }

// Tessellation returns the tessellation of the packed vertex grid, 0 before the first pack.
func (c *Component) Tessellation() int { return c.tess }

// Bounds returns the component's terrain-local bounds.
func (c *Component) Bounds() Bounds { return c.bounds }

// WorldBounds returns the component's world-space bounds.
func (c *Component) WorldBounds() Bounds { return c.worldBounds }

// Triangles returns the triangle count of the last index pack.
func (c *Component) Triangles() int { return c.triangles }

// Batches returns the material masks drawn by the component.
func (c *Component) Batches() []material.Mask {
	if c.batches == nil {
		return nil
	}
	return c.batches.Masks
}

// Contains reports whether global quad (x, y) belongs to the component.
func (c *Component) Contains(x, y int) bool {
	return x >= c.SectionX && y >= c.SectionY && x < c.SectionX+c.SizeX && y < c.SectionY+c.SizeY
}

// AddListener registers l for change notifications.
func (c *Component) AddListener(l ComponentListener) {
	c.listeners = append(c.listeners, l)
}

// RemoveListener unregisters l.
func (c *Component) RemoveListener(l ComponentListener) {
	for i, x := range c.listeners {
		if x == l {
			c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
			return
		}
	}
}

func (c *Component) notify(change ChangeKind) {
	for _, l := range append([]ComponentListener(nil), c.listeners...) {
		l.ComponentChanged(c, change)
	}
}

// DrawState returns the render-side state. Call it from the rendering thread only.
func (c *Component) DrawState() DrawState { return c.draw }

// Stats summarizes the packed state.
func (c *Component) Stats() ComponentStats {
	return ComponentStats{
		SectionX:     c.SectionX,
		SectionY:     c.SectionY,
		Tessellation: c.tess,
		Vertices:     c.vertices,
		Triangles:    c.triangles,
		Batches:      len(c.Batches()),
		Levels:       c.levels.Histogram(),
	}
}

// updateLOD recomputes the pending levels and reports whether a repack is needed.
func (c *Component) updateLOD(frame *Frame) bool {
	t := c.terrain
	if t.lod.Static() {
		if c.tess != 0 {
			return false
		}
		c.pending.Fill(t.lod.MinLevel)
		return true
	}

	visible := frame.visible(c)
	distSq := float32(0)
	for i, v := range frame.Views {
		d := c.worldBounds.DistanceSquared(v.Origin)
		if i == 0 || d < distSq {
			distSq = d
		}
	}
	if !t.lod.ShouldCheck(&c.lod, frame.Number, visible, distSq) {
		return false
	}

	if visible {
		c.pending.Fill(t.lod.MinLevel)
		for _, v := range frame.Views {
			t.lod.Accumulate(c.pending, v, c.quadCenter)
		}
		if t.lod.SmoothLevels {
			t.lod.Smooth(c.pending)
		}
	} else {
		c.pending.CopyFrom(c.levels)
	}

	if c.tess == 0 || !c.pending.Equal(c.levels) {
		return true
	}
	return visible && c.hasVisible && c.triangles == 0
}

func (c *Component) quadCenter(x, y int) mgl32.Vec3 {
	t := c.terrain
	gx, gy := c.SectionX+x, c.SectionY+y
	minZ, maxZ := t.patchRange(gx, gy)
	return t.toWorld(float32(gx)+0.5, float32(gy)+0.5, (minZ+maxZ)/2)
}

// repackVertices packs the vertex grid at c.tess and enqueues its upload.
func (c *Component) repackVertices() {
	t := c.terrain
	data := t.vertexPacker.Pack(c.SectionX, c.SectionY, c.SizeX, c.SizeY, c.tess)
	buf := append([]byte(nil), data...)
	capacity := t.vertexPacker.Capacity(c.SizeX, c.SizeY)
	tess := c.tess
	stride := t.vertexPacker.Mode().Stride()
	c.vertices = VertexCount(c.SizeX, c.SizeY, c.tess)

	logger.Debug("repack vertices",
		zap.Int("sectionX", c.SectionX),
		zap.Int("sectionY", c.SectionY),
		zap.Int("tessellation", tess),
		zap.Int("bytes", len(buf)))

	t.queue.Enqueue(func() {
		if c.draw.VertexBuffer == gpu.InvalidBuffer {
			c.draw.VertexBuffer = t.backend.AllocateBuffer(capacity, gpu.UsageVertex)
		}
		gpu.Upload(t.backend, c.draw.VertexBuffer, buf)()
		c.draw.Tessellation = tess
		c.draw.Stride = stride
	})
}

// PackWindow triangulates the visible quads of window at the packed levels.
// Quads are not split by batch.
func (c *Component) PackWindow(window Rect) IndexData {
	return c.terrain.indexPacker.Pack(IndexRequest{
		BaseX:    c.SectionX,
		BaseY:    c.SectionY,
		SizeX:    c.SizeX,
		SizeY:    c.SizeY,
		Tess:     c.tess,
		Window:   window,
		Levels:   c.levels,
		Neighbor: c.terrain.LevelAt,
	})
}

// repackIndices triangulates the component and enqueues the index upload.
func (c *Component) repackIndices() {
	t := c.terrain
	req := IndexRequest{
		BaseX:    c.SectionX,
		BaseY:    c.SectionY,
		SizeX:    c.SizeX,
		SizeY:    c.SizeY,
		Tess:     c.tess,
		Window:   Rect{MaxX: c.SizeX, MaxY: c.SizeY},
		Levels:   c.levels,
		Neighbor: t.LevelAt,
	}
	var masks []material.Mask
	if c.batches != nil {
		req.QuadBatch = c.batches.Batch
		req.NumBatches = len(c.batches.Masks)
		masks = append(masks, c.batches.Masks...)
	}
	data := t.indexPacker.Pack(req)
	vertexCount := VertexCount(c.SizeX, c.SizeY, c.tess)
	buf := EncodeIndices(data.Indices, vertexCount)
	c.triangles = data.Triangles

	t.queue.Enqueue(func() {
		if len(buf) > c.draw.indexCapacity {
			if c.draw.IndexBuffer != gpu.InvalidBuffer {
				if err := t.backend.Free(c.draw.IndexBuffer); err != nil {
					logger.Warn("free index buffer", zap.Error(err))
				}
			}
			c.draw.IndexBuffer = t.backend.AllocateBuffer(len(buf), gpu.UsageIndex)
			c.draw.indexCapacity = len(buf)
			if c.draw.IndexBuffer == gpu.InvalidBuffer {
				c.draw.indexCapacity = 0
			}
		}
		gpu.Upload(t.backend, c.draw.IndexBuffer, buf)()
		c.draw.IndexSize = IndexSize(vertexCount)
		c.draw.Batches = data.Batches
		c.draw.Masks = masks
		c.draw.Triangles = data.Triangles
		if c.draw.IndexBuffer == gpu.InvalidBuffer {
			c.draw.Triangles = 0
		}
	})
}

// Release detaches listeners, waits for the rendering thread to finish every
// command touching the component and frees its buffers.
func (c *Component) Release() error {
	t := c.terrain
	c.notify(ChangeReleased)
	c.listeners = nil

	t.queue.Flush()
	var err error
	t.queue.Enqueue(func() {
		if c.draw.VertexBuffer != gpu.InvalidBuffer {
			err = multierr.Append(err, t.backend.Free(c.draw.VertexBuffer))
		}
		if c.draw.IndexBuffer != gpu.InvalidBuffer {
			err = multierr.Append(err, t.backend.Free(c.draw.IndexBuffer))
		}
		c.draw = DrawState{}
	})
	t.queue.Flush()

	c.tess = 0
	c.triangles = 0
	c.vertices = 0
	c.lod = lodState{frameOffset: c.lod.frameOffset}
	return err
}
