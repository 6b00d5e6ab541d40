package decal

import (
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-terrain/internal/engine/gpu"
	"github.com/Faultbox/midgard-terrain/internal/engine/terrain"
	"github.com/Faultbox/midgard-terrain/internal/logger"
)

// DrawState is the render-side state of an interaction, owned by the
// rendering thread.
type DrawState struct {
	IndexBuffer gpu.BufferHandle
	IndexSize   int
	Triangles   int

	capacity int
}

// Interaction is a decal attached to one component. It draws with the
// component's vertex buffer and its own restricted index buffer.
type Interaction struct {
	Decal     *Decal
	Component *terrain.Component
	Range     PatchRange

	triangles int
	draw      DrawState
}

// Triangles returns the triangle count of the last pack.
func (it *Interaction) Triangles() int { return it.triangles }

// DrawState returns the render-side state. Call it from the rendering thread only.
func (it *Interaction) DrawState() DrawState { return it.draw }

// repack triangulates the range at the component's packed levels. Unpacked
// components are skipped; their first pack triggers a tessellation change.
func (it *Interaction) repack(t *terrain.Terrain) {
	c := it.Component
	if c.Tessellation() == 0 {
		it.triangles = 0
		return
	}
	data := c.PackWindow(it.Range.Window(c))
	vertexCount := terrain.VertexCount(c.SizeX, c.SizeY, c.Tessellation())
	buf := terrain.EncodeIndices(data.Indices, vertexCount)
	it.triangles = data.Triangles
	triangles := data.Triangles
	backend := t.Backend()

	t.Queue().Enqueue(func() {
		if len(buf) > it.draw.capacity {
			if it.draw.IndexBuffer != gpu.InvalidBuffer {
				if err := backend.Free(it.draw.IndexBuffer); err != nil {
					logger.Warn("free decal index buffer", zap.Error(err))
				}
			}
			it.draw.IndexBuffer = backend.AllocateBuffer(len(buf), gpu.UsageIndex)
			it.draw.capacity = len(buf)
			if it.draw.IndexBuffer == gpu.InvalidBuffer {
				it.draw.capacity = 0
			}
		}
		gpu.Upload(backend, it.draw.IndexBuffer, buf)()
		it.draw.IndexSize = terrain.IndexSize(vertexCount)
		it.draw.Triangles = triangles
		if it.draw.IndexBuffer == gpu.InvalidBuffer {
			it.draw.Triangles = 0
		}
	})
}

// free enqueues the release of the interaction's buffer. errp, when set, is
// written on the rendering thread.
func (it *Interaction) free(t *terrain.Terrain, errp *error) {
	backend := t.Backend()
	t.Queue().Enqueue(func() {
		if it.draw.IndexBuffer != gpu.InvalidBuffer {
			if err := backend.Free(it.draw.IndexBuffer); err != nil {
				if errp != nil {
					*errp = multierr.Append(*errp, err)
				} else {
					logger.Warn("free decal index buffer", zap.Error(err))
				}
			}
		}
		it.draw = DrawState{}
	})
	it.triangles = 0
}

// Projector tracks decals on a terrain. It listens to every component and
// keeps each decal's interactions in step with tessellation and geometry
// changes. All methods run on the game thread.
type Projector struct {
	terrain *terrain.Terrain
	decals  []*Decal
	byDecal map[*Decal]map[*terrain.Component]*Interaction
}

// NewProjector creates a projector and registers it with every component of t.
func NewProjector(t *terrain.Terrain) *Projector {
	p := &Projector{
		terrain: t,
		byDecal: make(map[*Decal]map[*terrain.Component]*Interaction),
	}
	for _, c := range t.Components() {
		c.AddListener(p)
	}
	return p
}

// Add starts projecting d.
func (p *Projector) Add(d *Decal) {
	if _, ok := p.byDecal[d]; ok {
		p.Update(d)
		return
	}
	p.decals = append(p.decals, d)
	p.byDecal[d] = make(map[*terrain.Component]*Interaction)
	p.Update(d)
}

// Update recomputes d's interactions after the decal moved or changed shape.
func (p *Projector) Update(d *Decal) {
	if _, ok := p.byDecal[d]; !ok {
		return
	}
	for _, c := range p.terrain.Components() {
		p.evaluate(d, c, false)
	}
}

// Remove detaches d from every component and frees its buffers.
func (p *Projector) Remove(d *Decal) {
	set, ok := p.byDecal[d]
	if !ok {
		return
	}
	for _, c := range p.terrain.Components() {
		if it := set[c]; it != nil {
			p.detach(it, nil)
		}
	}
	delete(p.byDecal, d)
	for i, x := range p.decals {
		if x == d {
			p.decals = append(p.decals[:i], p.decals[i+1:]...)
			break
		}
	}
}

// Interactions returns d's interactions in component order.
func (p *Projector) Interactions(d *Decal) []*Interaction {
	set := p.byDecal[d]
	var out []*Interaction
	for _, c := range p.terrain.Components() {
		if it := set[c]; it != nil {
			out = append(out, it)
		}
	}
	return out
}

// ComponentInteractions returns the interactions drawn on c in decal order.
func (p *Projector) ComponentInteractions(c *terrain.Component) []*Interaction {
	var out []*Interaction
	for _, d := range p.decals {
		if it := p.byDecal[d][c]; it != nil {
			out = append(out, it)
		}
	}
	return out
}

// evaluate attaches, moves or detaches d on c. force repacks an unchanged
// range, for when the component's own triangulation changed.
func (p *Projector) evaluate(d *Decal, c *terrain.Component, force bool) {
	set := p.byDecal[d]
	r, ok := ComputeRange(p.terrain, c, d)
	it := set[c]
	switch {
	case !ok && it != nil:
		p.detach(it, nil)
	case ok && it == nil:
		it = &Interaction{Decal: d, Component: c, Range: r}
		set[c] = it
		logger.Debug("decal attached",
			zap.Int("sectionX", c.SectionX),
			zap.Int("sectionY", c.SectionY),
			zap.Int("quads", r.Quads()))
		it.repack(p.terrain)
	case ok && (force || it.Range != r):
		it.Range = r
		it.repack(p.terrain)
	}
}

func (p *Projector) detach(it *Interaction, errp *error) {
	delete(p.byDecal[it.Decal], it.Component)
	it.free(p.terrain, errp)
	logger.Debug("decal detached",
		zap.Int("sectionX", it.Component.SectionX),
		zap.Int("sectionY", it.Component.SectionY))
}

// ComponentChanged implements terrain.ComponentListener. It runs after the
// component's own commands were enqueued, so decal repacks always follow.
func (p *Projector) ComponentChanged(c *terrain.Component, change terrain.ChangeKind) {
	switch change {
	case terrain.ChangeTessellation:
		for _, it := range p.ComponentInteractions(c) {
			it.repack(p.terrain)
		}
	case terrain.ChangeGeometry:
		for _, d := range p.decals {
			p.evaluate(d, c, true)
		}
	case terrain.ChangeReleased:
		for _, it := range p.ComponentInteractions(c) {
			p.detach(it, nil)
		}
	}
}

// Release detaches every decal, waits for the rendering thread and reports
// buffer release failures.
func (p *Projector) Release() error {
	var err error
	for _, c := range p.terrain.Components() {
		for _, it := range p.ComponentInteractions(c) {
			p.detach(it, &err)
		}
		c.RemoveListener(p)
	}
	p.terrain.Queue().Flush()
	p.decals = nil
	p.byDecal = make(map[*Decal]map[*terrain.Component]*Interaction)
	return err
}
