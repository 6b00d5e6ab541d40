package terrain

import (
	"encoding/binary"
)

// LevelLookup returns the current tessellation level of a quad in terrain-global
// coordinates, or false when there is no component there.
type LevelLookup func(x, y int) (int, bool)

// Rect is a half-open quad window [MinX, MaxX) x [MinY, MaxY) in component-local coordinates.
type Rect struct {
	MinX, MinY int
	MaxX, MaxY int
}

// Empty reports whether the window covers no quads.
func (r Rect) Empty() bool {
	return r.MaxX <= r.MinX || r.MaxY <= r.MinY
}

// IndexRequest describes one index buffer build.
type IndexRequest struct {
	BaseX, BaseY int // Global coordinates of the component's first quad
	SizeX, SizeY int // Component size in quads
	Tess         int // Tessellation of the component's vertex grid
	Window       Rect
	Levels       *TessellationLevelField
	// Neighbor resolves levels across the component border. Nil treats the
	// border as having no neighbor.
	Neighbor LevelLookup
	// QuadBatch returns the batch of a component-local quad. Nil puts every quad in batch 0.
	QuadBatch  func(x, y int) int
	NumBatches int
}

// IndexData is the output of one index buffer build.
type IndexData struct {
	Indices   []uint32
	Batches   []BatchRange
	Triangles int
}

// IndexBufferPacker triangulates tessellated quads with crack-free borders
// between quads of different levels.
type IndexBufferPacker struct {
	hf      *HeightField
	batches [][]uint32
}

// NewIndexBufferPacker creates an index packer reading hole and diagonal flags from hf.
func NewIndexBufferPacker(hf *HeightField) *IndexBufferPacker {
	return &IndexBufferPacker{hf: hf}
}

// quadEmitter writes the triangles of one quad into dst.
type quadEmitter struct {
	rowLen int
	tess   int
	qx, qy int // component-local quad
	step   int // grid steps per quad-level step
	dst    []uint32
}

// vertex maps quad-level coordinates (u, v) in [0, L] to a grid vertex index.
func (e *quadEmitter) vertex(u, v int) uint32 {
	gx := e.qx*e.tess + u*e.step
	gy := e.qy*e.tess + v*e.step
	return uint32(gy*e.rowLen + gx)
}

type point struct{ u, v int }

// emitCCW appends triangle (a, b, c), swapping b and c if it winds clockwise.
func (e *quadEmitter) emitCCW(a, b, c point) {
	cross := (b.u-a.u)*(c.v-a.v) - (b.v-a.v)*(c.u-a.u)
	if cross < 0 {
		b, c = c, b
	}
	e.dst = append(e.dst, e.vertex(a.u, a.v), e.vertex(b.u, b.v), e.vertex(c.u, c.v))
}

func (e *quadEmitter) cell(i, j int, flip bool) {
	p00 := point{i, j}
	p10 := point{i + 1, j}
	p01 := point{i, j + 1}
	p11 := point{i + 1, j + 1}
	if flip {
		e.emitCCW(p00, p10, p01)
		e.emitCCW(p10, p11, p01)
	} else {
		e.emitCCW(p00, p10, p11)
		e.emitCCW(p00, p11, p01)
	}
}

// Quad edges in (along, depth) coordinates.
const (
	edgeBottom = iota
	edgeTop
	edgeLeft
	edgeRight
)

func edgeMap(edge, level, t, d int) point {
	switch edge {
	case edgeTop:
		return point{t, level - d}
	case edgeLeft:
		return point{d, t}
	case edgeRight:
		return point{level - d, t}
	}
	return point{t, d}
}

// stitch fills the band between a quad edge of tessellation edgeTess and the
// inner vertex row one step inside it. Edge vertices and inner vertices are
// merged by position along the edge.
func (e *quadEmitter) stitch(edge, level, edgeTess int) {
	n := level - 1
	a := func(k int) point { return edgeMap(edge, level, k*level/edgeTess, 0) }
	b := func(m int) point { return edgeMap(edge, level, m+1, 1) }

	i, j := 0, 0
	for i < edgeTess || j < n-1 {
		if i < edgeTess && (j == n-1 || (i+1)*level <= (j+2)*edgeTess) {
			e.emitCCW(a(i), a(i+1), b(j))
			i++
		} else {
			e.emitCCW(a(i), b(j+1), b(j))
			j++
		}
	}
}

// Pack builds the index buffer for the visible quads of the request window,
// grouped by batch.
func (p *IndexBufferPacker) Pack(req IndexRequest) IndexData {
	numBatches := max(req.NumBatches, 1)
	if len(p.batches) < numBatches {
		p.batches = make([][]uint32, numBatches)
	}
	for i := range p.batches {
		p.batches[i] = p.batches[i][:0]
	}

	e := &quadEmitter{rowLen: req.SizeX*req.Tess + 1, tess: req.Tess}

	for qy := req.Window.MinY; qy < req.Window.MaxY; qy++ {
		for qx := req.Window.MinX; qx < req.Window.MaxX; qx++ {
			gx, gy := req.BaseX+qx, req.BaseY+qy
			if !p.hf.QuadVisible(gx, gy) {
				continue
			}
			batch := 0
			if req.QuadBatch != nil {
				batch = req.QuadBatch(qx, qy)
				if batch < 0 || batch >= numBatches {
					batch = 0
				}
			}

			level := req.Levels.At(qx, qy)
			e.qx, e.qy = qx, qy
			e.step = req.Tess / level
			e.dst = p.batches[batch]

			var edges [4]int
			regular := true
			for edge, d := range [4][2]int{{0, -1}, {0, 1}, {-1, 0}, {1, 0}} {
				edges[edge] = min(level, req.neighborLevel(qx+d[0], qy+d[1], level))
				if edges[edge] != level {
					regular = false
				}
			}

			flip := p.hf.QuadFlip(gx, gy)
			if regular {
				for j := 0; j < level; j++ {
					for i := 0; i < level; i++ {
						e.cell(i, j, flip)
					}
				}
			} else {
				for j := 1; j <= level-2; j++ {
					for i := 1; i <= level-2; i++ {
						e.cell(i, j, flip)
					}
				}
				for edge, t := range edges {
					e.stitch(edge, level, t)
				}
			}
			p.batches[batch] = e.dst
		}
	}

	var out IndexData
	total := 0
	for _, b := range p.batches[:numBatches] {
		total += len(b)
	}
	out.Indices = make([]uint32, 0, total)
	for i, b := range p.batches[:numBatches] {
		if len(b) == 0 {
			continue
		}
		out.Batches = append(out.Batches, BatchRange{
			Batch:        i,
			FirstIndex:   len(out.Indices),
			NumTriangles: len(b) / 3,
		})
		out.Indices = append(out.Indices, b...)
	}
	out.Triangles = len(out.Indices) / 3
	return out
}

// neighborLevel returns the level of component-local quad (x, y), which may lie
// outside the component. Missing neighbors report own.
func (r *IndexRequest) neighborLevel(x, y, own int) int {
	if x >= 0 && y >= 0 && x < r.SizeX && y < r.SizeY {
		return r.Levels.At(x, y)
	}
	if r.Neighbor == nil {
		return own
	}
	if l, ok := r.Neighbor(r.BaseX+x, r.BaseY+y); ok {
		return l
	}
	return own
}

// IndexSize returns the index width in bytes for a buffer addressing vertexCount vertices.
func IndexSize(vertexCount int) int {
	if vertexCount <= 1<<16 {
		return 2
	}
	return 4
}

// EncodeIndices serializes indices little-endian at the width IndexSize picks.
func EncodeIndices(indices []uint32, vertexCount int) []byte {
	size := IndexSize(vertexCount)
	out := make([]byte, len(indices)*size)
	if size == 2 {
		for i, idx := range indices {
			binary.LittleEndian.PutUint16(out[i*2:], uint16(idx))
		}
		return out
	}
	for i, idx := range indices {
		binary.LittleEndian.PutUint32(out[i*4:], idx)
	}
	return out
}
