package terrain

// HeightField is the raw terrain data: a grid of 16-bit height samples, one
// 8-bit alpha map per declared layer, and per-quad visibility and diagonal flags.
// It is written by editing tools and read-only to the mesh code.
type HeightField struct {
	PatchesX int
	PatchesY int

	heights   []uint16
	alphaMaps [][]uint8
	visible   []bool
	flip      []bool
}

// NewHeightField creates a flat heightfield of patchesX*patchesY quads.
// Quad diagonals alternate in a checkerboard.
func NewHeightField(patchesX, patchesY int) *HeightField {
	if patchesX < 1 {
		patchesX = 1
	}
	if patchesY < 1 {
		patchesY = 1
	}

	hf := &HeightField{
		PatchesX: patchesX,
		PatchesY: patchesY,
		heights:  make([]uint16, (patchesX+1)*(patchesY+1)),
		visible:  make([]bool, patchesX*patchesY),
		flip:     make([]bool, patchesX*patchesY),
	}
	for i := range hf.heights {
		hf.heights[i] = HeightZero
	}
	for y := 0; y < patchesY; y++ {
		for x := 0; x < patchesX; x++ {
			hf.visible[y*patchesX+x] = true
			hf.flip[y*patchesX+x] = (x+y)&1 == 1
		}
	}
	return hf
}

// SizeX returns the number of samples per row (PatchesX+1).
func (hf *HeightField) SizeX() int { return hf.PatchesX + 1 }

// SizeY returns the number of sample rows (PatchesY+1).
func (hf *HeightField) SizeY() int { return hf.PatchesY + 1 }

func (hf *HeightField) clampVertex(x, y int) (int, int) {
	if x < 0 {
		x = 0
	} else if x > hf.PatchesX {
		x = hf.PatchesX
	}
	if y < 0 {
		y = 0
	} else if y > hf.PatchesY {
		y = hf.PatchesY
	}
	return x, y
}

// Height returns the sample at (x, y), clamping coordinates to the grid.
func (hf *HeightField) Height(x, y int) uint16 {
	x, y = hf.clampVertex(x, y)
	return hf.heights[y*hf.SizeX()+x]
}

// SetHeight writes a sample. Out-of-range writes are ignored.
func (hf *HeightField) SetHeight(x, y int, h uint16) {
	if x < 0 || y < 0 || x > hf.PatchesX || y > hf.PatchesY {
		return
	}
	hf.heights[y*hf.SizeX()+x] = h
}

// Fill sets every sample to h.
func (hf *HeightField) Fill(h uint16) {
	for i := range hf.heights {
		hf.heights[i] = h
	}
}

func (hf *HeightField) quadIndex(x, y int) (int, bool) {
	if x < 0 || y < 0 || x >= hf.PatchesX || y >= hf.PatchesY {
		return 0, false
	}
	return y*hf.PatchesX + x, true
}

// QuadVisible reports whether quad (x, y) is rendered. Quads outside the grid are not.
func (hf *HeightField) QuadVisible(x, y int) bool {
	i, ok := hf.quadIndex(x, y)
	return ok && hf.visible[i]
}

// SetQuadVisible marks a quad as rendered or as a hole.
func (hf *HeightField) SetQuadVisible(x, y int, visible bool) {
	if i, ok := hf.quadIndex(x, y); ok {
		hf.visible[i] = visible
	}
}

// QuadFlip reports whether quad (x, y) splits along its (1,0)-(0,1) diagonal.
func (hf *HeightField) QuadFlip(x, y int) bool {
	i, ok := hf.quadIndex(x, y)
	return ok && hf.flip[i]
}

// SetQuadFlip overrides the diagonal of a quad.
func (hf *HeightField) SetQuadFlip(x, y int, flip bool) {
	if i, ok := hf.quadIndex(x, y); ok {
		hf.flip[i] = flip
	}
}

// AddAlphaMap appends a zeroed layer alpha map and returns its index.
func (hf *HeightField) AddAlphaMap() int {
	hf.alphaMaps = append(hf.alphaMaps, make([]uint8, len(hf.heights)))
	return len(hf.alphaMaps) - 1
}

// NumAlphaMaps returns the number of layer alpha maps.
func (hf *HeightField) NumAlphaMaps() int { return len(hf.alphaMaps) }

// Alpha returns the alpha of map i at vertex (x, y). Missing maps read as zero.
func (hf *HeightField) Alpha(i, x, y int) uint8 {
	if i < 0 || i >= len(hf.alphaMaps) {
		return 0
	}
	x, y = hf.clampVertex(x, y)
	return hf.alphaMaps[i][y*hf.SizeX()+x]
}

// SetAlpha writes one alpha sample.
func (hf *HeightField) SetAlpha(i, x, y int, a uint8) {
	if i < 0 || i >= len(hf.alphaMaps) || x < 0 || y < 0 || x > hf.PatchesX || y > hf.PatchesY {
		return
	}
	hf.alphaMaps[i][y*hf.SizeX()+x] = a
}

// Patch returns the 4x4 sample neighborhood of quad (x, y), clamped at the borders.
func (hf *HeightField) Patch(x, y int) TerrainPatch {
	p := TerrainPatch{X: x, Y: y}
	for j := 0; j < 4; j++ {
		for i := 0; i < 4; i++ {
			p.Heights[j][i] = float32(hf.Height(x+i-1, y+j-1))
		}
	}
	return p
}

// Slope returns the local-space gradient magnitude at vertex (x, y) from central differences.
func (hf *HeightField) Slope(x, y int) float32 {
	dx := (LocalZ(hf.Height(x+1, y)) - LocalZ(hf.Height(x-1, y))) / 2
	dy := (LocalZ(hf.Height(x, y+1)) - LocalZ(hf.Height(x, y-1))) / 2
	return sqrtf(dx*dx + dy*dy)
}
