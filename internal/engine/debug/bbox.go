package debug

import (
	"github.com/Faultbox/midgard-terrain/internal/engine/terrain"
)

// boxEdges lists the corner pairs of the 12 box edges, using the corner
// numbering of terrain.Bounds.Corners.
var boxEdges = [12][2]int{
	{0, 1}, {2, 3}, {4, 5}, {6, 7}, // X
	{0, 2}, {1, 3}, {4, 6}, {5, 7}, // Y
	{0, 4}, {1, 5}, {2, 6}, {3, 7}, // Z
}

// BoundsLines returns 24 line vertices (x, y, z) outlining b, grown by padding.
func BoundsLines(b terrain.Bounds, padding float32) []float32 {
	for i := 0; i < 3; i++ {
		b.Min[i] -= padding
		b.Max[i] += padding
	}
	corners := b.Corners()
	out := make([]float32, 0, 24*3)
	for _, e := range boxEdges {
		for _, c := range e {
			out = append(out, corners[c].X(), corners[c].Y(), corners[c].Z())
		}
	}
	return out
}

// ComponentLines outlines the world bounds of every component.
func ComponentLines(t *terrain.Terrain, padding float32) []float32 {
	var out []float32
	for _, c := range t.Components() {
		out = append(out, BoundsLines(c.WorldBounds(), padding)...)
	}
	return out
}
