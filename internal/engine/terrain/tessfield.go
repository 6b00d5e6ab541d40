package terrain

// TessellationLevelField stores one tessellation level per quad of a component.
// Levels are powers of two.
type TessellationLevelField struct {
	SizeX, SizeY int
	levels       []uint8
}

// NewTessellationLevelField creates a field with every quad at level.
func NewTessellationLevelField(sizeX, sizeY, level int) *TessellationLevelField {
	f := &TessellationLevelField{
		SizeX:  sizeX,
		SizeY:  sizeY,
		levels: make([]uint8, sizeX*sizeY),
	}
	f.Fill(level)
	return f
}

// At returns the level of quad (x, y) in component-local coordinates.
func (f *TessellationLevelField) At(x, y int) int {
	return int(f.levels[y*f.SizeX+x])
}

// Set writes the level of quad (x, y).
func (f *TessellationLevelField) Set(x, y, level int) {
	f.levels[y*f.SizeX+x] = uint8(level)
}

// Raise sets quad (x, y) to level if that is higher than its current level.
func (f *TessellationLevelField) Raise(x, y, level int) {
	i := y*f.SizeX + x
	if uint8(level) > f.levels[i] {
		f.levels[i] = uint8(level)
	}
}

// Fill sets every quad to level.
func (f *TessellationLevelField) Fill(level int) {
	for i := range f.levels {
		f.levels[i] = uint8(level)
	}
}

// Max returns the highest level in the field.
func (f *TessellationLevelField) Max() int {
	m := uint8(0)
	for _, l := range f.levels {
		if l > m {
			m = l
		}
	}
	return int(m)
}

// Equal reports whether both fields hold the same levels.
func (f *TessellationLevelField) Equal(o *TessellationLevelField) bool {
	if f.SizeX != o.SizeX || f.SizeY != o.SizeY {
		return false
	}
	for i := range f.levels {
		if f.levels[i] != o.levels[i] {
			return false
		}
	}
	return true
}

// CopyFrom overwrites f with the levels of o. Sizes must match.
func (f *TessellationLevelField) CopyFrom(o *TessellationLevelField) {
	copy(f.levels, o.levels)
}

// Histogram counts quads per level.
func (f *TessellationLevelField) Histogram() map[int]int {
	h := make(map[int]int)
	for _, l := range f.levels {
		h[int(l)]++
	}
	return h
}
