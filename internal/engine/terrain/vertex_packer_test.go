package terrain

import (
	"bytes"
	"testing"
)

func bumpyField(patches int) *HeightField {
	hf := NewHeightField(patches, patches)
	for y := 0; y <= patches; y++ {
		for x := 0; x <= patches; x++ {
			hf.SetHeight(x, y, uint16(HeightZero+((x*37+y*91)%17)*50))
		}
	}
	return hf
}

func TestStrides(t *testing.T) {
	tests := []struct {
		mode MorphMode
		want int
	}{
		{MorphNone, 12},
		{MorphHeight, 16},
		{MorphHeightGradient, 20},
	}
	for _, tt := range tests {
		if got := tt.mode.Stride(); got != tt.want {
			t.Errorf("mode %d: expected stride %d, got %d", tt.mode, tt.want, got)
		}
	}
}

func TestPackLayout(t *testing.T) {
	hf := NewHeightField(2, 2)
	hf.Fill(HeightZero + 3*HeightUnitsPerLocal)
	p := NewVertexBufferPacker(hf, NewPatchSampler(4), MorphNone, 2, 2)

	if got := p.Capacity(2, 2); got != 81*12 {
		t.Errorf("expected capacity %d, got %d", 81*12, got)
	}

	data := p.Pack(0, 0, 2, 2, 4)
	if len(data) != 81*12 {
		t.Fatalf("expected %d bytes, got %d", 81*12, len(data))
	}

	// Grid point (5, 2): second quad in X, sub (1, 2) of 4.
	v := DecodeVertex(data, MorphNone, 2*9+5)
	if v.PatchX != 1 || v.PatchY != 0 || v.SubX != 64 || v.SubY != 128 {
		t.Errorf("expected patch (1,0) sub (64,128), got (%d,%d) sub (%d,%d)", v.PatchX, v.PatchY, v.SubX, v.SubY)
	}
	if v.Height != HeightZero+3*HeightUnitsPerLocal {
		t.Errorf("expected height %d, got %d", HeightZero+3*HeightUnitsPerLocal, v.Height)
	}
	if v.GradX != 0 || v.GradY != 0 {
		t.Errorf("expected flat gradient, got (%d,%d)", v.GradX, v.GradY)
	}

	// The last point sits on the far corner of the component.
	last := DecodeVertex(data, MorphNone, 80)
	if last.PatchX != 2 || last.PatchY != 2 || last.SubX != 0 || last.SubY != 0 {
		t.Errorf("unexpected far corner %+v", last)
	}
}

func TestPackLowerTessellationUsesPrefix(t *testing.T) {
	hf := bumpyField(2)
	p := NewVertexBufferPacker(hf, NewPatchSampler(4), MorphHeight, 2, 2)
	data := p.Pack(0, 0, 2, 2, 1)
	if len(data) != 9*16 {
		t.Fatalf("expected %d bytes, got %d", 9*16, len(data))
	}
	for i := 0; i < 9; i++ {
		v := DecodeVertex(data, MorphHeight, i)
		x, y := i%3, i/3
		if v.Height != hf.Height(x, y) {
			t.Errorf("vertex (%d,%d): expected height %d, got %d", x, y, hf.Height(x, y), v.Height)
		}
		if v.Transition != 0 || v.MorphHeight != v.Height {
			t.Errorf("level-1 vertex (%d,%d) must not morph: %+v", x, y, v)
		}
	}
}

func TestTransitionIndex(t *testing.T) {
	tests := []struct {
		gx, gy, tess int
		want         int
	}{
		{0, 0, 4, 0},
		{4, 8, 4, 0},
		{2, 0, 4, 1},
		{1, 0, 4, 2},
		{2, 1, 4, 2},
		{1, 0, 16, 4},
		{8, 0, 16, 1},
		{4, 12, 16, 2},
	}
	for _, tt := range tests {
		if got := TransitionIndex(tt.gx, tt.gy, tt.tess); got != tt.want {
			t.Errorf("(%d,%d) at %d: expected %d, got %d", tt.gx, tt.gy, tt.tess, tt.want, got)
		}
	}
}

func TestMorphMidpoint(t *testing.T) {
	hf := bumpyField(2)
	p := NewVertexBufferPacker(hf, NewPatchSampler(4), MorphHeightGradient, 2, 2)
	data := p.Pack(0, 0, 2, 2, 4)
	const row = 9

	at := func(x, y int) PackedVertex { return DecodeVertex(data, MorphHeightGradient, y*row+x) }

	tests := []struct {
		name   string
		x, y   int
		k      uint8
		ax, ay int
		bx, by int
	}{
		{"horizontal fine", 1, 0, 2, 0, 0, 2, 0},
		{"horizontal coarse", 2, 0, 1, 0, 0, 4, 0},
		{"vertical fine", 0, 3, 2, 0, 2, 0, 4},
		{"vertical coarse", 4, 2, 1, 4, 0, 4, 4},
		{"diagonal", 2, 2, 1, 0, 0, 4, 4},
		{"flipped diagonal", 6, 2, 1, 8, 0, 4, 4},
		{"fine diagonal", 1, 1, 2, 0, 0, 2, 2},
		{"fine flipped diagonal", 5, 1, 2, 6, 0, 4, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := at(tt.x, tt.y)
			a, b := at(tt.ax, tt.ay), at(tt.bx, tt.by)
			if v.Transition != tt.k {
				t.Errorf("expected transition %d, got %d", tt.k, v.Transition)
			}
			want := uint16((uint32(a.Height) + uint32(b.Height)) / 2)
			if v.MorphHeight != want {
				t.Errorf("expected morph height %d, got %d", want, v.MorphHeight)
			}
			wantGX := int16((int32(a.GradX) + int32(b.GradX)) / 2)
			if v.MorphGradX != wantGX {
				t.Errorf("expected morph gradient X %d, got %d", wantGX, v.MorphGradX)
			}
		})
	}

	corner := at(4, 4)
	if corner.Transition != 0 || corner.MorphHeight != corner.Height {
		t.Errorf("quad corner must morph to itself: %+v", corner)
	}
}

func TestPackIdempotent(t *testing.T) {
	hf := bumpyField(4)
	p := NewVertexBufferPacker(hf, NewPatchSampler(8), MorphHeightGradient, 4, 4)
	first := append([]byte(nil), p.Pack(0, 0, 4, 4, 8)...)
	second := p.Pack(0, 0, 4, 4, 8)
	if !bytes.Equal(first, second) {
		t.Error("repacking identical input produced different bytes")
	}
}

func TestPackOffsetComponent(t *testing.T) {
	hf := bumpyField(4)
	p := NewVertexBufferPacker(hf, NewPatchSampler(2), MorphNone, 2, 2)
	data := p.Pack(2, 2, 2, 2, 2)
	v := DecodeVertex(data, MorphNone, 0)
	if v.Height != hf.Height(2, 2) {
		t.Errorf("expected height of vertex (2,2) %d, got %d", hf.Height(2, 2), v.Height)
	}
	if v.PatchX != 0 || v.PatchY != 0 {
		t.Errorf("expected component-relative patch (0,0), got (%d,%d)", v.PatchX, v.PatchY)
	}
}
