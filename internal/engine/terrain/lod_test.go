package terrain

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/midgard-terrain/internal/config"
)

func testSelector(minLevel, maxLevel int) *LodSelector {
	cfg := config.Default().Terrain
	cfg.MinTessellationLevel = minLevel
	cfg.MaxTessellationLevel = maxLevel
	return NewLodSelector(cfg)
}

func TestBuckets(t *testing.T) {
	s := testSelector(1, 16)
	want := [4]float32{2048, 4096, 8192, 16384}
	if s.Buckets != want {
		t.Errorf("expected buckets %v, got %v", want, s.Buckets)
	}
}

func TestLevelForDepth(t *testing.T) {
	tests := []struct {
		name     string
		min, max int
		scale    float32
		depth    float32
		want     int
	}{
		{"near", 1, 16, 1, 100, 16},
		{"bucket 0 edge", 1, 16, 1, 2048, 8},
		{"bucket 1", 1, 16, 1, 5000, 4},
		{"bucket 2", 1, 16, 1, 10000, 2},
		{"far", 1, 16, 1, 20000, 1},
		{"far clamped to min", 2, 16, 1, 20000, 2},
		{"cascade clamped to min", 4, 8, 1, 5000, 4},
		{"negative depth", 1, 16, 1, -5000, 4},
		{"scaled", 1, 16, 2, 1500, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testSelector(tt.min, tt.max)
			s.DistanceScale = tt.scale
			if got := s.LevelForDepth(tt.depth); got != tt.want {
				t.Errorf("expected level %d, got %d", tt.want, got)
			}
		})
	}
}

func TestLevelMonotonicAndPowerOfTwo(t *testing.T) {
	for _, r := range [][2]int{{1, 16}, {2, 8}, {1, 4}, {4, 16}} {
		s := testSelector(r[0], r[1])
		prev := 0
		for d := float32(40000); d >= 0; d -= 37 {
			l := s.LevelForDepth(d)
			if l < prev {
				t.Fatalf("range %v: level dropped from %d to %d at depth %v", r, prev, l, d)
			}
			if l < r[0] || l > r[1] || l&(l-1) != 0 {
				t.Fatalf("range %v: invalid level %d at depth %v", r, l, d)
			}
			prev = l
		}
	}
}

func lookDown(x, y, height float32) View {
	eye := mgl32.Vec3{x, y, height}
	return NewView(eye, mgl32.LookAtV(eye, mgl32.Vec3{x, y, 0}, mgl32.Vec3{0, 1, 0}))
}

func flatCenter(x, y int) mgl32.Vec3 {
	return mgl32.Vec3{float32(x) + 0.5, float32(y) + 0.5, 0}
}

func TestAccumulateTakesMaxAcrossViews(t *testing.T) {
	s := testSelector(1, 16)
	field := NewTessellationLevelField(2, 2, 1)

	s.Accumulate(field, lookDown(1, 1, 100000), flatCenter)
	if field.Max() != 1 {
		t.Fatalf("expected far view to need level 1, got %d", field.Max())
	}
	s.Accumulate(field, lookDown(1, 1, 10), flatCenter)
	s.Accumulate(field, lookDown(1, 1, 50000), flatCenter)
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			if field.At(x, y) != 16 {
				t.Errorf("expected level 16 at (%d,%d), got %d", x, y, field.At(x, y))
			}
		}
	}
}

func TestSmooth(t *testing.T) {
	s := testSelector(1, 16)
	field := NewTessellationLevelField(4, 1, 1)
	field.Set(0, 0, 16)
	s.Smooth(field)

	want := []int{16, 8, 4, 2}
	for x, w := range want {
		if got := field.At(x, 0); got != w {
			t.Errorf("quad %d: expected %d, got %d", x, w, got)
		}
	}
}

func TestSmoothStrongestNeighbour(t *testing.T) {
	s := testSelector(1, 16)
	field := NewTessellationLevelField(3, 3, 1)
	field.Set(0, 1, 16)
	field.Set(2, 1, 4)
	field.Set(1, 1, 2)
	s.Smooth(field)

	// Half of the strongest neighbour, not the neighbour's own level.
	if got := field.At(1, 1); got != 8 {
		t.Errorf("expected centre level 8, got %d", got)
	}
	if got := field.At(2, 1); got != 4 {
		t.Errorf("expected right level 4 kept, got %d", got)
	}
	if got := field.At(1, 0); got != 4 {
		t.Errorf("expected level 4 next to the raised centre, got %d", got)
	}
}

func TestCheckInterval(t *testing.T) {
	s := testSelector(1, 16)
	sq := s.CheckDistanceSq
	tests := []struct {
		distSq float32
		want   uint64
	}{
		{0, 1},
		{sq * 0.5, 1},
		{sq * 3, 3},
		{sq * 7.9, 7},
	}
	for _, tt := range tests {
		if got := s.CheckInterval(tt.distSq); got != tt.want {
			t.Errorf("distSq %v: expected %d, got %d", tt.distSq, tt.want, got)
		}
	}
}

func TestShouldCheckCadence(t *testing.T) {
	s := testSelector(1, 16)
	far := s.CheckDistanceSq * 3
	st := &lodState{}

	if !s.ShouldCheck(st, 1, true, far) {
		t.Error("first frame must check")
	}
	if s.ShouldCheck(st, 2, true, far) {
		t.Error("frame 2 must skip at interval 3")
	}
	if !s.ShouldCheck(st, 3, true, far) {
		t.Error("frame 3 must check at interval 3")
	}
	if !s.ShouldCheck(st, 4, false, far) {
		t.Error("visibility change must check")
	}
	if s.ShouldCheck(st, 5, false, far) {
		t.Error("frame 5 must skip")
	}

	offset := &lodState{checked: true, lastVisible: true, frameOffset: 1}
	if !s.ShouldCheck(offset, 2, true, far) {
		t.Error("offset 1 must check on frame 2")
	}

	s.EditorMode = true
	if !s.ShouldCheck(st, 5, false, far) {
		t.Error("editor mode must always check")
	}
}

func TestStatic(t *testing.T) {
	if !testSelector(4, 4).Static() {
		t.Error("expected min == max to be static")
	}
	if testSelector(1, 4).Static() {
		t.Error("expected 1..4 not to be static")
	}
}

func TestTessellationLevelField(t *testing.T) {
	f := NewTessellationLevelField(3, 2, 2)
	f.Raise(1, 1, 8)
	f.Raise(1, 1, 4)
	if f.At(1, 1) != 8 {
		t.Errorf("expected 8, got %d", f.At(1, 1))
	}
	if f.Max() != 8 {
		t.Errorf("expected max 8, got %d", f.Max())
	}
	h := f.Histogram()
	if h[2] != 5 || h[8] != 1 {
		t.Errorf("unexpected histogram %v", h)
	}

	g := NewTessellationLevelField(3, 2, 1)
	if g.Equal(f) {
		t.Error("fields should differ")
	}
	g.CopyFrom(f)
	if !g.Equal(f) {
		t.Error("fields should match after copy")
	}
	if g.Equal(NewTessellationLevelField(2, 3, 2)) {
		t.Error("fields of different size must not be equal")
	}
}
