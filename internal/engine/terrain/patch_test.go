package terrain

import (
	"math"
	"testing"
)

func near(a, b, eps float32) bool {
	return math.Abs(float64(a-b)) <= float64(eps)
}

func rampField(patches int, slope uint16) *HeightField {
	hf := NewHeightField(patches, patches)
	for y := 0; y <= patches; y++ {
		for x := 0; x <= patches; x++ {
			hf.SetHeight(x, y, HeightZero+uint16(x)*slope)
		}
	}
	return hf
}

func TestSampleCorners(t *testing.T) {
	hf := NewHeightField(3, 3)
	for y := 0; y <= 3; y++ {
		for x := 0; x <= 3; x++ {
			hf.SetHeight(x, y, uint16(1000+x*37+y*91))
		}
	}
	s := NewPatchSampler(8)
	p := hf.Patch(1, 1)

	tests := []struct {
		subX, subY int
		vx, vy     int
	}{
		{0, 0, 1, 1},
		{8, 0, 2, 1},
		{0, 8, 1, 2},
		{8, 8, 2, 2},
	}
	for _, tt := range tests {
		got := s.Sample(&p, tt.subX, tt.subY)
		want := float32(hf.Height(tt.vx, tt.vy))
		if got != want {
			t.Errorf("sample (%d,%d): expected %v, got %v", tt.subX, tt.subY, want, got)
		}
	}
}

func TestSampleFlat(t *testing.T) {
	hf := NewHeightField(2, 2)
	hf.Fill(40000)
	s := NewPatchSampler(16)
	p := hf.Patch(0, 0)
	for sy := 0; sy <= 16; sy++ {
		for sx := 0; sx <= 16; sx++ {
			if h := quantizeHeight(s.Sample(&p, sx, sy)); h != 40000 {
				t.Fatalf("expected 40000 at (%d,%d), got %d", sx, sy, h)
			}
		}
	}
}

func TestSampleReproducesLinearRamp(t *testing.T) {
	hf := rampField(4, 100)
	s := NewPatchSampler(4)
	p := hf.Patch(1, 1)
	for sx := 0; sx <= 4; sx++ {
		want := float32(HeightZero) + 100*(1+float32(sx)/4)
		if got := s.Sample(&p, sx, 2); !near(got, want, 0.05) {
			t.Errorf("sub %d: expected %v, got %v", sx, want, got)
		}
	}
}

func TestDerivativesOnRamp(t *testing.T) {
	hf := rampField(4, 100)
	s := NewPatchSampler(8)
	p := hf.Patch(1, 2)
	for _, sub := range []int{0, 3, 8} {
		if got := s.SampleDerivX(&p, sub, sub); !near(got, 100, 0.001) {
			t.Errorf("expected dX 100, got %v", got)
		}
		if got := s.SampleDerivY(&p, sub, sub); !near(got, 0, 0.001) {
			t.Errorf("expected dY 0, got %v", got)
		}
	}
}

func TestDerivativesIndependentOfTessellation(t *testing.T) {
	hf := NewHeightField(4, 4)
	for y := 0; y <= 4; y++ {
		for x := 0; x <= 4; x++ {
			hf.SetHeight(x, y, uint16(30000+x*x*50+y*120))
		}
	}
	p := hf.Patch(1, 1)
	coarse := NewPatchSampler(4)
	fine := NewPatchSampler(16)

	for _, sub := range []int{0, 1, 2, 4} {
		a := coarse.SampleDerivX(&p, sub, sub)
		b := fine.SampleDerivX(&p, sub*4, sub*4)
		if !near(a, b, 0.001) {
			t.Errorf("dX at %d/4: coarse %v, fine %v", sub, a, b)
		}
		a = coarse.SampleDerivY(&p, sub, 0)
		b = fine.SampleDerivY(&p, sub*4, 0)
		if !near(a, b, 0.001) {
			t.Errorf("dY at %d/4: coarse %v, fine %v", sub, a, b)
		}
	}
}

func TestDerivativesContinuousAcrossQuads(t *testing.T) {
	hf := NewHeightField(4, 4)
	for y := 0; y <= 4; y++ {
		for x := 0; x <= 4; x++ {
			hf.SetHeight(x, y, uint16(30000+x*x*50+y*y*30))
		}
	}
	s := NewPatchSampler(4)
	left := hf.Patch(1, 1)
	right := hf.Patch(2, 1)
	for sub := 0; sub <= 4; sub++ {
		a := s.SampleDerivX(&left, 4, sub)
		b := s.SampleDerivX(&right, 0, sub)
		if !near(a, b, 0.001) {
			t.Errorf("dX discontinuous at row %d: %v vs %v", sub, a, b)
		}
	}
}

func TestQuantize(t *testing.T) {
	tests := []struct {
		in   float32
		want uint16
	}{
		{-5, 0},
		{0.4, 0},
		{0.5, 1},
		{1000.49, 1000},
		{70000, 65535},
	}
	for _, tt := range tests {
		if got := quantizeHeight(tt.in); got != tt.want {
			t.Errorf("quantizeHeight(%v): expected %d, got %d", tt.in, tt.want, got)
		}
	}
	if got := quantizeGradient(-40000); got != -32768 {
		t.Errorf("expected -32768, got %d", got)
	}
	if got := quantizeGradient(-1.5); got != -1 {
		t.Errorf("expected -1, got %d", got)
	}
}

func TestLocalZ(t *testing.T) {
	if z := LocalZ(HeightZero); z != 0 {
		t.Errorf("expected 0, got %v", z)
	}
	if z := LocalZ(HeightZero + 256); z != 2 {
		t.Errorf("expected 2, got %v", z)
	}
	if h := RawHeight(-1); h != HeightZero-HeightUnitsPerLocal {
		t.Errorf("expected %d, got %d", HeightZero-HeightUnitsPerLocal, h)
	}
}

func TestHeightFieldClamping(t *testing.T) {
	hf := NewHeightField(2, 2)
	hf.SetHeight(0, 0, 1)
	hf.SetHeight(2, 2, 9)
	if hf.Height(-3, -1) != 1 {
		t.Errorf("expected clamped 1, got %d", hf.Height(-3, -1))
	}
	if hf.Height(5, 7) != 9 {
		t.Errorf("expected clamped 9, got %d", hf.Height(5, 7))
	}
	if hf.SizeX() != 3 || hf.SizeY() != 3 {
		t.Errorf("expected 3x3 samples, got %dx%d", hf.SizeX(), hf.SizeY())
	}
	if hf.QuadVisible(2, 0) {
		t.Error("quad outside grid must not be visible")
	}
	if hf.QuadFlip(0, 0) || !hf.QuadFlip(1, 0) {
		t.Error("expected checkerboard diagonals")
	}
}
