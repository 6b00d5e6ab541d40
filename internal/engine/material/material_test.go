package material

import (
	"strings"
	"testing"

	"github.com/Faultbox/midgard-terrain/internal/config"
)

// gridWeights is a WeightSource over a small vertex grid.
type gridWeights struct {
	width, height int
	weights       [][]uint8 // [material][y*width+x]
}

func newGridWeights(materials, width, height int) *gridWeights {
	g := &gridWeights{width: width, height: height}
	for i := 0; i < materials; i++ {
		g.weights = append(g.weights, make([]uint8, width*height))
	}
	return g
}

func (g *gridWeights) NumWeightedMaterials() int { return len(g.weights) }

func (g *gridWeights) MaterialWeight(m, x, y int) uint8 {
	if x < 0 || y < 0 || x >= g.width || y >= g.height {
		return 0
	}
	return g.weights[m][y*g.width+x]
}

func (g *gridWeights) set(m, x, y int, w uint8) { g.weights[m][y*g.width+x] = w }

func TestMaskBits(t *testing.T) {
	m := MaskOf(0, 5, 64, 200)
	if m.Count() != 4 {
		t.Errorf("expected 4 bits, got %d", m.Count())
	}
	got := m.Bits()
	want := []int{0, 5, 64, 200}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected bit %d, got %d", want[i], got[i])
		}
	}
	if !m.Has(64) || m.Has(63) {
		t.Error("Has mismatch around word boundary")
	}
	if m.String() != "{0,5,64,200}" {
		t.Errorf("expected {0,5,64,200}, got %s", m.String())
	}
	if !m.Contains(MaskOf(5, 200)) || m.Contains(MaskOf(1)) {
		t.Error("Contains mismatch")
	}
	m.Set(-1)
	m.Set(MaxWeightedMaterials)
	if m.Count() != 4 {
		t.Errorf("out-of-range Set changed mask: %s", m)
	}
}

func TestDiscoverMasksTwoQuads(t *testing.T) {
	// Quads A (0,0) and B (1,0) on a 3x2 vertex grid.
	// A activates {0,1}, B activates {1,2}; the shared edge carries material 1 only.
	g := newGridWeights(3, 3, 2)
	g.set(0, 0, 0, 255)
	g.set(0, 0, 1, 255)
	for y := 0; y < 2; y++ {
		g.set(1, 1, y, 255)
	}
	g.set(2, 2, 0, 255)
	g.set(2, 2, 1, 255)

	set := DiscoverMasks(g, 0, 0, 2, 1)
	if len(set.Masks) != 2 {
		t.Fatalf("expected 2 masks, got %d: %v", len(set.Masks), set.Masks)
	}
	if set.Masks[0] != MaskOf(0, 1) {
		t.Errorf("expected first mask {0,1}, got %s", set.Masks[0])
	}
	if set.Masks[1] != MaskOf(1, 2) {
		t.Errorf("expected second mask {1,2}, got %s", set.Masks[1])
	}
	if set.Index(MaskOf(0, 1, 2)) != -1 {
		t.Error("combined mask {0,1,2} must not be discovered")
	}
	if set.Batch(0, 0) != 0 || set.Batch(1, 0) != 1 {
		t.Errorf("expected batches 0,1, got %d,%d", set.Batch(0, 0), set.Batch(1, 0))
	}
}

func TestDiscoverMasksCoverEveryQuad(t *testing.T) {
	g := newGridWeights(4, 5, 5)
	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			g.set((x+y)%4, x, y, uint8(10*(x+1)))
		}
	}
	set := DiscoverMasks(g, 0, 0, 4, 4)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			batch := set.Masks[set.Batch(x, y)]
			if !batch.Contains(QuadMask(g, x, y)) {
				t.Errorf("quad (%d,%d) mask %s not covered by batch %s", x, y, QuadMask(g, x, y), batch)
			}
		}
	}
}

func TestQuadMaskFallback(t *testing.T) {
	g := newGridWeights(2, 2, 2)
	if m := QuadMask(g, 0, 0); m != MaskOf(0) {
		t.Errorf("expected fallback mask {0}, got %s", m)
	}
}

func TestWeightChannelMapping(t *testing.T) {
	tests := []struct {
		index   int
		texture int
		channel int
	}{
		{0, 0, 2}, // B
		{1, 0, 1}, // G
		{2, 0, 0}, // R
		{3, 0, 3}, // A
		{4, 1, 2},
		{7, 1, 3},
		{9, 2, 1},
	}
	for _, tt := range tests {
		if got := WeightTexture(tt.index); got != tt.texture {
			t.Errorf("index %d: expected texture %d, got %d", tt.index, tt.texture, got)
		}
		if got := WeightChannelOf(tt.index); got != tt.channel {
			t.Errorf("index %d: expected channel %d, got %d", tt.index, tt.channel, got)
		}
	}
}

func testMaterials() []WeightedMaterial {
	return []WeightedMaterial{
		{Material: TexturedMaterial("grass", "grass")},
		{Material: TexturedMaterial("rock", "rock")},
		{Material: TexturedMaterial("sand", "sand")},
	}
}

func TestCompileSingleMaterial(t *testing.T) {
	c := NewCompiler(config.Default().Material)
	c.SetMaterials(testMaterials())

	cm := c.Get(MaskOf(1))
	if _, ok := cm.Diffuse.(TextureSample); !ok {
		t.Fatalf("expected pass-through texture sample, got %T", cm.Diffuse)
	}
	if len(cm.WeightTextures) != 0 {
		t.Errorf("expected no weight textures, got %v", cm.WeightTextures)
	}
	if cm.TextureCount != 1 {
		t.Errorf("expected 1 texture, got %d", cm.TextureCount)
	}
	if c.Get(MaskOf(1)) != cm {
		t.Error("expected cached compiled material")
	}
}

func TestCompileHighlighted(t *testing.T) {
	c := NewCompiler(config.Default().Material)
	mats := testMaterials()
	mats[0].Highlighted = true
	c.SetMaterials(mats)

	cm := c.Get(MaskOf(0))
	if _, ok := cm.Diffuse.(Add); !ok {
		t.Fatalf("expected tinted expression, got %T", cm.Diffuse)
	}
	if !strings.Contains(cm.Diffuse.GLSL(), TextureUniform("grass")) {
		t.Error("tinted expression lost the material texture")
	}
}

func TestCompileMultiMaterial(t *testing.T) {
	c := NewCompiler(config.Default().Material)
	c.SetMaterials(testMaterials())

	cm := c.Get(MaskOf(0, 2))
	sum, ok := cm.Diffuse.(Add)
	if !ok {
		t.Fatalf("expected weighted sum, got %T", cm.Diffuse)
	}
	if len(sum.Terms) != 2 {
		t.Fatalf("expected 2 terms, got %d", len(sum.Terms))
	}
	first := sum.Terms[0].(Mul).A.(WeightChannel)
	if first.Texture != 0 || first.Channel != 2 {
		t.Errorf("expected material 0 in texture 0 channel B, got %+v", first)
	}
	second := sum.Terms[1].(Mul).A.(WeightChannel)
	if second.Texture != 0 || second.Channel != 0 {
		t.Errorf("expected material 2 in texture 0 channel R, got %+v", second)
	}
	// One weight texture plus grass and sand.
	if cm.TextureCount != 3 {
		t.Errorf("expected 3 textures, got %d", cm.TextureCount)
	}
}

func TestCompileBudgetPlaceholder(t *testing.T) {
	cfg := config.Default().Material
	cfg.MaxTextureCountPerBatch = 2
	c := NewCompiler(cfg)
	c.SetMaterials(testMaterials())

	cm := c.Get(MaskOf(0, 1, 2))
	if !cm.Placeholder {
		t.Fatal("expected placeholder")
	}
	k, ok := cm.Diffuse.(Constant)
	if !ok || k.Value != ErrorColor {
		t.Errorf("expected error color constant, got %v", cm.Diffuse)
	}
	if len(cm.Textures) != 0 || len(cm.WeightTextures) != 0 {
		t.Error("placeholder must not sample textures")
	}

	if c.Get(MaskOf(0)).Placeholder {
		t.Error("single material fits the budget")
	}
}

func TestCompileNormalOverride(t *testing.T) {
	cfg := config.Default().Material
	cfg.NormalMapLayerIndex = 2
	c := NewCompiler(cfg)
	mats := testMaterials()
	mats[2].Material.Normal = TextureSample{Texture: "sand_n"}
	c.SetMaterials(mats)

	cm := c.Get(MaskOf(0, 1))
	ts, ok := cm.Normal.(TextureSample)
	if !ok || ts.Texture != "sand_n" {
		t.Fatalf("expected normal from layer 2, got %v", cm.Normal)
	}
	// One weight texture, grass, rock, sand + sand_n from the override layer.
	if cm.TextureCount != 5 {
		t.Errorf("expected 5 textures, got %d", cm.TextureCount)
	}
}

func TestNormalOverrideIndexesWeightedMaterials(t *testing.T) {
	cfg := config.Default().Material
	cfg.NormalMapLayerIndex = 1
	c := NewCompiler(cfg)
	mats := testMaterials()
	mats[1].Material.Normal = TextureSample{Texture: "rock_n"}
	c.SetMaterials(mats)

	// Material 1 is not in the mask, its normal still replaces grass's flat one.
	cm := c.Get(MaskOf(0))
	ts, ok := cm.Normal.(TextureSample)
	if !ok || ts.Texture != "rock_n" {
		t.Fatalf("expected normal from weighted material 1, got %v", cm.Normal)
	}
	// grass + rock, rock_n from the override material.
	if cm.TextureCount != 3 {
		t.Errorf("expected 3 textures, got %d", cm.TextureCount)
	}
}

func TestCompileMissingMaterial(t *testing.T) {
	c := NewCompiler(config.Default().Material)
	c.SetMaterials([]WeightedMaterial{{Material: nil}})

	cm := c.Get(MaskOf(0))
	if cm.Placeholder {
		t.Error("missing material must fall back, not error")
	}
	k, ok := cm.Diffuse.(Constant)
	if !ok || k.Value != DefaultMaterial().Diffuse.(Constant).Value {
		t.Errorf("expected default material diffuse, got %v", cm.Diffuse)
	}

	// Index beyond the list also falls back.
	if c.Get(MaskOf(7)).Placeholder {
		t.Error("out-of-range material must fall back")
	}
}

func TestCompilerReset(t *testing.T) {
	c := NewCompiler(config.Default().Material)
	c.SetMaterials(testMaterials())
	g := c.Generation()
	c.Get(MaskOf(0))
	c.Get(MaskOf(1))
	if c.Cached() != 2 {
		t.Errorf("expected 2 cached, got %d", c.Cached())
	}
	c.Reset()
	if c.Cached() != 0 {
		t.Errorf("expected empty cache, got %d", c.Cached())
	}
	if c.Generation() == g {
		t.Error("expected generation to change")
	}
}

func TestFragmentSource(t *testing.T) {
	c := NewCompiler(config.Default().Material)
	c.SetMaterials(testMaterials())
	src := c.Get(MaskOf(0, 1)).FragmentSource()

	for _, want := range []string{
		"#version 410 core",
		"uniform sampler2D u_tex_grass;",
		"uniform sampler2D u_tex_rock;",
		"uniform sampler2D u_weight0;",
		"texture(u_weight0, v_weightUV).b",
		"texture(u_weight0, v_weightUV).g",
		"FragColor",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("expected fragment source to contain %q", want)
		}
	}
}

func TestConstantGLSL(t *testing.T) {
	got := Constant{Value: [4]float32{1, 0.5, 0, 1}}.GLSL()
	if got != "vec4(1.0, 0.5, 0.0, 1.0)" {
		t.Errorf("expected vec4(1.0, 0.5, 0.0, 1.0), got %s", got)
	}
}

func TestTextureUniformSanitized(t *testing.T) {
	if got := TextureUniform("dirt/01.tga"); got != "u_tex_dirt_01_tga" {
		t.Errorf("expected u_tex_dirt_01_tga, got %s", got)
	}
}

func TestPackWeightTextures(t *testing.T) {
	g := newGridWeights(5, 2, 2)
	g.set(0, 1, 0, 10)
	g.set(2, 1, 0, 30)
	g.set(4, 0, 1, 50)

	tex := PackWeightTextures(g, 2, 2)
	if len(tex) != 2 {
		t.Fatalf("expected 2 textures, got %d", len(tex))
	}
	px := tex[0].RGBAAt(1, 0)
	if px.B != 10 || px.R != 30 || px.G != 0 {
		t.Errorf("expected B=10 R=30 G=0, got %+v", px)
	}
	if tex[1].RGBAAt(0, 1).B != 50 {
		t.Errorf("expected material 4 in texture 1 channel B, got %+v", tex[1].RGBAAt(0, 1))
	}
}

type fakePrograms struct {
	next     Program
	compiled int
	deleted  []Program
	fail     bool
}

func (f *fakePrograms) Compile(*CompiledMaterial) Program {
	f.compiled++
	if f.fail {
		return InvalidProgram
	}
	f.next++
	return f.next
}

func (f *fakePrograms) Delete(p Program) { f.deleted = append(f.deleted, p) }

func TestProgramCache(t *testing.T) {
	c := NewCompiler(config.Default().Material)
	c.SetMaterials(testMaterials())
	backend := &fakePrograms{}
	pc := NewProgramCache(c, backend)

	p1, _ := pc.Program(MaskOf(0))
	p2, _ := pc.Program(MaskOf(0))
	if p1 != p2 || backend.compiled != 1 {
		t.Errorf("expected one compile, got %d (programs %d, %d)", backend.compiled, p1, p2)
	}

	c.Reset()
	p3, _ := pc.Program(MaskOf(0))
	if len(backend.deleted) != 1 || backend.deleted[0] != p1 {
		t.Errorf("expected program %d deleted after reset, got %v", p1, backend.deleted)
	}
	if p3 == p1 {
		t.Error("expected a fresh program after reset")
	}
}

func TestProgramCacheInvalid(t *testing.T) {
	c := NewCompiler(config.Default().Material)
	backend := &fakePrograms{fail: true}
	pc := NewProgramCache(c, backend)

	p, _ := pc.Program(MaskOf(0))
	if p != InvalidProgram {
		t.Errorf("expected InvalidProgram, got %d", p)
	}
	pc.Program(MaskOf(0))
	if backend.compiled != 1 {
		t.Errorf("expected failed compile to be remembered, got %d compiles", backend.compiled)
	}
	pc.Clear()
	if len(backend.deleted) != 0 {
		t.Error("invalid programs must not be deleted")
	}
}
