package material

import (
	"strconv"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-terrain/internal/config"
	"github.com/Faultbox/midgard-terrain/internal/logger"
)

// CompiledMaterial is the shading of one material combination.
type CompiledMaterial struct {
	Mask    Mask
	Diffuse Expression
	Normal  Expression

	// Textures are the material textures sampled, WeightTextures the packed
	// weight textures read.
	Textures       []string
	WeightTextures []int

	// TextureCount is the budgeted number of simultaneous textures.
	TextureCount int
	// Placeholder is set when the combination exceeded the texture budget.
	Placeholder bool
}

// Compiler builds and caches one CompiledMaterial per mask.
type Compiler struct {
	maxTextures int
	normalLayer int
	fallback    *Material

	mu         sync.Mutex
	materials  []WeightedMaterial
	cache      map[Mask]*CompiledMaterial
	generation atomic.Uint64
}

// NewCompiler creates a compiler with the given budget settings.
func NewCompiler(cfg config.MaterialConfig) *Compiler {
	return &Compiler{
		maxTextures: max(cfg.MaxTextureCountPerBatch, 1),
		normalLayer: cfg.NormalMapLayerIndex,
		fallback:    DefaultMaterial(),
		cache:       make(map[Mask]*CompiledMaterial),
	}
}

// SetFallback replaces the material used for missing references.
func (c *Compiler) SetFallback(m *Material) {
	if m == nil {
		m = DefaultMaterial()
	}
	c.mu.Lock()
	c.fallback = m
	c.mu.Unlock()
	c.Reset()
}

// SetMaterials replaces the weighted material list and drops every compiled material.
func (c *Compiler) SetMaterials(materials []WeightedMaterial) {
	if len(materials) > MaxWeightedMaterials {
		logger.Warn("too many weighted materials, extra ones ignored",
			zap.Int("count", len(materials)),
			zap.Int("max", MaxWeightedMaterials))
		materials = materials[:MaxWeightedMaterials]
	}
	c.mu.Lock()
	c.materials = append([]WeightedMaterial(nil), materials...)
	c.mu.Unlock()
	c.Reset()
}

// Materials returns the weighted material list.
func (c *Compiler) Materials() []WeightedMaterial {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]WeightedMaterial(nil), c.materials...)
}

// Reset drops every cached compiled material.
func (c *Compiler) Reset() {
	c.mu.Lock()
	c.cache = make(map[Mask]*CompiledMaterial)
	c.mu.Unlock()
	c.generation.Add(1)
}

// Generation changes every time the cache is dropped.
func (c *Compiler) Generation() uint64 {
	return c.generation.Load()
}

// Cached returns the number of compiled materials in the cache.
func (c *Compiler) Cached() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}

// Get returns the compiled material for mask, compiling it on first use.
func (c *Compiler) Get(mask Mask) *CompiledMaterial {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cm, ok := c.cache[mask]; ok {
		return cm
	}
	cm := c.compile(mask)
	c.cache[mask] = cm
	return cm
}

// Compile builds the material for mask without touching the cache.
func (c *Compiler) Compile(mask Mask) *CompiledMaterial {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.compile(mask)
}

// material returns weighted material i, substituting the fallback when it is missing.
func (c *Compiler) material(i int) WeightedMaterial {
	if i >= 0 && i < len(c.materials) && c.materials[i].Material != nil {
		return c.materials[i]
	}
	logger.WarnOnce("material-missing-"+strconv.Itoa(i), "terrain material missing, using default",
		zap.Int("index", i),
		zap.String("fallback", c.fallback.Name))
	wm := WeightedMaterial{Material: c.fallback}
	if i >= 0 && i < len(c.materials) {
		wm.Highlighted = c.materials[i].Highlighted
	}
	return wm
}

var (
	highlightScale = Constant{Value: [4]float32{0.5, 0.5, 0.5, 1}}
	highlightTint  = Constant{Value: [4]float32{0.5, 0.25, 0, 0}}
)

// diffuse returns the material's diffuse, tinted when highlighted.
func (wm WeightedMaterial) diffuse() Expression {
	if !wm.Highlighted {
		return wm.Material.Diffuse
	}
	return Add{Terms: []Expression{Mul{A: wm.Material.Diffuse, B: highlightScale}, highlightTint}}
}

func (c *Compiler) compile(mask Mask) *CompiledMaterial {
	if mask.IsZero() {
		mask.Set(0)
	}
	indices := mask.Bits()
	cm := &CompiledMaterial{Mask: mask}

	// Budget: distinct weight textures plus each material's own textures.
	perMaterial := 0
	for _, i := range indices {
		perMaterial += len(c.material(i).Material.Textures())
	}

	if len(indices) == 1 {
		wm := c.material(indices[0])
		cm.Diffuse = wm.diffuse()
		cm.Normal = wm.Material.normal()
	} else {
		diffuse := make([]Expression, 0, len(indices))
		normal := make([]Expression, 0, len(indices))
		for _, i := range indices {
			wm := c.material(i)
			weight := WeightChannel{Texture: WeightTexture(i), Channel: WeightChannelOf(i)}
			diffuse = append(diffuse, Mul{A: weight, B: wm.diffuse()})
			normal = append(normal, Mul{A: weight, B: wm.Material.normal()})
		}
		cm.Diffuse = Add{Terms: diffuse}
		cm.Normal = Add{Terms: normal}
	}

	if c.normalLayer >= 0 {
		nm := c.material(c.normalLayer).Material
		cm.Normal = nm.normal()
		if !mask.Has(c.normalLayer) {
			perMaterial += len(nm.Textures())
		}
	}

	cm.WeightTextures = WeightTexturesOf(Add{Terms: []Expression{cm.Diffuse, cm.Normal}})
	cm.Textures = TexturesOf(cm.Diffuse, cm.Normal)
	cm.TextureCount = len(cm.WeightTextures) + perMaterial

	if cm.TextureCount > c.maxTextures {
		logger.Warn("terrain material combination exceeds texture budget",
			zap.Stringer("mask", mask),
			zap.Int("textures", cm.TextureCount),
			zap.Int("max", c.maxTextures))
		cm.Diffuse = Constant{Value: ErrorColor}
		cm.Normal = flatNormal
		cm.Textures = nil
		cm.WeightTextures = nil
		cm.Placeholder = true
	}
	return cm
}
