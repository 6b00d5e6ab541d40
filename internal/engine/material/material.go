// Package material compiles terrain weight-blended materials: it discovers the
// material combinations used by terrain quads and builds one shading expression
// per combination.
package material

// Material is a surface shading description.
type Material struct {
	Name    string
	Diffuse Expression
	Normal  Expression // Tangent-space normal, packed into [0,1]; nil is flat
}

// Textures returns the distinct textures the material samples.
func (m *Material) Textures() []string {
	return TexturesOf(m.Diffuse, m.Normal)
}

// normal returns the normal expression, defaulting to a flat normal.
func (m *Material) normal() Expression {
	if m.Normal == nil {
		return flatNormal
	}
	return m.Normal
}

var flatNormal = Constant{Value: [4]float32{0.5, 0.5, 1, 1}}

// DefaultMaterial returns the material substituted for missing references.
func DefaultMaterial() *Material {
	return &Material{
		Name:    "default",
		Diffuse: Constant{Value: [4]float32{0.5, 0.5, 0.5, 1}},
	}
}

// TexturedMaterial returns a material sampling one diffuse texture.
func TexturedMaterial(name, texture string) *Material {
	return &Material{
		Name:    name,
		Diffuse: TextureSample{Texture: texture},
	}
}

// ErrorColor is the placeholder color of combinations that cannot be compiled.
var ErrorColor = [4]float32{1, 0, 1, 1}

// WeightedMaterial pairs a material with its slot in the packed weight textures.
// Its position in the terrain's list is its weight index.
type WeightedMaterial struct {
	Material    *Material
	Highlighted bool
}

// WeightTexture returns the packed weight texture holding weight index i.
func WeightTexture(i int) int { return i / 4 }

// weightChannels maps i%4 to a byte offset in an RGBA texel: 0 is B, 1 G, 2 R, 3 A.
var weightChannels = [4]int{2, 1, 0, 3}

// WeightChannelOf returns the RGBA byte offset holding weight index i.
func WeightChannelOf(i int) int { return weightChannels[i%4] }
