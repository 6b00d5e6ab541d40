package material

import (
	"fmt"
	"strings"
)

// Expression is a node of a shading expression tree. Every node evaluates to an RGBA value.
type Expression interface {
	// GLSL returns the node as a vec4 GLSL expression.
	GLSL() string
	children() []Expression
}

// Constant is a fixed color.
type Constant struct {
	Value [4]float32
}

func (c Constant) GLSL() string {
	return fmt.Sprintf("vec4(%s, %s, %s, %s)",
		glslFloat(c.Value[0]), glslFloat(c.Value[1]), glslFloat(c.Value[2]), glslFloat(c.Value[3]))
}

func (Constant) children() []Expression { return nil }

// TextureSample samples a material texture at the layer UV.
type TextureSample struct {
	Texture string
}

func (t TextureSample) GLSL() string {
	return fmt.Sprintf("texture(%s, v_layerUV)", TextureUniform(t.Texture))
}

func (TextureSample) children() []Expression { return nil }

// WeightChannel reads one channel of a packed weight texture, broadcast to all components.
type WeightChannel struct {
	Texture int
	Channel int // Byte offset in the RGBA texel
}

func (w WeightChannel) GLSL() string {
	return fmt.Sprintf("vec4(texture(%s, v_weightUV).%c)", WeightUniform(w.Texture), "rgba"[w.Channel&3])
}

func (WeightChannel) children() []Expression { return nil }

// Mul multiplies two expressions component-wise.
type Mul struct {
	A, B Expression
}

func (m Mul) GLSL() string { return "(" + m.A.GLSL() + " * " + m.B.GLSL() + ")" }

func (m Mul) children() []Expression { return []Expression{m.A, m.B} }

// Add sums its terms.
type Add struct {
	Terms []Expression
}

func (a Add) GLSL() string {
	if len(a.Terms) == 0 {
		return "vec4(0.0)"
	}
	parts := make([]string, len(a.Terms))
	for i, t := range a.Terms {
		parts[i] = t.GLSL()
	}
	return "(" + strings.Join(parts, " + ") + ")"
}

func (a Add) children() []Expression { return a.Terms }

// Walk calls fn for every node of e in depth-first order.
func Walk(e Expression, fn func(Expression)) {
	if e == nil {
		return
	}
	fn(e)
	for _, c := range e.children() {
		Walk(c, fn)
	}
}

// TexturesOf returns the distinct material textures sampled by the expressions, in first-use order.
func TexturesOf(exprs ...Expression) []string {
	var out []string
	seen := make(map[string]bool)
	for _, e := range exprs {
		Walk(e, func(n Expression) {
			if t, ok := n.(TextureSample); ok && !seen[t.Texture] {
				seen[t.Texture] = true
				out = append(out, t.Texture)
			}
		})
	}
	return out
}

// WeightTexturesOf returns the distinct weight texture indices read by e, ascending.
func WeightTexturesOf(e Expression) []int {
	var seen [MaxWeightedMaterials / 4]bool
	Walk(e, func(n Expression) {
		if w, ok := n.(WeightChannel); ok && w.Texture >= 0 && w.Texture < len(seen) {
			seen[w.Texture] = true
		}
	})
	var out []int
	for i, s := range seen {
		if s {
			out = append(out, i)
		}
	}
	return out
}

// TextureUniform returns the sampler uniform name of a material texture.
func TextureUniform(name string) string {
	var b strings.Builder
	b.WriteString("u_tex_")
	for _, r := range name {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// WeightUniform returns the sampler uniform name of weight texture i.
func WeightUniform(i int) string {
	return fmt.Sprintf("u_weight%d", i)
}

func glslFloat(v float32) string {
	s := fmt.Sprintf("%g", v)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
