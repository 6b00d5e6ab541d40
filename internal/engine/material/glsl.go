package material

import (
	"strings"
)

// VertexShader decodes the packed terrain vertex stream. Attribute 0 carries the
// position bytes, 1 the height bytes, 2 the gradient and 3 the morph record.
const VertexShader = `#version 410 core

layout (location = 0) in uvec4 aPatch;    // PatchX, PatchY, SubX, SubY
layout (location = 1) in uvec4 aHeight;   // Zlo, Zhi, 0, 0
layout (location = 2) in ivec2 aGradient;
layout (location = 3) in uvec4 aMorph;    // Transition, ZTlo, ZThi, 0

uniform mat4 u_localToWorld;
uniform mat4 u_viewProj;
uniform vec2 u_sectionBase;
uniform vec2 u_terrainSize;
uniform float u_layerScale;
uniform int u_morphing;
uniform float u_morphAlpha[5];

out vec2 v_layerUV;
out vec2 v_weightUV;
out vec3 v_normal;

void main() {
    vec2 local = u_sectionBase + vec2(aPatch.xy) + vec2(aPatch.zw) / 256.0;
    float z = (float(aHeight.x | (aHeight.y << 8)) - 32768.0) / 128.0;
    if (u_morphing != 0) {
        float zt = (float(aMorph.y | (aMorph.z << 8)) - 32768.0) / 128.0;
        z = mix(z, zt, u_morphAlpha[min(aMorph.x, 4u)]);
    }
    vec2 grad = vec2(aGradient) / 128.0;
    v_normal = normalize(mat3(u_localToWorld) * vec3(-grad.x, -grad.y, 1.0));
    v_layerUV = local / u_layerScale;
    v_weightUV = (local + 0.5) / (u_terrainSize + 1.0);
    gl_Position = u_viewProj * u_localToWorld * vec4(local, z, 1.0);
}
`

// FragmentSource returns the GLSL fragment shader evaluating the compiled material.
func (cm *CompiledMaterial) FragmentSource() string {
	var b strings.Builder
	b.WriteString("#version 410 core\n\n")
	b.WriteString("in vec2 v_layerUV;\nin vec2 v_weightUV;\nin vec3 v_normal;\n\n")
	for _, t := range cm.Textures {
		b.WriteString("uniform sampler2D " + TextureUniform(t) + ";\n")
	}
	for _, w := range cm.WeightTextures {
		b.WriteString("uniform sampler2D " + WeightUniform(w) + ";\n")
	}
	b.WriteString("uniform vec3 u_lightDir;\n\nout vec4 FragColor;\n\n")
	b.WriteString("void main() {\n")
	b.WriteString("    vec4 diffuse = " + cm.Diffuse.GLSL() + ";\n")
	b.WriteString("    vec3 detail = " + cm.Normal.GLSL() + ".xyz * 2.0 - 1.0;\n")
	b.WriteString("    vec3 n = normalize(v_normal + vec3(detail.xy, 0.0));\n")
	b.WriteString("    float light = 0.3 + 0.7 * max(dot(n, normalize(-u_lightDir)), 0.0);\n")
	b.WriteString("    FragColor = vec4(diffuse.rgb * light, 1.0);\n")
	b.WriteString("}\n")
	return b.String()
}
