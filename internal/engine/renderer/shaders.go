package renderer

// decalVertexShader decodes the terrain vertex stream like the material
// vertex shader and projects the surface into decal space.
const decalVertexShader = `#version 410 core

layout (location = 0) in uvec4 aPatch;
layout (location = 1) in uvec4 aHeight;
layout (location = 3) in uvec4 aMorph;

uniform mat4 u_localToWorld;
uniform mat4 u_viewProj;
uniform mat4 u_decalViewProj;
uniform vec2 u_sectionBase;
uniform int u_morphing;
uniform float u_morphAlpha[5];

out vec4 v_decalPos;

void main() {
    vec2 local = u_sectionBase + vec2(aPatch.xy) + vec2(aPatch.zw) / 256.0;
    float z = (float(aHeight.x | (aHeight.y << 8)) - 32768.0) / 128.0;
    if (u_morphing != 0) {
        float zt = (float(aMorph.y | (aMorph.z << 8)) - 32768.0) / 128.0;
        z = mix(z, zt, u_morphAlpha[min(aMorph.x, 4u)]);
    }
    vec4 world = u_localToWorld * vec4(local, z, 1.0);
    v_decalPos = u_decalViewProj * world;
    gl_Position = u_viewProj * world;
}
`

const decalFragmentShader = `#version 410 core

in vec4 v_decalPos;

uniform sampler2D u_decal;

out vec4 FragColor;

void main() {
    vec3 ndc = v_decalPos.xyz / v_decalPos.w;
    if (any(greaterThan(abs(ndc), vec3(1.0)))) {
        discard;
    }
    FragColor = texture(u_decal, ndc.xy * 0.5 + 0.5);
}
`

const lineVertexShader = `#version 410 core

layout (location = 0) in vec3 aPos;

uniform mat4 u_viewProj;

void main() {
    gl_Position = u_viewProj * vec4(aPos, 1.0);
}
`

const lineFragmentShader = `#version 410 core

uniform vec4 u_color;

out vec4 FragColor;

void main() {
    FragColor = u_color;
}
`
