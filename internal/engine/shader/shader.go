// Package shader compiles OpenGL programs, including the programs of compiled
// terrain materials.
package shader

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-terrain/internal/engine/material"
	"github.com/Faultbox/midgard-terrain/internal/logger"
)

// CompileProgram compiles vertex and fragment shaders and links them into a program.
func CompileProgram(vertexSrc, fragmentSrc string) (uint32, error) {
	vertShader, err := compileShader(vertexSrc, gl.VERTEX_SHADER, "vertex")
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(vertShader)

	fragShader, err := compileShader(fragmentSrc, gl.FRAGMENT_SHADER, "fragment")
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(fragShader)

	program := gl.CreateProgram()
	gl.AttachShader(program, vertShader)
	gl.AttachShader(program, fragShader)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLen)
		log := make([]byte, logLen+1)
		gl.GetProgramInfoLog(program, logLen, nil, &log[0])
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("link: %s", string(log))
	}

	return program, nil
}

func compileShader(source string, shaderType uint32, name string) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csource, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csource, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		log := make([]byte, logLen+1)
		gl.GetShaderInfoLog(shader, logLen, nil, &log[0])
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("%s shader: %s", name, string(log))
	}

	return shader, nil
}

// GetUniform returns the uniform location for the given name, -1 when the
// uniform is missing or inactive.
func GetUniform(program uint32, name string) int32 {
	return gl.GetUniformLocation(program, gl.Str(name+"\x00"))
}

// Uniforms caches uniform locations of one program.
type Uniforms struct {
	program uint32
	cache   map[string]int32
}

// NewUniforms creates a location cache for program.
func NewUniforms(program uint32) *Uniforms {
	return &Uniforms{program: program, cache: make(map[string]int32)}
}

// Location returns the location of name.
func (u *Uniforms) Location(name string) int32 {
	if loc, ok := u.cache[name]; ok {
		return loc
	}
	loc := GetUniform(u.program, name)
	u.cache[name] = loc
	return loc
}

// MaterialPrograms compiles terrain material programs. It implements
// material.ProgramCompiler and must be used on the GL thread.
type MaterialPrograms struct {
	uniforms map[material.Program]*Uniforms
}

// NewMaterialPrograms creates an empty program set.
func NewMaterialPrograms() *MaterialPrograms {
	return &MaterialPrograms{uniforms: make(map[material.Program]*Uniforms)}
}

// Compile builds the program of cm. Failures are logged and yield
// material.InvalidProgram.
func (m *MaterialPrograms) Compile(cm *material.CompiledMaterial) material.Program {
	id, err := CompileProgram(material.VertexShader, cm.FragmentSource())
	if err != nil {
		logger.Warn("terrain material program failed",
			zap.Stringer("mask", cm.Mask), zap.Error(err))
		return material.InvalidProgram
	}
	p := material.Program(id)
	m.uniforms[p] = NewUniforms(id)
	logger.Debug("terrain material program compiled",
		zap.Stringer("mask", cm.Mask),
		zap.Int("textures", cm.TextureCount),
		zap.Bool("placeholder", cm.Placeholder))
	return p
}

// Delete releases p.
func (m *MaterialPrograms) Delete(p material.Program) {
	gl.DeleteProgram(uint32(p))
	delete(m.uniforms, p)
}

// Uniforms returns the location cache of p.
func (m *MaterialPrograms) Uniforms(p material.Program) *Uniforms {
	u, ok := m.uniforms[p]
	if !ok {
		u = NewUniforms(uint32(p))
		m.uniforms[p] = u
	}
	return u
}
