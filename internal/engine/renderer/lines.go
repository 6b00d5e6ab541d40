package renderer

import (
	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/midgard-terrain/internal/engine/shader"
)

// lineBatch draws world-space line lists streamed every frame.
type lineBatch struct {
	program  uint32
	uniforms *shader.Uniforms
	vao, vbo uint32
	capacity int
}

func newLineBatch() (*lineBatch, error) {
	program, err := shader.CompileProgram(lineVertexShader, lineFragmentShader)
	if err != nil {
		return nil, err
	}
	lb := &lineBatch{program: program, uniforms: shader.NewUniforms(program)}

	gl.GenVertexArrays(1, &lb.vao)
	gl.GenBuffers(1, &lb.vbo)
	gl.BindVertexArray(lb.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, lb.vbo)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, 3*4, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)
	return lb, nil
}

// draw renders vertices (x, y, z triples, two per line) in color.
func (lb *lineBatch) draw(vertices []float32, viewProj mgl32.Mat4, color mgl32.Vec4) {
	if len(vertices) == 0 {
		return
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, lb.vbo)
	size := len(vertices) * 4
	if size > lb.capacity {
		gl.BufferData(gl.ARRAY_BUFFER, size, gl.Ptr(vertices), gl.STREAM_DRAW)
		lb.capacity = size
	} else {
		gl.BufferSubData(gl.ARRAY_BUFFER, 0, size, gl.Ptr(vertices))
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)

	gl.UseProgram(lb.program)
	gl.UniformMatrix4fv(lb.uniforms.Location("u_viewProj"), 1, false, &viewProj[0])
	gl.Uniform4fv(lb.uniforms.Location("u_color"), 1, &color[0])
	gl.BindVertexArray(lb.vao)
	gl.DrawArrays(gl.LINES, 0, int32(len(vertices)/3))
	gl.BindVertexArray(0)
}

func (lb *lineBatch) close() {
	gl.DeleteVertexArrays(1, &lb.vao)
	gl.DeleteBuffers(1, &lb.vbo)
	gl.DeleteProgram(lb.program)
}
