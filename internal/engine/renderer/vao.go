package renderer

import (
	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/midgard-terrain/internal/engine/gpu"
	"github.com/Faultbox/midgard-terrain/internal/engine/terrain"
)

// componentVAO describes a component's packed vertex stream to GL. The
// element buffer is VAO state, so decal draws swap it in and out.
type componentVAO struct {
	id     uint32
	vbo    gpu.BufferHandle
	ibo    gpu.BufferHandle
	stride int
}

// componentVAO returns the VAO of c, rebuilding it when the vertex buffer
// was reallocated.
func (r *Renderer) componentVAO(c *terrain.Component, ds terrain.DrawState) *componentVAO {
	v, ok := r.vaos[c]
	if ok && v.vbo == ds.VertexBuffer && v.stride == ds.Stride {
		return v
	}
	if !ok {
		v = &componentVAO{}
		gl.GenVertexArrays(1, &v.id)
		r.vaos[c] = v
	}
	v.vbo = ds.VertexBuffer
	v.stride = ds.Stride
	v.ibo = gpu.InvalidBuffer

	stride := int32(ds.Stride)
	gl.BindVertexArray(v.id)
	gl.BindBuffer(gl.ARRAY_BUFFER, uint32(ds.VertexBuffer))

	// 0: patch x/y and sub-quad position
	gl.VertexAttribIPointer(0, 4, gl.UNSIGNED_BYTE, stride, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(0)
	// 1: height bytes
	gl.VertexAttribIPointer(1, 4, gl.UNSIGNED_BYTE, stride, gl.PtrOffset(4))
	gl.EnableVertexAttribArray(1)
	// 2: gradient
	gl.VertexAttribIPointer(2, 2, gl.SHORT, stride, gl.PtrOffset(8))
	gl.EnableVertexAttribArray(2)
	// 3: morph record
	if ds.Stride >= terrain.MorphVertexStride {
		gl.VertexAttribIPointer(3, 4, gl.UNSIGNED_BYTE, stride, gl.PtrOffset(12))
		gl.EnableVertexAttribArray(3)
	} else {
		gl.DisableVertexAttribArray(3)
		gl.VertexAttribI4ui(3, 0, 0, 0, 0)
	}

	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)
	return v
}

// bind binds the VAO with ibo as its element buffer.
func (v *componentVAO) bind(ibo gpu.BufferHandle) {
	gl.BindVertexArray(v.id)
	if v.ibo != ibo {
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, uint32(ibo))
		v.ibo = ibo
	}
}

func (v *componentVAO) delete() {
	gl.DeleteVertexArrays(1, &v.id)
}
