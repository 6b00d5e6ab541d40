package renderer

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-terrain/internal/engine/gpu"
	"github.com/Faultbox/midgard-terrain/internal/logger"
)

// GLBackend implements gpu.Backend on OpenGL buffer objects.
// IMPORTANT: every call must happen on the thread owning the GL context.
type GLBackend struct {
	sizes map[gpu.BufferHandle]int
}

// NewGLBackend creates a backend for the current GL context.
func NewGLBackend() *GLBackend {
	return &GLBackend{sizes: make(map[gpu.BufferHandle]int)}
}

// AllocateBuffer creates a dynamic buffer object of size bytes.
func (b *GLBackend) AllocateBuffer(size int, usage gpu.Usage) gpu.BufferHandle {
	if size <= 0 {
		return gpu.InvalidBuffer
	}

	var id uint32
	gl.GenBuffers(1, &id)
	if id == 0 {
		logger.Warn("glGenBuffers failed", zap.Stringer("usage", usage))
		return gpu.InvalidBuffer
	}

	// Uploads go through COPY_WRITE_BUFFER so index buffers never touch VAO state.
	gl.BindBuffer(gl.COPY_WRITE_BUFFER, id)
	gl.BufferData(gl.COPY_WRITE_BUFFER, size, nil, gl.DYNAMIC_DRAW)
	gl.BindBuffer(gl.COPY_WRITE_BUFFER, 0)

	if errCode := gl.GetError(); errCode != gl.NO_ERROR {
		gl.DeleteBuffers(1, &id)
		logger.Warn("buffer allocation failed",
			zap.Int("size", size), zap.Stringer("usage", usage), zap.Uint32("glError", errCode))
		return gpu.InvalidBuffer
	}

	h := gpu.BufferHandle(id)
	b.sizes[h] = size
	return h
}

// LockForWrite maps the whole buffer for writing, discarding old contents.
func (b *GLBackend) LockForWrite(h gpu.BufferHandle) []byte {
	size, ok := b.sizes[h]
	if !ok {
		return nil
	}

	gl.BindBuffer(gl.COPY_WRITE_BUFFER, uint32(h))
	ptr := gl.MapBufferRange(gl.COPY_WRITE_BUFFER, 0, size,
		gl.MAP_WRITE_BIT|gl.MAP_INVALIDATE_BUFFER_BIT)
	if ptr == nil {
		gl.BindBuffer(gl.COPY_WRITE_BUFFER, 0)
		logger.Warn("glMapBufferRange failed", zap.Uint32("buffer", uint32(h)))
		return nil
	}
	return unsafe.Slice((*byte)(ptr), size)
}

// Unlock unmaps the buffer.
func (b *GLBackend) Unlock(h gpu.BufferHandle) {
	if _, ok := b.sizes[h]; !ok {
		return
	}
	gl.BindBuffer(gl.COPY_WRITE_BUFFER, uint32(h))
	if !gl.UnmapBuffer(gl.COPY_WRITE_BUFFER) {
		// Contents were lost (e.g. display mode change); the next repack rewrites them.
		logger.Debug("buffer contents invalidated during unmap", zap.Uint32("buffer", uint32(h)))
	}
	gl.BindBuffer(gl.COPY_WRITE_BUFFER, 0)
}

// Free deletes the buffer object.
func (b *GLBackend) Free(h gpu.BufferHandle) error {
	if _, ok := b.sizes[h]; !ok {
		return fmt.Errorf("free buffer %d: unknown handle", h)
	}
	id := uint32(h)
	gl.DeleteBuffers(1, &id)
	delete(b.sizes, h)
	return nil
}

// Close frees every remaining buffer.
func (b *GLBackend) Close() error {
	var err error
	for h := range b.sizes {
		err = multierr.Append(err, b.Free(h))
	}
	return err
}
