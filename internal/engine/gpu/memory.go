package gpu

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-terrain/internal/logger"
)

// MemoryBackend keeps buffers in system memory. It backs the headless tools
// and tests, and lets the written bytes be inspected.
type MemoryBackend struct {
	mu      sync.Mutex
	next    BufferHandle
	buffers map[BufferHandle]*memoryBuffer
	// MaxBytes limits the total allocation; zero means unlimited.
	MaxBytes int
	used     int
}

type memoryBuffer struct {
	data   []byte
	usage  Usage
	locked bool
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{buffers: make(map[BufferHandle]*memoryBuffer)}
}

// AllocateBuffer reserves size bytes.
func (m *MemoryBackend) AllocateBuffer(size int, usage Usage) BufferHandle {
	m.mu.Lock()
	defer m.mu.Unlock()

	if size <= 0 || (m.MaxBytes > 0 && m.used+size > m.MaxBytes) {
		logger.Warn("buffer allocation failed",
			zap.Int("size", size), zap.Stringer("usage", usage), zap.Int("used", m.used))
		return InvalidBuffer
	}
	m.next++
	m.buffers[m.next] = &memoryBuffer{data: make([]byte, size), usage: usage}
	m.used += size
	return m.next
}

// LockForWrite returns the buffer storage. The slice is valid until Unlock.
func (m *MemoryBackend) LockForWrite(h BufferHandle) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	buf, ok := m.buffers[h]
	if !ok {
		return nil
	}
	buf.locked = true
	return buf.data
}

// Unlock ends a write.
func (m *MemoryBackend) Unlock(h BufferHandle) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if buf, ok := m.buffers[h]; ok {
		buf.locked = false
	}
}

// Free releases the buffer.
func (m *MemoryBackend) Free(h BufferHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	buf, ok := m.buffers[h]
	if !ok {
		return fmt.Errorf("free buffer %d: unknown handle", h)
	}
	if buf.locked {
		return fmt.Errorf("free buffer %d: still locked", h)
	}
	m.used -= len(buf.data)
	delete(m.buffers, h)
	return nil
}

// Contents returns a copy of the buffer bytes, or nil for an unknown handle.
func (m *MemoryBackend) Contents(h BufferHandle) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	buf, ok := m.buffers[h]
	if !ok {
		return nil
	}
	out := make([]byte, len(buf.data))
	copy(out, buf.data)
	return out
}

// Live returns the number of allocated buffers.
func (m *MemoryBackend) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buffers)
}

// UsedBytes returns the total allocated size.
func (m *MemoryBackend) UsedBytes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.used
}
