// Package gpu defines the narrow GPU buffer and command queue interfaces the
// terrain core renders through, with an in-memory backend and command queues.
package gpu

// Usage hints how a buffer will be bound.
type Usage int

const (
	UsageVertex Usage = iota
	UsageIndex
)

func (u Usage) String() string {
	switch u {
	case UsageVertex:
		return "vertex"
	case UsageIndex:
		return "index"
	}
	return "unknown"
}

// BufferHandle identifies a buffer owned by a Backend. Zero is never valid.
type BufferHandle uint32

// InvalidBuffer is returned when allocation fails.
const InvalidBuffer BufferHandle = 0

// Backend allocates and fills GPU buffers. Access is write-only: callers lock,
// overwrite and unlock, and never read back. All methods must be called from
// the rendering thread.
type Backend interface {
	AllocateBuffer(size int, usage Usage) BufferHandle
	LockForWrite(h BufferHandle) []byte
	Unlock(h BufferHandle)
	Free(h BufferHandle) error
}

// CommandQueue executes commands in enqueue order on the rendering thread.
type CommandQueue interface {
	Enqueue(cmd func())
	// Flush blocks until every command enqueued so far has executed.
	Flush()
}

// Upload returns a command that copies data into the start of buffer h.
// data is owned by the command.
func Upload(b Backend, h BufferHandle, data []byte) func() {
	return func() {
		if h == InvalidBuffer || len(data) == 0 {
			return
		}
		dst := b.LockForWrite(h)
		copy(dst, data)
		b.Unlock(h)
	}
}
