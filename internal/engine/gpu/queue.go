package gpu

import "sync"

// RenderThread runs commands on a dedicated goroutine in FIFO order.
type RenderThread struct {
	cmds chan func()
	wg   sync.WaitGroup
	once sync.Once
}

// NewRenderThread starts the rendering goroutine. queueSize bounds the
// number of pending commands before Enqueue blocks.
func NewRenderThread(queueSize int) *RenderThread {
	if queueSize < 1 {
		queueSize = 1
	}
	rt := &RenderThread{cmds: make(chan func(), queueSize)}
	rt.wg.Add(1)
	go rt.run()
	return rt
}

func (rt *RenderThread) run() {
	defer rt.wg.Done()
	for cmd := range rt.cmds {
		cmd()
	}
}

// Enqueue schedules cmd after every previously enqueued command.
func (rt *RenderThread) Enqueue(cmd func()) {
	rt.cmds <- cmd
}

// Flush waits until the queue is idle.
func (rt *RenderThread) Flush() {
	done := make(chan struct{})
	rt.cmds <- func() { close(done) }
	<-done
}

// Close drains pending commands and stops the goroutine.
func (rt *RenderThread) Close() {
	rt.once.Do(func() {
		close(rt.cmds)
		rt.wg.Wait()
	})
}

// FrameQueue collects commands for a thread that owns the graphics context
// and drains them itself, typically once per frame.
type FrameQueue struct {
	mu      sync.Mutex
	pending []func()
}

// NewFrameQueue creates an empty queue.
func NewFrameQueue() *FrameQueue {
	return &FrameQueue{}
}

// Enqueue appends cmd.
func (q *FrameQueue) Enqueue(cmd func()) {
	q.mu.Lock()
	q.pending = append(q.pending, cmd)
	q.mu.Unlock()
}

// Flush runs all pending commands on the calling thread. Commands enqueued
// while draining run in the same call.
func (q *FrameQueue) Flush() {
	for {
		q.mu.Lock()
		cmds := q.pending
		q.pending = nil
		q.mu.Unlock()

		if len(cmds) == 0 {
			return
		}
		for _, cmd := range cmds {
			cmd()
		}
	}
}

// Len returns the number of pending commands.
func (q *FrameQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
