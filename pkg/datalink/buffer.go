// Package datalink moves Ethernet frames between the stack and a link
// device. It owns the static frame-buffer pool, the receive ring that
// hands frames from the device's receive context to the foreground, and
// the device implementations themselves.
package datalink

import "etherstack/pkg/ethernet"

// FrameBuffer is a fixed-capacity byte region holding one received frame.
// A buffer has exactly one owner at a time: the pool, the device filling
// it, or the layer currently parsing it. Whoever consumes or drops the
// frame must call Release to hand it back to the pool.
type FrameBuffer struct {
	data []byte
	n    int
	pool *FramePool
}

// Bytes returns the valid portion of the buffer.
func (b *FrameBuffer) Bytes() []byte {
	return b.data[:b.n]
}

// Capacity returns the fixed capacity of the buffer.
func (b *FrameBuffer) Capacity() int {
	return len(b.data)
}

// SetLength records how many bytes of the buffer hold frame data.
// Lengths beyond the capacity are clamped.
func (b *FrameBuffer) SetLength(n int) {
	if n > len(b.data) {
		n = len(b.data)
	}
	b.n = n
}

// Release returns the buffer to its pool. The caller must not touch the
// buffer afterwards.
func (b *FrameBuffer) Release() {
	b.n = 0
	b.pool.free.Push(b)
}

// DefaultPoolSize is the number of frame buffers a device allocates when
// no explicit sizing is configured.
const DefaultPoolSize = 16

// FramePool is a bounded set of frame buffers allocated once up front;
// there is no dynamic growth. The free list is itself a Ring because its
// two sides live in different contexts: the device's receive context
// borrows buffers (Get) while the foreground returns them (Release).
// When the pool runs dry Get returns nil and the frame is dropped —
// a recoverable condition, never a crash.
type FramePool struct {
	free *Ring
}

// NewFramePool allocates count buffers of size bytes each. Sizes below the
// maximum frame size are raised to it so any frame fits.
func NewFramePool(count, size int) *FramePool {
	if count <= 0 {
		count = DefaultPoolSize
	}
	if size < ethernet.MaxFrameSize {
		size = ethernet.MaxFrameSize
	}

	pool := &FramePool{free: NewRing(count)}
	backing := make([]byte, count*size)
	for i := 0; i < count; i++ {
		pool.free.Push(&FrameBuffer{
			data: backing[i*size : (i+1)*size],
			pool: pool,
		})
	}
	return pool
}

// Get borrows a buffer, or returns nil when the pool is exhausted.
// Only the device's receive context may call Get.
func (p *FramePool) Get() *FrameBuffer {
	return p.free.Pop()
}

// Free returns the number of buffers currently available.
func (p *FramePool) Free() int {
	return p.free.Len()
}
