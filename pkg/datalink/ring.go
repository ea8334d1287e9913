package datalink

import "sync/atomic"

// Ring is a bounded single-producer/single-consumer queue of frame buffers.
// It is the hand-off between the receive context (a DMA-complete interrupt
// on the original target, a reader goroutine here) and the foreground loop:
// the producer only ever advances tail, the consumer only ever advances
// head, so no lock is needed as long as each side stays on one goroutine.
type Ring struct {
	slots []*FrameBuffer
	mask  uint32
	head  atomic.Uint32 // consumer index
	tail  atomic.Uint32 // producer index
}

// NewRing creates a ring holding at least capacity buffers. Capacity is
// rounded up to a power of two so index arithmetic survives wraparound.
func NewRing(capacity int) *Ring {
	n := uint32(1)
	for n < uint32(capacity) {
		n <<= 1
	}
	return &Ring{
		slots: make([]*FrameBuffer, n),
		mask:  n - 1,
	}
}

// Push enqueues a buffer from the producer side. Returns false when the
// ring is full; the buffer is not consumed in that case.
func (r *Ring) Push(b *FrameBuffer) bool {
	tail := r.tail.Load()
	if tail-r.head.Load() == uint32(len(r.slots)) {
		return false
	}
	r.slots[tail&r.mask] = b
	r.tail.Store(tail + 1)
	return true
}

// Pop dequeues the oldest buffer from the consumer side, or returns nil
// when the ring is empty.
func (r *Ring) Pop() *FrameBuffer {
	head := r.head.Load()
	if head == r.tail.Load() {
		return nil
	}
	b := r.slots[head&r.mask]
	r.slots[head&r.mask] = nil
	r.head.Store(head + 1)
	return b
}

// Len returns the number of queued buffers. The value is only exact on
// whichever side calls it, which is all the stack needs.
func (r *Ring) Len() int {
	return int(r.tail.Load() - r.head.Load())
}

// Capacity returns the fixed size of the ring.
func (r *Ring) Capacity() int {
	return len(r.slots)
}
