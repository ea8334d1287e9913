package datalink

import (
	"errors"
	"sync/atomic"

	"etherstack/pkg/common"
	"etherstack/pkg/ethernet"
)

// Device is a link device the stack sends and receives raw Ethernet frames
// through. Transmit is fire-and-forget: a nil return means the frame was
// queued for the hardware, not that it was delivered — upper layers bring
// their own confirmation (an ICMP echo confirms itself). Poll is
// non-blocking and yields received frames in arrival order, transferring
// buffer ownership to the caller.
type Device interface {
	// HardwareAddr returns the device's MAC address.
	HardwareAddr() common.MACAddress

	// MTU returns the maximum payload size a frame may carry.
	MTU() int

	// Transmit enqueues one frame for transmission.
	Transmit(frame []byte) error

	// Poll returns the next received frame, or nil if none is pending.
	// The caller owns the returned buffer and must Release it.
	Poll() *FrameBuffer

	// Drops returns the cumulative count of received frames dropped
	// because no free buffer was available.
	Drops() uint64

	// Close shuts the device down. Frames transmitted afterwards fail.
	Close() error
}

// ErrDeviceClosed is returned by Transmit on a closed device.
var ErrDeviceClosed = errors.New("datalink: device closed")

// PipeDevice is an in-memory link device. Two devices created by Pipe are
// cross-connected: a frame transmitted on one arrives on the other, going
// through the same pool/ring hand-off a hardware device uses. It backs the
// stack's tests and any loopback-style wiring.
type PipeDevice struct {
	mac    common.MACAddress
	pool   *FramePool
	rx     *Ring
	peer   *PipeDevice
	drops  atomic.Uint64
	closed atomic.Bool
}

// Pipe creates a cross-connected pair of in-memory devices, each with its
// own receive pool of poolSize buffers.
func Pipe(poolSize int) (*PipeDevice, *PipeDevice) {
	if poolSize <= 0 {
		poolSize = DefaultPoolSize
	}
	a := newPipeDevice(common.MACAddress{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}, poolSize)
	b := newPipeDevice(common.MACAddress{0x02, 0x00, 0x00, 0x00, 0x00, 0x02}, poolSize)
	a.peer, b.peer = b, a
	return a, b
}

func newPipeDevice(mac common.MACAddress, poolSize int) *PipeDevice {
	return &PipeDevice{
		mac:  mac,
		pool: NewFramePool(poolSize, ethernet.MaxFrameSize),
		// Ring capacity covers every pool buffer, so a buffer obtained
		// from the pool always fits and drops happen only on pool
		// exhaustion, matching a descriptor ring running dry.
		rx: NewRing(poolSize),
	}
}

// HardwareAddr returns the device's MAC address.
func (d *PipeDevice) HardwareAddr() common.MACAddress {
	return d.mac
}

// MTU returns the link MTU.
func (d *PipeDevice) MTU() int {
	return ethernet.MaxPayloadSize
}

// Transmit copies the frame into the peer's receive path.
func (d *PipeDevice) Transmit(frame []byte) error {
	if d.closed.Load() {
		return ErrDeviceClosed
	}
	peer := d.peer
	if peer == nil || peer.closed.Load() {
		return ErrDeviceClosed
	}
	if len(frame) > ethernet.MaxFrameSize {
		return errors.New("datalink: frame exceeds link size")
	}

	buf := peer.pool.Get()
	if buf == nil {
		peer.drops.Add(1)
		return nil
	}
	buf.SetLength(copy(buf.data, frame))
	peer.rx.Push(buf)
	return nil
}

// Poll returns the next received frame, or nil.
func (d *PipeDevice) Poll() *FrameBuffer {
	return d.rx.Pop()
}

// Drops returns the cumulative receive-drop count.
func (d *PipeDevice) Drops() uint64 {
	return d.drops.Load()
}

// Close disconnects the device.
func (d *PipeDevice) Close() error {
	d.closed.Store(true)
	return nil
}
