// Package ethernet implements Ethernet II frame encoding and decoding.
package ethernet

import (
	"encoding/binary"
	"fmt"

	"etherstack/pkg/common"
)

// Ethernet frame format (IEEE 802.3):
// +-------------------+-------------------+----------+---------+-----+
// | Destination (6B)  | Source (6B)       | Type (2B)| Payload | FCS |
// +-------------------+-------------------+----------+---------+-----+
//
// The FCS is appended and checked by the MAC hardware and never appears
// in the buffers this package sees.

const (
	// HeaderSize is the size of an Ethernet header (14 bytes).
	HeaderSize = 14

	// MinPayloadSize is the minimum payload size (46 bytes); shorter
	// payloads are zero-padded on the wire.
	MinPayloadSize = 46

	// MaxPayloadSize is the maximum payload size (1500 bytes, the link MTU).
	MaxPayloadSize = 1500

	// MaxFrameSize is the maximum frame size excluding FCS (1514 bytes).
	MaxFrameSize = HeaderSize + MaxPayloadSize
)

// Frame represents an Ethernet II frame.
type Frame struct {
	Destination common.MACAddress
	Source      common.MACAddress
	EtherType   common.EtherType
	Payload     []byte
}

// Parse decodes an Ethernet frame from raw bytes. The payload aliases data;
// the caller keeps ownership of the underlying buffer.
func Parse(data []byte) (*Frame, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("ethernet frame too short: %d bytes", len(data))
	}

	frame := &Frame{}
	copy(frame.Destination[:], data[0:6])
	copy(frame.Source[:], data[6:12])
	frame.EtherType = common.EtherType(binary.BigEndian.Uint16(data[12:14]))
	frame.Payload = data[HeaderSize:]

	return frame, nil
}

// WireSize returns the number of bytes the frame occupies on the wire
// (excluding FCS), accounting for minimum-payload padding.
func (f *Frame) WireSize() int {
	payload := len(f.Payload)
	if payload < MinPayloadSize {
		payload = MinPayloadSize
	}
	return HeaderSize + payload
}

// EncodeTo writes the frame into buf and returns the number of bytes
// written. The payload is zero-padded up to the minimum frame size. Fails
// if buf is too small or the payload exceeds the link MTU; nothing is
// written in either case.
func (f *Frame) EncodeTo(buf []byte) (int, error) {
	if len(f.Payload) > MaxPayloadSize {
		return 0, fmt.Errorf("ethernet payload too large: %d bytes (max %d)", len(f.Payload), MaxPayloadSize)
	}
	size := f.WireSize()
	if len(buf) < size {
		return 0, fmt.Errorf("ethernet encode buffer too small: %d bytes (need %d)", len(buf), size)
	}

	copy(buf[0:6], f.Destination[:])
	copy(buf[6:12], f.Source[:])
	binary.BigEndian.PutUint16(buf[12:14], uint16(f.EtherType))
	n := copy(buf[HeaderSize:size], f.Payload)

	// Pad out to the minimum frame size.
	for i := HeaderSize + n; i < size; i++ {
		buf[i] = 0
	}
	return size, nil
}

// Serialize converts the frame to a freshly allocated byte slice.
func (f *Frame) Serialize() ([]byte, error) {
	buf := make([]byte, f.WireSize())
	if _, err := f.EncodeTo(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// String returns a human-readable representation of the frame.
func (f *Frame) String() string {
	return fmt.Sprintf("Ethernet{Dst=%s, Src=%s, Type=%s, PayloadLen=%d}",
		f.Destination, f.Source, f.EtherType, len(f.Payload))
}

// IsBroadcast returns true if this is a broadcast frame.
func (f *Frame) IsBroadcast() bool {
	return f.Destination.IsBroadcast()
}

// NewFrame creates a new Ethernet frame.
func NewFrame(dst, src common.MACAddress, etherType common.EtherType, payload []byte) *Frame {
	return &Frame{
		Destination: dst,
		Source:      src,
		EtherType:   etherType,
		Payload:     payload,
	}
}
