// Package icmp implements the echo portion of the Internet Control Message
// Protocol (RFC 792): an 8-byte header carrying type, code, checksum,
// identifier and sequence, followed by an opaque payload that a replying
// host echoes back verbatim.
package icmp

import (
	"encoding/binary"
	"fmt"

	"etherstack/pkg/common"
)

// Type represents an ICMP message type.
type Type uint8

// ICMP types the stack understands. Anything else is dropped.
const (
	TypeEchoReply              Type = 0  // Echo Reply
	TypeDestinationUnreachable Type = 3  // Destination Unreachable
	TypeEchoRequest            Type = 8  // Echo Request
	TypeTimeExceeded           Type = 11 // Time Exceeded
)

// String returns a human-readable name for the ICMP type.
func (t Type) String() string {
	switch t {
	case TypeEchoReply:
		return "EchoReply"
	case TypeDestinationUnreachable:
		return "DestinationUnreachable"
	case TypeEchoRequest:
		return "EchoRequest"
	case TypeTimeExceeded:
		return "TimeExceeded"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(t))
	}
}

// HeaderLength is the ICMP header length (8 bytes).
const HeaderLength = 8

// Message represents an ICMP message.
type Message struct {
	Type     Type   // ICMP type
	Code     uint8  // ICMP code
	Checksum uint16 // Checksum over header and data
	ID       uint16 // Identifier (echo request/reply)
	Sequence uint16 // Sequence number (echo request/reply)
	Data     []byte // Opaque payload
}

// Parse decodes an ICMP message from raw bytes. The data is copied, so
// the message stays valid after the receive buffer is released.
func Parse(data []byte) (*Message, error) {
	if len(data) < HeaderLength {
		return nil, fmt.Errorf("ICMP message too short: %d bytes (minimum %d)", len(data), HeaderLength)
	}

	msg := &Message{
		Type:     Type(data[0]),
		Code:     data[1],
		Checksum: binary.BigEndian.Uint16(data[2:4]),
		ID:       binary.BigEndian.Uint16(data[4:6]),
		Sequence: binary.BigEndian.Uint16(data[6:8]),
	}
	if len(data) > HeaderLength {
		msg.Data = make([]byte, len(data)-HeaderLength)
		copy(msg.Data, data[HeaderLength:])
	}
	return msg, nil
}

// Serialize converts the message to bytes, computing the checksum over
// header and payload.
func (m *Message) Serialize() []byte {
	buf := make([]byte, HeaderLength+len(m.Data))

	buf[0] = uint8(m.Type)
	buf[1] = m.Code
	// Checksum field stays zero for the calculation.
	binary.BigEndian.PutUint16(buf[4:6], m.ID)
	binary.BigEndian.PutUint16(buf[6:8], m.Sequence)
	copy(buf[HeaderLength:], m.Data)

	m.Checksum = common.CalculateChecksum(buf)
	binary.BigEndian.PutUint16(buf[2:4], m.Checksum)
	return buf
}

// VerifyChecksum verifies the message checksum. Failures mean corrupted
// or forged traffic and the message is silently dropped.
func (m *Message) VerifyChecksum() bool {
	buf := make([]byte, HeaderLength+len(m.Data))
	buf[0] = uint8(m.Type)
	buf[1] = m.Code
	binary.BigEndian.PutUint16(buf[2:4], m.Checksum)
	binary.BigEndian.PutUint16(buf[4:6], m.ID)
	binary.BigEndian.PutUint16(buf[6:8], m.Sequence)
	copy(buf[HeaderLength:], m.Data)

	return common.CalculateChecksum(buf) == 0
}

// String returns a human-readable representation of the message.
func (m *Message) String() string {
	return fmt.Sprintf("ICMP{Type=%s, Code=%d, ID=%d, Seq=%d, DataLen=%d}",
		m.Type, m.Code, m.ID, m.Sequence, len(m.Data))
}

// NewEchoRequest creates an Echo Request message.
func NewEchoRequest(id, sequence uint16, data []byte) *Message {
	return &Message{
		Type:     TypeEchoRequest,
		ID:       id,
		Sequence: sequence,
		Data:     data,
	}
}

// NewEchoReply creates an Echo Reply answering the given request: same
// identifier, same sequence, payload echoed back.
func NewEchoReply(request *Message) *Message {
	return &Message{
		Type:     TypeEchoReply,
		ID:       request.ID,
		Sequence: request.Sequence,
		Data:     request.Data,
	}
}

// IsEchoRequest returns true if this is an Echo Request message.
func (m *Message) IsEchoRequest() bool {
	return m.Type == TypeEchoRequest && m.Code == 0
}

// IsEchoReply returns true if this is an Echo Reply message.
func (m *Message) IsEchoReply() bool {
	return m.Type == TypeEchoReply && m.Code == 0
}
