// Package ip implements the Internet Protocol version 4 (IPv4) as defined
// in RFC 791, restricted to what a single-subnet host needs: no options on
// transmit, no fragmentation (oversized payloads are rejected, fragments
// are dropped on receipt).
package ip

import (
	"encoding/binary"
	"errors"
	"fmt"

	"etherstack/pkg/common"
)

const (
	// Version is the IP version number carried in every header.
	Version = 4

	// HeaderLength is the length of a header without options (20 bytes).
	// Transmitted packets never carry options.
	HeaderLength = 20

	// MaxHeaderLength is the maximum IPv4 header length (60 bytes).
	MaxHeaderLength = 60

	// DefaultTTL is the Time To Live set on transmitted packets.
	DefaultTTL = 64
)

// ErrPacketTooLarge is returned when a payload cannot fit in a single
// frame on the link. The stack never fragments; nothing is transmitted.
var ErrPacketTooLarge = errors.New("ip: packet exceeds link MTU")

// Flags represents the flags field in the IPv4 header.
type Flags uint8

const (
	// FlagDontFragment indicates that the packet must not be fragmented.
	FlagDontFragment Flags = 1 << 1

	// FlagMoreFragments indicates that more fragments follow.
	FlagMoreFragments Flags = 1 << 0
)

// Packet represents an IPv4 packet.
type Packet struct {
	IHL            uint8              // Header length in 32-bit words
	TOS            uint8              // Type of service
	TotalLength    uint16             // Header plus payload length
	Identification uint16             // Datagram identification
	Flags          Flags              // DF/MF flags
	FragmentOffset uint16             // Fragment offset in 8-byte blocks
	TTL            uint8              // Time to live
	Protocol       common.Protocol    // Payload protocol
	Checksum       uint16             // Header checksum
	Source         common.IPv4Address // Source address
	Destination    common.IPv4Address // Destination address
	Payload        []byte             // Packet payload
}

// Parse decodes an IPv4 packet from raw bytes and verifies the header
// checksum and length fields against the data actually present. Any
// mismatch yields an error; on a shared medium the caller treats that as
// a silent drop, not a fault.
func Parse(data []byte) (*Packet, error) {
	if len(data) < HeaderLength {
		return nil, fmt.Errorf("packet too short: %d bytes (minimum %d)", len(data), HeaderLength)
	}

	if version := data[0] >> 4; version != Version {
		return nil, fmt.Errorf("invalid IP version: %d", version)
	}

	pkt := &Packet{IHL: data[0] & 0x0F}
	if pkt.IHL < 5 {
		return nil, fmt.Errorf("invalid IHL: %d (minimum 5)", pkt.IHL)
	}
	headerLength := int(pkt.IHL) * 4
	if len(data) < headerLength {
		return nil, fmt.Errorf("packet too short for header: %d bytes (expected %d)", len(data), headerLength)
	}

	pkt.TOS = data[1]
	pkt.TotalLength = binary.BigEndian.Uint16(data[2:4])
	if int(pkt.TotalLength) < headerLength || int(pkt.TotalLength) > len(data) {
		return nil, fmt.Errorf("total length %d inconsistent with %d received bytes", pkt.TotalLength, len(data))
	}

	pkt.Identification = binary.BigEndian.Uint16(data[4:6])
	flagsFragOffset := binary.BigEndian.Uint16(data[6:8])
	pkt.Flags = Flags(flagsFragOffset >> 13)
	pkt.FragmentOffset = flagsFragOffset & 0x1FFF
	pkt.TTL = data[8]
	pkt.Protocol = common.Protocol(data[9])
	pkt.Checksum = binary.BigEndian.Uint16(data[10:12])
	copy(pkt.Source[:], data[12:16])
	copy(pkt.Destination[:], data[16:20])

	if !common.VerifyChecksum(data[:headerLength]) {
		return nil, fmt.Errorf("header checksum mismatch")
	}

	pkt.Payload = data[headerLength:pkt.TotalLength]
	return pkt, nil
}

// IsFragment returns true if this packet is one piece of a fragmented
// datagram. The stack does no reassembly and drops fragments.
func (p *Packet) IsFragment() bool {
	return p.FragmentOffset != 0 || p.Flags&FlagMoreFragments != 0
}

// Serialize converts the packet to bytes, computing the header checksum.
// The header is always the 20-byte optionless form.
func (p *Packet) Serialize() []byte {
	p.IHL = HeaderLength / 4
	p.TotalLength = uint16(HeaderLength + len(p.Payload))

	buf := make([]byte, p.TotalLength)
	buf[0] = Version<<4 | p.IHL
	buf[1] = p.TOS
	binary.BigEndian.PutUint16(buf[2:4], p.TotalLength)
	binary.BigEndian.PutUint16(buf[4:6], p.Identification)
	binary.BigEndian.PutUint16(buf[6:8], uint16(p.Flags)<<13|p.FragmentOffset&0x1FFF)
	buf[8] = p.TTL
	buf[9] = uint8(p.Protocol)
	copy(buf[12:16], p.Source[:])
	copy(buf[16:20], p.Destination[:])

	p.Checksum = common.CalculateChecksum(buf[:HeaderLength])
	binary.BigEndian.PutUint16(buf[10:12], p.Checksum)

	copy(buf[HeaderLength:], p.Payload)
	return buf
}

// String returns a human-readable representation of the packet.
func (p *Packet) String() string {
	return fmt.Sprintf("IPv4{%s -> %s, Proto=%s, TTL=%d, Len=%d}",
		p.Source, p.Destination, p.Protocol, p.TTL, p.TotalLength)
}

// NewPacket creates a packet ready for transmission: fixed default TTL,
// don't-fragment set, no options.
func NewPacket(src, dst common.IPv4Address, protocol common.Protocol, payload []byte) *Packet {
	return &Packet{
		IHL:         HeaderLength / 4,
		TTL:         DefaultTTL,
		Flags:       FlagDontFragment,
		Protocol:    protocol,
		Source:      src,
		Destination: dst,
		Payload:     payload,
	}
}
