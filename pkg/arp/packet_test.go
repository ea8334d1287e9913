package arp

import (
	"testing"

	"etherstack/pkg/common"
)

var (
	testMAC = common.MACAddress{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	testIP  = common.IPv4Address{192, 168, 0, 10}
)

func TestRequestRoundTrip(t *testing.T) {
	target := common.IPv4Address{192, 168, 0, 1}
	request := NewRequest(testMAC, testIP, target)

	data := request.Serialize()
	if len(data) != PacketSize {
		t.Fatalf("Serialize() length = %d, want %d", len(data), PacketSize)
	}

	parsed, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !parsed.IsRequest() {
		t.Error("IsRequest() = false, want true")
	}
	if parsed.SenderMAC != testMAC || parsed.SenderIP != testIP {
		t.Errorf("sender = %s/%s, want %s/%s", parsed.SenderMAC, parsed.SenderIP, testMAC, testIP)
	}
	if parsed.TargetIP != target {
		t.Errorf("TargetIP = %s, want %s", parsed.TargetIP, target)
	}
	if parsed.TargetMAC != (common.MACAddress{}) {
		t.Errorf("TargetMAC = %s, want zero", parsed.TargetMAC)
	}
}

func TestReplyRoundTrip(t *testing.T) {
	targetMAC := common.MACAddress{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}
	targetIP := common.IPv4Address{192, 168, 0, 20}
	reply := NewReply(testMAC, testIP, targetMAC, targetIP)

	parsed, err := Parse(reply.Serialize())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !parsed.IsReply() {
		t.Error("IsReply() = false, want true")
	}
	if parsed.TargetMAC != targetMAC || parsed.TargetIP != targetIP {
		t.Errorf("target = %s/%s, want %s/%s", parsed.TargetMAC, parsed.TargetIP, targetMAC, targetIP)
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]byte)
	}{
		{"bad hardware type", func(b []byte) { b[0] = 0xFF }},
		{"bad protocol type", func(b []byte) { b[2] = 0xFF }},
		{"bad hardware length", func(b []byte) { b[4] = 8 }},
		{"bad protocol length", func(b []byte) { b[5] = 16 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := NewRequest(testMAC, testIP, testIP).Serialize()
			tt.mutate(data)
			if _, err := Parse(data); err == nil {
				t.Error("Parse() error = nil, want error")
			}
		})
	}
}

func TestParseTooShort(t *testing.T) {
	if _, err := Parse(make([]byte, PacketSize-1)); err == nil {
		t.Error("Parse() error = nil for short packet, want error")
	}
}
