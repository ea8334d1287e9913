package phy

import (
	"errors"
	"testing"
)

// simMDIO is an in-memory register file standing in for a transceiver.
// Reset behaviour is scripted: the BMCR reset bit self-clears after
// resetReads reads, or never if resetStuck is set.
type simMDIO struct {
	regs       map[uint8]uint16
	phyAddr    uint8
	resetReads int
	resetStuck bool
	reads      int
}

func newSimMDIO(phyAddr uint8) *simMDIO {
	return &simMDIO{
		regs:    map[uint8]uint16{RegPHYID1: 0x2000},
		phyAddr: phyAddr,
	}
}

func (s *simMDIO) ReadReg(phyAddr, reg uint8) (uint16, error) {
	if phyAddr != s.phyAddr {
		return 0xFFFF, nil
	}
	value := s.regs[reg]
	switch reg {
	case RegBMCR:
		if value&BMCRReset != 0 && !s.resetStuck {
			s.reads++
			if s.reads > s.resetReads {
				value &^= BMCRReset
				s.regs[reg] = value
			}
		}
	case RegMISR:
		// Status bits are read-to-clear; enable bits persist.
		s.regs[reg] = value & 0x00FF
	}
	return value, nil
}

func (s *simMDIO) WriteReg(phyAddr, reg uint8, value uint16) error {
	if phyAddr != s.phyAddr {
		return errors.New("no such phy")
	}
	if reg == RegBMCR && value&BMCRReset != 0 {
		s.reads = 0
	}
	s.regs[reg] = value
	return nil
}

// raise latches interrupt status bits as the transceiver would.
func (s *simMDIO) raise(sources uint16) {
	s.regs[RegMISR] |= sources << misrStatusShift
}

func (s *simMDIO) setLink(up bool, abilities uint16) {
	if up {
		s.regs[RegBMSR] |= BMSRLinkUp
	} else {
		s.regs[RegBMSR] &^= BMSRLinkUp
	}
	s.regs[RegANAR] = abilities
	s.regs[RegANLPAR] = abilities
}

func TestResetCompletes(t *testing.T) {
	sim := newSimMDIO(1)
	sim.resetReads = 3

	dev := New(sim, 1)
	if err := dev.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	// Auto-negotiation must be armed after reset.
	bmcr := sim.regs[RegBMCR]
	if bmcr&BMCRAutoNegEnable == 0 {
		t.Error("Reset() did not enable auto-negotiation")
	}
}

func TestResetHardwareTimeout(t *testing.T) {
	sim := newSimMDIO(1)
	sim.resetStuck = true

	dev := New(sim, 1)
	dev.SetResetPolls(10)

	err := dev.Reset()
	if !errors.Is(err, ErrHardwareTimeout) {
		t.Fatalf("Reset() error = %v, want ErrHardwareTimeout", err)
	}
}

func TestDetect(t *testing.T) {
	sim := newSimMDIO(7)

	dev, err := Detect(sim)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if dev.Address() != 7 {
		t.Errorf("Detect() address = %d, want 7", dev.Address())
	}
}

func TestLinkStatus(t *testing.T) {
	tests := []struct {
		name      string
		up        bool
		abilities uint16
		want      LinkStatus
	}{
		{"link down", false, 0, LinkStatus{}},
		{"100 full", true, AN100FullDuplex | AN10FullDuplex, LinkStatus{Up: true, Speed100: true, FullDuplex: true}},
		{"100 half", true, AN100HalfDuplex | AN10HalfDuplex, LinkStatus{Up: true, Speed100: true}},
		{"10 full", true, AN10FullDuplex, LinkStatus{Up: true, FullDuplex: true}},
		{"10 half", true, AN10HalfDuplex, LinkStatus{Up: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := newSimMDIO(1)
			sim.setLink(tt.up, tt.abilities)

			dev := New(sim, 1)
			got, err := dev.LinkStatus()
			if err != nil {
				t.Fatalf("LinkStatus() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("LinkStatus() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestInterruptLatchAndClear(t *testing.T) {
	sim := newSimMDIO(1)
	dev := New(sim, 1)

	if err := dev.EnableInterrupts(IntLinkStatusChange); err != nil {
		t.Fatalf("EnableInterrupts() error = %v", err)
	}

	// Sources outside the mask must be filtered out.
	sim.raise(IntLinkStatusChange | IntSpeedChange)

	pending, err := dev.PendingInterrupts()
	if err != nil {
		t.Fatalf("PendingInterrupts() error = %v", err)
	}
	if pending != IntLinkStatusChange {
		t.Errorf("PendingInterrupts() = 0x%04x, want 0x%04x", pending, IntLinkStatusChange)
	}

	// Reading must have cleared the latch.
	pending, err = dev.PendingInterrupts()
	if err != nil {
		t.Fatalf("PendingInterrupts() error = %v", err)
	}
	if pending != 0 {
		t.Errorf("PendingInterrupts() after clear = 0x%04x, want 0", pending)
	}
}
