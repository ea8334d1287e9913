// Package phy manages an Ethernet PHY transceiver over an MDIO bus.
//
// Only the management side of the transceiver is modelled here: reset,
// auto-negotiation, link status and the interrupt sources the chip can
// raise. Moving frames on and off the wire is the datalink layer's job.
// All operations touch a shared register set through the MDIO bus, so a
// Device must only ever be driven from a single goroutine.
package phy

import (
	"errors"
	"fmt"
)

// ErrHardwareTimeout is returned when the transceiver fails to come out of
// reset within the allowed number of status polls. It is fatal: the caller
// must abort stack startup.
var ErrHardwareTimeout = errors.New("phy: hardware reset timed out")

// IEEE 802.3 clause 22 basic register addresses.
const (
	RegBMCR   uint8 = 0x00 // Basic Mode Control Register
	RegBMSR   uint8 = 0x01 // Basic Mode Status Register
	RegPHYID1 uint8 = 0x02 // PHY Identifier 1
	RegPHYID2 uint8 = 0x03 // PHY Identifier 2
	RegANAR   uint8 = 0x04 // Auto-Negotiation Advertisement
	RegANLPAR uint8 = 0x05 // Auto-Negotiation Link Partner Ability
	RegMICR   uint8 = 0x11 // Interrupt Control (vendor range)
	RegMISR   uint8 = 0x12 // Interrupt Status/Enable (vendor range)
)

// BMCR bits.
const (
	BMCRReset          uint16 = 1 << 15
	BMCRAutoNegEnable  uint16 = 1 << 12
	BMCRRestartAutoNeg uint16 = 1 << 9
)

// BMSR bits.
const (
	BMSRAutoNegComplete uint16 = 1 << 5
	BMSRLinkUp          uint16 = 1 << 2
)

// ANAR/ANLPAR ability bits shared by advertisement and link partner registers.
const (
	AN100FullDuplex uint16 = 1 << 8
	AN100HalfDuplex uint16 = 1 << 7
	AN10FullDuplex  uint16 = 1 << 6
	AN10HalfDuplex  uint16 = 1 << 5
)

// Interrupt sources. The low byte of MISR holds the enable bits; the high
// byte holds the latched status bits and is cleared by reading the register.
const (
	IntAutoNegComplete uint16 = 1 << 2
	IntDuplexChange    uint16 = 1 << 3
	IntSpeedChange     uint16 = 1 << 4
	IntLinkStatusChange uint16 = 1 << 5

	misrStatusShift = 8
)

// MICR bits.
const (
	micrIntOutputEnable uint16 = 1 << 0
	micrIntEnable       uint16 = 1 << 1
)

// MDIO is the management bus a PHY is reached over. Implementations wrap
// whatever gives register access on the target: an SMI peripheral, a
// bit-banged bus, or an in-memory model for tests.
type MDIO interface {
	ReadReg(phyAddr, reg uint8) (uint16, error)
	WriteReg(phyAddr, reg uint8, value uint16) error
}

// LinkStatus reports the negotiated state of the link.
type LinkStatus struct {
	Up         bool
	Speed100   bool // true: 100Mb/s, false: 10Mb/s
	FullDuplex bool
}

// String returns a human-readable summary, e.g. "up 100Mb/s full-duplex".
func (s LinkStatus) String() string {
	if !s.Up {
		return "down"
	}
	speed := "10Mb/s"
	if s.Speed100 {
		speed = "100Mb/s"
	}
	duplex := "half-duplex"
	if s.FullDuplex {
		duplex = "full-duplex"
	}
	return fmt.Sprintf("up %s %s", speed, duplex)
}

// DefaultResetPolls bounds how many times Reset re-reads BMCR while waiting
// for the reset bit to self-clear.
const DefaultResetPolls = 1000

// Device drives one PHY transceiver at a fixed bus address.
type Device struct {
	bus        MDIO
	addr       uint8
	resetPolls int
	intMask    uint16
}

// New creates a Device for the transceiver at addr on the given bus.
func New(bus MDIO, addr uint8) *Device {
	return &Device{
		bus:        bus,
		addr:       addr,
		resetPolls: DefaultResetPolls,
	}
}

// Detect scans the bus for a responding transceiver and returns a Device
// bound to the first address that answers with a plausible identifier.
func Detect(bus MDIO) (*Device, error) {
	for addr := uint8(0); addr < 32; addr++ {
		id, err := bus.ReadReg(addr, RegPHYID1)
		if err != nil {
			continue
		}
		// An absent transceiver reads as all ones (or all zeros on some buses).
		if id == 0xFFFF || id == 0x0000 {
			continue
		}
		return New(bus, addr), nil
	}
	return nil, errors.New("phy: no transceiver found on bus")
}

// Address returns the bus address the device is bound to.
func (d *Device) Address() uint8 {
	return d.addr
}

// SetResetPolls overrides the reset poll budget. Mainly useful in tests.
func (d *Device) SetResetPolls(n int) {
	d.resetPolls = n
}

// Reset drives a soft reset and blocks until the transceiver reports ready,
// then enables auto-negotiation. Returns ErrHardwareTimeout if the reset bit
// never self-clears within the poll budget.
func (d *Device) Reset() error {
	if err := d.bus.WriteReg(d.addr, RegBMCR, BMCRReset); err != nil {
		return fmt.Errorf("phy: reset write failed: %w", err)
	}

	ready := false
	for i := 0; i < d.resetPolls; i++ {
		bmcr, err := d.bus.ReadReg(d.addr, RegBMCR)
		if err != nil {
			continue
		}
		if bmcr&BMCRReset == 0 {
			ready = true
			break
		}
	}
	if !ready {
		return ErrHardwareTimeout
	}

	if err := d.bus.WriteReg(d.addr, RegBMCR, BMCRAutoNegEnable|BMCRRestartAutoNeg); err != nil {
		return fmt.Errorf("phy: auto-negotiation enable failed: %w", err)
	}
	return nil
}

// LinkStatus reads the current link state. Speed and duplex are resolved
// from the highest ability both ends advertised; they are only meaningful
// while the link is up.
func (d *Device) LinkStatus() (LinkStatus, error) {
	var status LinkStatus

	bmsr, err := d.bus.ReadReg(d.addr, RegBMSR)
	if err != nil {
		return status, fmt.Errorf("phy: status read failed: %w", err)
	}
	if bmsr&BMSRLinkUp == 0 {
		return status, nil
	}
	status.Up = true

	local, err := d.bus.ReadReg(d.addr, RegANAR)
	if err != nil {
		return status, fmt.Errorf("phy: advertisement read failed: %w", err)
	}
	partner, err := d.bus.ReadReg(d.addr, RegANLPAR)
	if err != nil {
		return status, fmt.Errorf("phy: link partner read failed: %w", err)
	}

	common := local & partner
	switch {
	case common&AN100FullDuplex != 0:
		status.Speed100, status.FullDuplex = true, true
	case common&AN100HalfDuplex != 0:
		status.Speed100 = true
	case common&AN10FullDuplex != 0:
		status.FullDuplex = true
	}
	return status, nil
}

// EnableInterrupts arms the given interrupt sources so the transceiver
// raises its interrupt line when one fires. After handling, the subscriber
// must call ClearPendingInterrupts or the line stays asserted.
func (d *Device) EnableInterrupts(mask uint16) error {
	if err := d.bus.WriteReg(d.addr, RegMICR, micrIntOutputEnable|micrIntEnable); err != nil {
		return fmt.Errorf("phy: interrupt control write failed: %w", err)
	}
	if err := d.bus.WriteReg(d.addr, RegMISR, mask); err != nil {
		return fmt.Errorf("phy: interrupt enable write failed: %w", err)
	}
	d.intMask = mask
	return nil
}

// PendingInterrupts returns the latched interrupt sources and clears them.
// Reading the status register is what deasserts the interrupt line.
func (d *Device) PendingInterrupts() (uint16, error) {
	misr, err := d.bus.ReadReg(d.addr, RegMISR)
	if err != nil {
		return 0, fmt.Errorf("phy: interrupt status read failed: %w", err)
	}
	return (misr >> misrStatusShift) & d.intMask, nil
}

// ClearPendingInterrupts discards any latched interrupt state.
func (d *Device) ClearPendingInterrupts() error {
	_, err := d.PendingInterrupts()
	return err
}
