// Package stack assembles the layers into a working network stack: it
// applies the static IP configuration, resets and supervises the PHY,
// demultiplexes received frames, and exposes the ping application.
//
// The stack follows a single-threaded cooperative model. Everything —
// frame handling, ARP state, the buffer pool bookkeeping — runs on the
// goroutine that calls Poll (or Ping, which polls internally). Interrupt
// contexts such as a device's receive goroutine or a PHY interrupt line
// only push buffers into rings or set flags for the foreground to pick
// up; they never enter the stack.
package stack

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"etherstack/pkg/arp"
	"etherstack/pkg/common"
	"etherstack/pkg/datalink"
	"etherstack/pkg/ethernet"
	"etherstack/pkg/icmp"
	"etherstack/pkg/ip"
	"etherstack/pkg/phy"
)

// ErrPingTimeout is returned when no matching echo reply arrives within
// the caller's deadline. It is an expected outcome, not a fault.
var ErrPingTimeout = errors.New("stack: ping timed out")

// ErrNotRunning is returned when traffic operations are attempted before
// Initialise and Startup have both completed.
var ErrNotRunning = errors.New("stack: not running")

// ErrNoPHY is returned by PHY operations on a stack configured without a
// transceiver.
var ErrNoPHY = errors.New("stack: no PHY configured")

// ErrBufferExhausted is the cause carried by buffer-exhaustion error
// events.
var ErrBufferExhausted = errors.New("stack: receive frames dropped, no free buffers")

// State is the stack lifecycle state.
type State uint8

const (
	// StateUninitialised: no configuration applied yet.
	StateUninitialised State = iota

	// StateInitialised: configured and PHY probed, reception not started.
	StateInitialised

	// StateRunning: fully operational.
	StateRunning
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUninitialised:
		return "uninitialised"
	case StateInitialised:
		return "initialised"
	case StateRunning:
		return "running"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// DefaultPollInterval is how long Ping sleeps between receive polls.
const DefaultPollInterval = time.Millisecond

// pingPayloadSize is the echo payload carried by Ping requests.
const pingPayloadSize = 32

// Params is the configuration snapshot consumed once by Initialise and
// never mutated afterwards.
type Params struct {
	// Address, SubnetMask and DefaultGateway are dotted-decimal strings,
	// e.g. "192.168.0.10", "255.255.255.0", "192.168.0.1".
	Address        string
	SubnetMask     string
	DefaultGateway string

	// Device is the link device frames move through. Required.
	Device datalink.Device

	// PHY is the transceiver to reset and supervise. Optional; without
	// one the link is assumed up and PHY operations fail with ErrNoPHY.
	PHY *phy.Device

	// Clock is the external time source. Defaults to the system
	// monotonic clock.
	Clock common.Clock

	// ARPCacheCapacity, ARPCacheTimeout and ARPRequestTimeout size the
	// resolution machinery. Zero values pick the arp package defaults.
	ARPCacheCapacity  int
	ARPCacheTimeout   time.Duration
	ARPRequestTimeout time.Duration

	// PollInterval is Ping's receive-wait granularity.
	PollInterval time.Duration
}

// pendingEcho is the one outstanding ping exchange. Replies are matched
// on identifier and sequence so a stale reply from an earlier exchange
// can never satisfy a newer request.
type pendingEcho struct {
	id     uint16
	seq    uint16
	target common.IPv4Address
	sentAt time.Time
}

// Stack owns all layers. It must be driven from a single goroutine.
type Stack struct {
	state        State
	addr         common.IPv4Address
	mask         common.IPv4Address
	gateway      common.IPv4Address
	clock        common.Clock
	dev          datalink.Device
	phy          *phy.Device
	resolver     *arp.Resolver
	errors       errorSender
	links        linkSender
	phyIRQ       atomic.Bool
	seenDrops    uint64
	pollInterval time.Duration
	ipID         uint16
	echoID       uint16
	echoSeq      uint16
	pending      *pendingEcho
	lastRTT      time.Duration
}

// New creates an uninitialised stack.
func New() *Stack {
	return &Stack{}
}

// State returns the lifecycle state.
func (s *Stack) State() State {
	return s.state
}

// Address returns the configured IPv4 address.
func (s *Stack) Address() common.IPv4Address {
	return s.addr
}

// Initialise applies the configuration and probes the hardware: parse the
// static addresses, reset the PHY, and wire the layers together. A PHY
// reset failure fails the whole call — there is no partial success.
func (s *Stack) Initialise(params Params) error {
	if s.state != StateUninitialised {
		return fmt.Errorf("stack: initialise in state %s", s.state)
	}
	if params.Device == nil {
		return errors.New("stack: no link device")
	}

	var err error
	if s.addr, err = common.ParseIPv4(params.Address); err != nil {
		return fmt.Errorf("stack: address: %w", err)
	}
	if s.mask, err = common.ParseIPv4(params.SubnetMask); err != nil {
		return fmt.Errorf("stack: subnet mask: %w", err)
	}
	if s.gateway, err = common.ParseIPv4(params.DefaultGateway); err != nil {
		return fmt.Errorf("stack: default gateway: %w", err)
	}

	s.clock = params.Clock
	if s.clock == nil {
		s.clock = common.SystemClock()
	}
	s.pollInterval = params.PollInterval
	if s.pollInterval <= 0 {
		s.pollInterval = DefaultPollInterval
	}

	s.dev = params.Device
	s.phy = params.PHY
	if s.phy != nil {
		if err := s.phy.Reset(); err != nil {
			return fmt.Errorf("stack: phy reset: %w", err)
		}
	}

	cacheTimeout := params.ARPCacheTimeout
	if cacheTimeout <= 0 {
		cacheTimeout = arp.DefaultCacheTimeout
	}
	cache := arp.NewCache(params.ARPCacheCapacity, cacheTimeout, s.clock)
	s.resolver = arp.NewResolver(s.dev, cache, s.clock, s.addr, params.ARPRequestTimeout)
	s.resolver.OnFailure(func(target common.IPv4Address) {
		s.errors.publish(ErrorEvent{
			Provider: ProviderARP,
			Code:     CodeAddressResolutionFailed,
			Cause:    fmt.Errorf("no ARP reply from %s", target),
		})
	})

	// The echo identifier distinguishes this host's pings from anyone
	// else's; the low MAC bytes are as unique as anything available.
	mac := s.dev.HardwareAddr()
	s.echoID = binary.BigEndian.Uint16(mac[4:6])

	s.state = StateInitialised
	return nil
}

// Startup begins reception. It must be called after Initialise and
// before any traffic; it also announces our address mapping so on-link
// peers learn it without asking.
func (s *Stack) Startup() error {
	if s.state != StateInitialised {
		return fmt.Errorf("stack: startup in state %s", s.state)
	}
	if err := s.resolver.Announce(); err != nil {
		return fmt.Errorf("stack: announce: %w", err)
	}
	s.state = StateRunning
	return nil
}

// SubscribeErrors registers a subscriber for recoverable-fault events.
// Subscribers run on the foreground context and must not block.
func (s *Stack) SubscribeErrors(fn func(ErrorEvent)) {
	s.errors.subscribe(fn)
}

// SubscribeLink registers a subscriber for link-state transitions.
func (s *Stack) SubscribeLink(fn func(LinkEvent)) {
	s.links.subscribe(fn)
}

// NotifyPHYInterrupt records that the PHY interrupt line fired. Safe to
// call from an interrupt context (another goroutine); the foreground
// handles it on its next Poll.
func (s *Stack) NotifyPHYInterrupt() {
	s.phyIRQ.Store(true)
}

// PHYEnableInterrupts arms the given PHY interrupt sources.
func (s *Stack) PHYEnableInterrupts(mask uint16) error {
	if s.phy == nil {
		return ErrNoPHY
	}
	return s.phy.EnableInterrupts(mask)
}

// PHYClearPendingInterrupts discards latched PHY interrupt state.
func (s *Stack) PHYClearPendingInterrupts() error {
	if s.phy == nil {
		return ErrNoPHY
	}
	return s.phy.ClearPendingInterrupts()
}

// PHYLinkStatus reads the current link state.
func (s *Stack) PHYLinkStatus() (phy.LinkStatus, error) {
	if s.phy == nil {
		return phy.LinkStatus{}, ErrNoPHY
	}
	return s.phy.LinkStatus()
}

// Poll runs one foreground service cycle: handle a pending PHY
// interrupt, surface receive drops, expire ARP requests, then drain and
// dispatch received frames in arrival order. Each frame is fully handled
// and its buffer released before the next is dequeued.
func (s *Stack) Poll() {
	if s.state != StateRunning {
		return
	}

	if s.phyIRQ.Swap(false) && s.phy != nil {
		s.phy.ClearPendingInterrupts()
		if status, err := s.phy.LinkStatus(); err == nil {
			s.links.publish(LinkEvent{Status: status})
		}
	}

	if drops := s.dev.Drops(); drops > s.seenDrops {
		s.seenDrops = drops
		s.errors.publish(ErrorEvent{
			Provider: ProviderDatalink,
			Code:     CodeBufferExhausted,
			Cause:    ErrBufferExhausted,
		})
	}

	s.resolver.CheckTimeouts()

	for {
		buf := s.dev.Poll()
		if buf == nil {
			return
		}
		s.handleFrame(buf.Bytes())
		buf.Release()
	}
}

// Ping sends one echo request to target and blocks, cooperatively
// servicing the stack, until the matching reply arrives or timeout
// elapses. Returns the round-trip time on success, ErrPingTimeout
// otherwise. Only one ping may be outstanding at a time; callers
// serialize calls.
func (s *Stack) Ping(target string, timeout time.Duration) (time.Duration, error) {
	if s.state != StateRunning {
		return 0, ErrNotRunning
	}
	dst, err := common.ParseIPv4(target)
	if err != nil {
		return 0, fmt.Errorf("stack: ping target: %w", err)
	}

	s.echoSeq++
	payload := make([]byte, pingPayloadSize)
	for i := range payload {
		payload[i] = byte(i)
	}
	request := icmp.NewEchoRequest(s.echoID, s.echoSeq, payload)

	sentAt := s.clock.Now()
	s.pending = &pendingEcho{id: s.echoID, seq: s.echoSeq, target: dst, sentAt: sentAt}
	if err := s.sendIPv4(dst, common.ProtocolICMP, request.Serialize()); err != nil {
		s.pending = nil
		return 0, err
	}

	deadline := sentAt.Add(timeout)
	for {
		s.Poll()
		if s.pending == nil {
			return s.lastRTT, nil
		}
		if !s.clock.Now().Before(deadline) {
			s.pending = nil
			return 0, ErrPingTimeout
		}
		time.Sleep(s.pollInterval)
	}
}

// sendIPv4 wraps payload in an IP header and hands it to the resolver
// for delivery to its next hop: directly for on-link destinations,
// through the default gateway otherwise. Payloads that cannot fit one
// frame are rejected before anything is transmitted.
func (s *Stack) sendIPv4(dst common.IPv4Address, protocol common.Protocol, payload []byte) error {
	if ip.HeaderLength+len(payload) > s.dev.MTU() {
		return ip.ErrPacketTooLarge
	}

	s.ipID++
	pkt := ip.NewPacket(s.addr, dst, protocol, payload)
	pkt.Identification = s.ipID

	nextHop := ip.NextHop(dst, s.addr, s.mask, s.gateway)
	return s.resolver.Transmit(nextHop, common.EtherTypeIPv4, pkt.Serialize())
}

// handleFrame demultiplexes one received frame by EtherType. Frames for
// other hosts and unrecognized types are dropped silently: both are
// routine on a shared medium, neither is actionable.
func (s *Stack) handleFrame(data []byte) {
	frame, err := ethernet.Parse(data)
	if err != nil {
		return
	}
	if !frame.Destination.IsBroadcast() && frame.Destination != s.dev.HardwareAddr() {
		return
	}

	switch frame.EtherType {
	case common.EtherTypeARP:
		packet, err := arp.Parse(frame.Payload)
		if err != nil {
			return
		}
		s.resolver.HandlePacket(packet)

	case common.EtherTypeIPv4:
		s.handleIPv4(frame.Payload)
	}
}

// handleIPv4 validates and dispatches one IP packet. Malformed packets —
// bad checksum, inconsistent lengths — are dropped without an event:
// untrusted network input is never treated as exceptional.
func (s *Stack) handleIPv4(data []byte) {
	pkt, err := ip.Parse(data)
	if err != nil {
		return
	}
	// No reassembly support.
	if pkt.IsFragment() {
		return
	}
	if pkt.Destination != s.addr && !pkt.Destination.IsBroadcast() {
		return
	}

	if pkt.Protocol == common.ProtocolICMP {
		s.handleICMP(pkt)
	}
}

// handleICMP completes a pending ping on a matching reply and answers
// incoming echo requests.
func (s *Stack) handleICMP(pkt *ip.Packet) {
	msg, err := icmp.Parse(pkt.Payload)
	if err != nil {
		return
	}
	if !msg.VerifyChecksum() {
		return
	}

	switch {
	case msg.IsEchoReply():
		p := s.pending
		if p == nil || msg.ID != p.id || msg.Sequence != p.seq || pkt.Source != p.target {
			return
		}
		s.lastRTT = s.clock.Now().Sub(p.sentAt)
		s.pending = nil

	case msg.IsEchoRequest():
		reply := icmp.NewEchoReply(msg)
		s.sendIPv4(pkt.Source, common.ProtocolICMP, reply.Serialize())
	}
}
