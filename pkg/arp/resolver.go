package arp

import (
	"fmt"
	"time"

	"etherstack/pkg/common"
	"etherstack/pkg/datalink"
	"etherstack/pkg/ethernet"
)

// DefaultRequestTimeout bounds how long a resolution may sit in
// StateRequestSent before it is declared failed.
const DefaultRequestTimeout = 3 * time.Second

// State tracks one outstanding resolution.
type State uint8

const (
	// StateUnresolved means no request is in flight for the address.
	StateUnresolved State = iota

	// StateRequestSent means a request was broadcast and a reply is awaited.
	StateRequestSent

	// StateResolved means a reply arrived and the mapping is cached.
	StateResolved

	// StateTimedOut means no reply arrived within the bounded interval.
	StateTimedOut
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUnresolved:
		return "Unresolved"
	case StateRequestSent:
		return "RequestSent"
	case StateResolved:
		return "Resolved"
	case StateTimedOut:
		return "TimedOut"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(s))
	}
}

// resolution is the per-target record while a request is outstanding.
// It queues at most one payload: a later transmit for the same unresolved
// target replaces the queued one (last-write-wins).
type resolution struct {
	deadline  time.Time
	etherType common.EtherType
	payload   []byte
}

// Resolver owns address resolution for one interface: the cache, the
// request/reply exchange, and the single queued payload per unresolved
// target. It is driven entirely from the foreground context.
type Resolver struct {
	dev       datalink.Device
	cache     *Cache
	clock     common.Clock
	localIP   common.IPv4Address
	timeout   time.Duration
	pending   map[common.IPv4Address]*resolution
	onFailure func(common.IPv4Address)
}

// NewResolver creates a resolver sending and receiving through dev,
// owning cache, with the given request timeout.
func NewResolver(dev datalink.Device, cache *Cache, clock common.Clock, localIP common.IPv4Address, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Resolver{
		dev:     dev,
		cache:   cache,
		clock:   clock,
		localIP: localIP,
		timeout: timeout,
		pending: make(map[common.IPv4Address]*resolution),
	}
}

// Cache returns the resolver's cache table.
func (r *Resolver) Cache() *Cache {
	return r.cache
}

// OnFailure registers the callback invoked when a resolution times out.
// The queued payload for the target has been discarded by then.
func (r *Resolver) OnFailure(fn func(common.IPv4Address)) {
	r.onFailure = fn
}

// PendingState reports the state of the resolution for ip.
func (r *Resolver) PendingState(ip common.IPv4Address) State {
	if _, ok := r.cache.Get(ip); ok {
		return StateResolved
	}
	if _, ok := r.pending[ip]; ok {
		return StateRequestSent
	}
	return StateUnresolved
}

// Transmit sends payload as an Ethernet frame of the given type to nextHop,
// resolving its hardware address first if necessary. On a cache miss the
// payload is queued, a request is broadcast, and delivery happens when the
// reply arrives; an existing queued payload for the same target is
// replaced.
func (r *Resolver) Transmit(nextHop common.IPv4Address, etherType common.EtherType, payload []byte) error {
	if nextHop.IsBroadcast() {
		return r.send(common.BroadcastMAC, etherType, payload)
	}

	if mac, ok := r.cache.Get(nextHop); ok {
		return r.send(mac, etherType, payload)
	}

	queued := make([]byte, len(payload))
	copy(queued, payload)

	if res, ok := r.pending[nextHop]; ok {
		// Last-write-wins: one queued packet per unresolved target.
		res.etherType = etherType
		res.payload = queued
		return nil
	}

	r.pending[nextHop] = &resolution{
		deadline:  r.clock.Now().Add(r.timeout),
		etherType: etherType,
		payload:   queued,
	}
	return r.sendRequest(nextHop)
}

// HandlePacket processes one received ARP packet: learn mappings, answer
// requests for our address, and flush any transmission queued on the
// sender's resolution.
func (r *Resolver) HandlePacket(packet *Packet) error {
	switch {
	case packet.IsRequest():
		// Refresh an existing mapping unconditionally, but only create
		// one when we are the target, so chatter for other hosts cannot
		// flush the bounded cache.
		if _, known := r.cache.Get(packet.SenderIP); known || packet.TargetIP == r.localIP {
			r.cache.Add(packet.SenderIP, packet.SenderMAC)
		}
		if packet.TargetIP != r.localIP {
			return nil
		}
		return r.sendReply(packet.SenderMAC, packet.SenderIP)

	case packet.IsReply():
		r.cache.Add(packet.SenderIP, packet.SenderMAC)

		res, ok := r.pending[packet.SenderIP]
		if !ok {
			return nil
		}
		delete(r.pending, packet.SenderIP)
		return r.send(packet.SenderMAC, res.etherType, res.payload)

	default:
		return fmt.Errorf("unknown ARP operation: %d", packet.Operation)
	}
}

// CheckTimeouts expires outstanding resolutions whose deadline has passed,
// discarding their queued payloads and reporting each failed target.
func (r *Resolver) CheckTimeouts() {
	now := r.clock.Now()
	for ip, res := range r.pending {
		if res.deadline.After(now) {
			continue
		}
		delete(r.pending, ip)
		if r.onFailure != nil {
			r.onFailure(ip)
		}
	}
}

// Announce broadcasts a gratuitous ARP advertising our own mapping,
// typically once at startup.
func (r *Resolver) Announce() error {
	packet := NewRequest(r.dev.HardwareAddr(), r.localIP, r.localIP)
	return r.send(common.BroadcastMAC, common.EtherTypeARP, packet.Serialize())
}

func (r *Resolver) sendRequest(targetIP common.IPv4Address) error {
	packet := NewRequest(r.dev.HardwareAddr(), r.localIP, targetIP)
	return r.send(common.BroadcastMAC, common.EtherTypeARP, packet.Serialize())
}

func (r *Resolver) sendReply(targetMAC common.MACAddress, targetIP common.IPv4Address) error {
	packet := NewReply(r.dev.HardwareAddr(), r.localIP, targetMAC, targetIP)
	return r.send(targetMAC, common.EtherTypeARP, packet.Serialize())
}

func (r *Resolver) send(dst common.MACAddress, etherType common.EtherType, payload []byte) error {
	frame := ethernet.NewFrame(dst, r.dev.HardwareAddr(), etherType, payload)
	data, err := frame.Serialize()
	if err != nil {
		return err
	}
	return r.dev.Transmit(data)
}
