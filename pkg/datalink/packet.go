package datalink

import (
	"fmt"
	"net"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"etherstack/pkg/common"
	"etherstack/pkg/ethernet"
)

// PacketDevice is a link device backed by an AF_PACKET raw socket bound to
// a host network interface. Opening one requires CAP_NET_RAW (root).
//
// A reader goroutine plays the part of the DMA receive interrupt: it pulls
// frames off the socket and pushes them into the receive ring, doing no
// protocol work of its own. The foreground drains the ring through Poll.
type PacketDevice struct {
	name   string
	fd     int
	mac    common.MACAddress
	index  int
	mtu    int
	pool   *FramePool
	rx     *Ring
	drops  atomic.Uint64
	closed atomic.Bool
}

// OpenPacketDevice opens the named host interface (e.g. "eth0") for raw
// frame I/O with a receive pool of poolSize buffers.
func OpenPacketDevice(ifname string, poolSize int) (*PacketDevice, error) {
	iface, err := net.InterfaceByName(ifname)
	if err != nil {
		return nil, fmt.Errorf("datalink: interface %s: %w", ifname, err)
	}
	if len(iface.HardwareAddr) != 6 {
		return nil, fmt.Errorf("datalink: interface %s has no usable MAC address", ifname)
	}
	var mac common.MACAddress
	copy(mac[:], iface.HardwareAddr)

	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, int(htons(unix.ETH_P_ALL)))
	if err != nil {
		return nil, fmt.Errorf("datalink: raw socket: %w (CAP_NET_RAW required)", err)
	}

	addr := unix.SockaddrLinklayer{
		Protocol: htons(unix.ETH_P_ALL),
		Ifindex:  iface.Index,
	}
	if err := unix.Bind(fd, &addr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("datalink: bind to %s: %w", ifname, err)
	}

	if poolSize <= 0 {
		poolSize = DefaultPoolSize
	}
	mtu := iface.MTU
	if mtu <= 0 || mtu > ethernet.MaxPayloadSize {
		mtu = ethernet.MaxPayloadSize
	}

	d := &PacketDevice{
		name:  ifname,
		fd:    fd,
		mac:   mac,
		index: iface.Index,
		mtu:   mtu,
		pool:  NewFramePool(poolSize, ethernet.MaxFrameSize),
		rx:    NewRing(poolSize),
	}
	go d.readLoop()
	return d, nil
}

// Name returns the host interface name.
func (d *PacketDevice) Name() string {
	return d.name
}

// HardwareAddr returns the interface's MAC address.
func (d *PacketDevice) HardwareAddr() common.MACAddress {
	return d.mac
}

// MTU returns the link MTU.
func (d *PacketDevice) MTU() int {
	return d.mtu
}

// Transmit sends one frame out the interface.
func (d *PacketDevice) Transmit(frame []byte) error {
	if d.closed.Load() {
		return ErrDeviceClosed
	}
	if len(frame) < ethernet.HeaderSize {
		return fmt.Errorf("datalink: frame too short: %d bytes", len(frame))
	}

	addr := unix.SockaddrLinklayer{
		Protocol: htons(unix.ETH_P_ALL),
		Ifindex:  d.index,
		Halen:    6,
	}
	copy(addr.Addr[:], frame[0:6])

	if err := unix.Sendto(d.fd, frame, 0, &addr); err != nil {
		return fmt.Errorf("datalink: send on %s: %w", d.name, err)
	}
	return nil
}

// Poll returns the next received frame, or nil.
func (d *PacketDevice) Poll() *FrameBuffer {
	return d.rx.Pop()
}

// Drops returns the cumulative receive-drop count.
func (d *PacketDevice) Drops() uint64 {
	return d.drops.Load()
}

// Close stops the reader and closes the socket.
func (d *PacketDevice) Close() error {
	if d.closed.Swap(true) {
		return nil
	}
	return unix.Close(d.fd)
}

// readLoop is the receive context. It never touches protocol state; it
// only moves bytes into pool buffers and hands them to the foreground.
func (d *PacketDevice) readLoop() {
	scratch := make([]byte, ethernet.MaxFrameSize)
	for {
		n, _, err := unix.Recvfrom(d.fd, scratch, 0)
		if err != nil {
			if d.closed.Load() {
				return
			}
			continue
		}
		if n < ethernet.HeaderSize {
			continue
		}

		buf := d.pool.Get()
		if buf == nil {
			// No free receive buffer: drop the frame and count it.
			d.drops.Add(1)
			continue
		}
		buf.SetLength(copy(buf.data, scratch[:n]))
		d.rx.Push(buf)
	}
}

// htons converts a 16-bit integer from host to network byte order.
func htons(v uint16) uint16 {
	return (v << 8) | (v >> 8)
}
