package ip

import "etherstack/pkg/common"

// NextHop decides which address the datalink layer must resolve to reach
// dst from a host configured with (addr, mask, gateway): destinations on
// the local subnet are reached directly, everything else goes through the
// default gateway. This is the entire routing policy of a single-subnet
// host.
func NextHop(dst, addr, mask, gateway common.IPv4Address) common.IPv4Address {
	if dst.InSubnet(addr, mask) || dst.IsBroadcast() {
		return dst
	}
	return gateway
}
