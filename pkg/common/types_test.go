package common

import (
	"testing"
)

func TestMACAddressString(t *testing.T) {
	mac := MACAddress{0x00, 0x11, 0x22, 0xAA, 0xBB, 0xCC}
	want := "00:11:22:aa:bb:cc"
	if got := mac.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestParseMAC(t *testing.T) {
	mac, err := ParseMAC("00:11:22:33:44:55")
	if err != nil {
		t.Fatalf("ParseMAC() error = %v", err)
	}
	want := MACAddress{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	if mac != want {
		t.Errorf("ParseMAC() = %v, want %v", mac, want)
	}

	if _, err := ParseMAC("not-a-mac"); err == nil {
		t.Error("ParseMAC() error = nil for invalid input, want error")
	}
}

func TestMACAddressClassification(t *testing.T) {
	if !BroadcastMAC.IsBroadcast() {
		t.Error("BroadcastMAC.IsBroadcast() = false, want true")
	}
	unicast := MACAddress{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	if unicast.IsBroadcast() {
		t.Error("unicast IsBroadcast() = true, want false")
	}
	if unicast.IsMulticast() {
		t.Error("unicast IsMulticast() = true, want false")
	}
	multicast := MACAddress{0x01, 0x00, 0x5E, 0x00, 0x00, 0x01}
	if !multicast.IsMulticast() {
		t.Error("multicast IsMulticast() = false, want true")
	}
}

func TestParseIPv4(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    IPv4Address
		wantErr bool
	}{
		{"valid address", "192.168.0.10", IPv4Address{192, 168, 0, 10}, false},
		{"zero address", "0.0.0.0", IPv4Address{0, 0, 0, 0}, false},
		{"broadcast", "255.255.255.255", IPv4Address{255, 255, 255, 255}, false},
		{"garbage", "not.an.ip.addr", IPv4Address{}, true},
		{"ipv6 address", "fe80::1", IPv4Address{}, true},
		{"empty", "", IPv4Address{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIPv4(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseIPv4(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseIPv4(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestIPv4AddressString(t *testing.T) {
	ip := IPv4Address{10, 0, 0, 1}
	if got := ip.String(); got != "10.0.0.1" {
		t.Errorf("String() = %q, want %q", got, "10.0.0.1")
	}
}

func TestInSubnet(t *testing.T) {
	network := IPv4Address{192, 168, 0, 10}
	mask := IPv4Address{255, 255, 255, 0}

	tests := []struct {
		name string
		ip   IPv4Address
		want bool
	}{
		{"same subnet", IPv4Address{192, 168, 0, 1}, true},
		{"same host", IPv4Address{192, 168, 0, 10}, true},
		{"subnet broadcast", IPv4Address{192, 168, 0, 255}, true},
		{"adjacent subnet", IPv4Address{192, 168, 1, 2}, false},
		{"different network", IPv4Address{10, 0, 0, 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ip.InSubnet(network, mask); got != tt.want {
				t.Errorf("InSubnet(%v, %v) = %v, want %v", network, mask, got, tt.want)
			}
		})
	}
}

func TestIPv4Uint32RoundTrip(t *testing.T) {
	ip := IPv4Address{192, 168, 1, 42}
	if got := IPv4FromUint32(ip.ToUint32()); got != ip {
		t.Errorf("IPv4FromUint32(ToUint32()) = %v, want %v", got, ip)
	}
}
