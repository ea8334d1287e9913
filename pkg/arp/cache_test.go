package arp

import (
	"testing"
	"time"

	"etherstack/pkg/common"
)

func TestCacheAddAndGet(t *testing.T) {
	clock := common.NewManualClock()
	cache := NewCache(4, time.Minute, clock)

	ip := common.IPv4Address{192, 168, 1, 1}
	mac := common.MACAddress{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	cache.Add(ip, mac)

	gotMAC, found := cache.Get(ip)
	if !found {
		t.Error("Get() found = false, want true")
	}
	if gotMAC != mac {
		t.Errorf("Get() MAC = %v, want %v", gotMAC, mac)
	}

	_, found = cache.Get(common.IPv4Address{192, 168, 1, 2})
	if found {
		t.Error("Get() for absent IP found = true, want false")
	}
}

func TestCacheRefreshKeepsOneEntryPerIP(t *testing.T) {
	clock := common.NewManualClock()
	cache := NewCache(4, time.Minute, clock)

	ip := common.IPv4Address{192, 168, 1, 1}
	mac1 := common.MACAddress{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	mac2 := common.MACAddress{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}

	cache.Add(ip, mac1)
	cache.Add(ip, mac2)

	if cache.Size() != 1 {
		t.Errorf("Size() = %d, want 1", cache.Size())
	}
	gotMAC, _ := cache.Get(ip)
	if gotMAC != mac2 {
		t.Errorf("Get() MAC = %v, want %v", gotMAC, mac2)
	}
}

func TestCacheExpiry(t *testing.T) {
	clock := common.NewManualClock()
	cache := NewCache(4, time.Minute, clock)

	ip := common.IPv4Address{192, 168, 1, 1}
	cache.Add(ip, common.MACAddress{0x00, 0x11, 0x22, 0x33, 0x44, 0x55})

	clock.Advance(59 * time.Second)
	if _, found := cache.Get(ip); !found {
		t.Error("Get() before expiry found = false, want true")
	}

	clock.Advance(2 * time.Second)
	if _, found := cache.Get(ip); found {
		t.Error("Get() after expiry found = true, want false")
	}
}

func TestCacheEvictsExactlyOneWhenFull(t *testing.T) {
	const capacity = 4
	clock := common.NewManualClock()
	cache := NewCache(capacity, time.Minute, clock)

	// Fill the cache; each entry a tick apart so ages are distinct.
	for i := 1; i <= capacity; i++ {
		cache.Add(common.IPv4Address{10, 0, 0, byte(i)}, common.MACAddress{0, 0, 0, 0, 0, byte(i)})
		clock.Advance(time.Second)
	}

	// Insert entry N+1: exactly the oldest must go.
	cache.Add(common.IPv4Address{10, 0, 0, capacity + 1}, common.MACAddress{0, 0, 0, 0, 0, capacity + 1})

	if _, found := cache.Get(common.IPv4Address{10, 0, 0, 1}); found {
		t.Error("oldest entry still present after eviction")
	}
	for i := 2; i <= capacity+1; i++ {
		if _, found := cache.Get(common.IPv4Address{10, 0, 0, byte(i)}); !found {
			t.Errorf("entry %d evicted, want only the oldest gone", i)
		}
	}
}

func TestCachePrefersExpiredVictim(t *testing.T) {
	clock := common.NewManualClock()
	cache := NewCache(2, time.Minute, clock)

	stale := common.IPv4Address{10, 0, 0, 1}
	fresh := common.IPv4Address{10, 0, 0, 2}
	cache.Add(stale, common.MACAddress{0, 0, 0, 0, 0, 1})
	clock.Advance(2 * time.Minute) // stale expires
	cache.Add(fresh, common.MACAddress{0, 0, 0, 0, 0, 2})

	cache.Add(common.IPv4Address{10, 0, 0, 3}, common.MACAddress{0, 0, 0, 0, 0, 3})

	if _, found := cache.Get(fresh); !found {
		t.Error("fresh entry evicted instead of the expired one")
	}
	if _, found := cache.Get(common.IPv4Address{10, 0, 0, 3}); !found {
		t.Error("new entry missing after insert")
	}
}

func TestCacheDeleteAndClear(t *testing.T) {
	clock := common.NewManualClock()
	cache := NewCache(4, time.Minute, clock)

	ip := common.IPv4Address{192, 168, 1, 1}
	cache.Add(ip, common.MACAddress{0x00, 0x11, 0x22, 0x33, 0x44, 0x55})
	cache.Delete(ip)
	if _, found := cache.Get(ip); found {
		t.Error("Get() after Delete found = true, want false")
	}

	for i := 1; i <= 3; i++ {
		cache.Add(common.IPv4Address{10, 0, 0, byte(i)}, common.MACAddress{0, 0, 0, 0, 0, byte(i)})
	}
	cache.Clear()
	if cache.Size() != 0 {
		t.Errorf("Size() after Clear = %d, want 0", cache.Size())
	}
}
