package arp

import (
	"fmt"
	"time"

	"etherstack/pkg/common"
)

// DefaultCacheTimeout is the time after which a cache entry expires.
// RFC 826 doesn't specify a timeout; typical implementations use 60-300
// seconds.
const DefaultCacheTimeout = 5 * time.Minute

// DefaultCacheCapacity bounds the cache to a size suited to a single
// subnet's worth of peers on a memory-constrained target.
const DefaultCacheCapacity = 16

// CacheEntry maps one IP address to a hardware address until expiry.
type CacheEntry struct {
	IP        common.IPv4Address
	MAC       common.MACAddress
	ExpiresAt time.Time
}

// Cache is a fixed-capacity table of IP-to-MAC mappings with at most one
// entry per IP. When full, inserting a new mapping evicts an expired entry
// if one exists, otherwise the oldest. Entries come from a static array —
// no allocation after construction.
//
// The cache is mutated only from the foreground context, so it carries no
// lock.
type Cache struct {
	entries  []CacheEntry
	used     int
	capacity int
	timeout  time.Duration
	clock    common.Clock
}

// NewCache creates a cache holding up to capacity entries that expire
// timeout after insertion, measured against clock.
func NewCache(capacity int, timeout time.Duration, clock common.Clock) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &Cache{
		entries:  make([]CacheEntry, capacity),
		capacity: capacity,
		timeout:  timeout,
		clock:    clock,
	}
}

// Add inserts or refreshes the mapping for ip. Refreshing an existing
// entry resets its expiry.
func (c *Cache) Add(ip common.IPv4Address, mac common.MACAddress) {
	now := c.clock.Now()
	entry := CacheEntry{IP: ip, MAC: mac, ExpiresAt: now.Add(c.timeout)}

	// At most one entry per IP: refresh in place.
	for i := 0; i < c.used; i++ {
		if c.entries[i].IP == ip {
			c.entries[i] = entry
			return
		}
	}

	if c.used < c.capacity {
		c.entries[c.used] = entry
		c.used++
		return
	}

	// Full: replace an expired entry, or failing that the oldest one.
	victim := 0
	for i := 0; i < c.used; i++ {
		if !c.entries[i].ExpiresAt.After(now) {
			victim = i
			break
		}
		if c.entries[i].ExpiresAt.Before(c.entries[victim].ExpiresAt) {
			victim = i
		}
	}
	c.entries[victim] = entry
}

// Get returns the unexpired mapping for ip, if any.
func (c *Cache) Get(ip common.IPv4Address) (common.MACAddress, bool) {
	now := c.clock.Now()
	for i := 0; i < c.used; i++ {
		if c.entries[i].IP == ip {
			if !c.entries[i].ExpiresAt.After(now) {
				return common.MACAddress{}, false
			}
			return c.entries[i].MAC, true
		}
	}
	return common.MACAddress{}, false
}

// Delete removes the mapping for ip.
func (c *Cache) Delete(ip common.IPv4Address) {
	for i := 0; i < c.used; i++ {
		if c.entries[i].IP == ip {
			c.used--
			c.entries[i] = c.entries[c.used]
			c.entries[c.used] = CacheEntry{}
			return
		}
	}
}

// Clear removes every mapping.
func (c *Cache) Clear() {
	for i := range c.entries {
		c.entries[i] = CacheEntry{}
	}
	c.used = 0
}

// Size returns the number of live (unexpired) entries.
func (c *Cache) Size() int {
	now := c.clock.Now()
	n := 0
	for i := 0; i < c.used; i++ {
		if c.entries[i].ExpiresAt.After(now) {
			n++
		}
	}
	return n
}

// String returns a human-readable representation of the cache.
func (c *Cache) String() string {
	now := c.clock.Now()
	result := fmt.Sprintf("ARP Cache (%d entries):\n", c.used)
	for i := 0; i < c.used; i++ {
		e := c.entries[i]
		status := "valid"
		if !e.ExpiresAt.After(now) {
			status = "expired"
		}
		result += fmt.Sprintf("  %s -> %s (%s)\n", e.IP, e.MAC, status)
	}
	return result
}
