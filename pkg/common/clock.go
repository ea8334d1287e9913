package common

import (
	"sync/atomic"
	"time"
)

// Clock is the time source the stack measures against. The stack never reads
// wall-clock time directly; every expiry deadline and round-trip measurement
// goes through a Clock supplied at initialisation. This mirrors an embedded
// target where a tick counter or RTC is the only notion of time.
type Clock interface {
	Now() time.Time
}

// SystemClock returns a Clock backed by the runtime's monotonic clock.
func SystemClock() Clock {
	return systemClock{}
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// ManualClock is a Clock that only moves when told to. It is safe for the
// advancing side and the reading side to run on different goroutines, which
// lets tests drive timeouts deterministically.
type ManualClock struct {
	nanos atomic.Int64
	base  time.Time
}

// NewManualClock creates a ManualClock starting at an arbitrary fixed instant.
func NewManualClock() *ManualClock {
	return &ManualClock{base: time.Unix(0, 0)}
}

// Now returns the current manual time.
func (c *ManualClock) Now() time.Time {
	return c.base.Add(time.Duration(c.nanos.Load()))
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.nanos.Add(int64(d))
}
