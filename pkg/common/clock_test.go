package common

import (
	"testing"
	"time"
)

func TestManualClockAdvance(t *testing.T) {
	clock := NewManualClock()

	start := clock.Now()
	clock.Advance(250 * time.Millisecond)
	if got := clock.Now().Sub(start); got != 250*time.Millisecond {
		t.Errorf("Now() advanced by %v, want 250ms", got)
	}

	// Time must not move on its own.
	if got := clock.Now().Sub(start); got != 250*time.Millisecond {
		t.Errorf("Now() moved without Advance(): %v", got)
	}
}

func TestSystemClockMonotonic(t *testing.T) {
	clock := SystemClock()
	a := clock.Now()
	b := clock.Now()
	if b.Before(a) {
		t.Errorf("Now() went backwards: %v then %v", a, b)
	}
}
