package clock

import (
	"time"

	internalclock "github.com/SmitUplenchwar2687/radarplay/internal/clock"
)

// Clock abstracts time so playback works with both real and virtual time.
type Clock = internalclock.Clock

// Timer is a cancellable deferred call returned by Clock.AfterFunc.
type Timer = internalclock.Timer

// RealClock delegates to the standard time package.
type RealClock = internalclock.RealClock

// VirtualClock is a controllable clock for deterministic playback tests.
type VirtualClock = internalclock.VirtualClock

// NewRealClock creates a real wall-clock implementation.
func NewRealClock() *RealClock {
	return internalclock.NewRealClock()
}

// NewVirtualClock creates a virtual clock starting at the given time.
func NewVirtualClock(start time.Time) *VirtualClock {
	return internalclock.NewVirtualClock(start)
}
