package clock

import (
	"sync"
	"time"
)

// VirtualClock is a controllable clock for deterministic playback testing.
// It allows advancing time instantly without waiting, so a recording that
// spans minutes can be played back in a test in microseconds.
//
// Thread-safe for concurrent use.
type VirtualClock struct {
	mu      sync.RWMutex
	current time.Time
	seq     uint64
	waiters []*waiter
}

// waiter is either a channel waiter (After) or a callback waiter (AfterFunc).
type waiter struct {
	clock    *VirtualClock
	deadline time.Time
	seq      uint64
	ch       chan time.Time
	fn       func()
}

// NewVirtualClock creates a VirtualClock starting at the given time.
func NewVirtualClock(start time.Time) *VirtualClock {
	return &VirtualClock{
		current: start,
	}
}

// Now returns the current virtual time.
func (c *VirtualClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Since returns the virtual duration elapsed since t.
func (c *VirtualClock) Since(t time.Time) time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current.Sub(t)
}

// After returns a channel that receives the virtual time once the clock
// has advanced past the current time plus d. The channel fires during
// Advance() or Set() calls when the deadline is reached.
func (c *VirtualClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan time.Time, 1)

	// If duration is zero or negative, fire immediately.
	if d <= 0 {
		ch <- c.current
		return ch
	}

	c.addLocked(&waiter{deadline: c.current.Add(d), ch: ch})
	return ch
}

// AfterFunc registers f to run once the virtual clock reaches now+d.
// Callbacks never run inside AfterFunc itself, even for d <= 0; they run
// on the goroutine that calls Advance or Set.
func (c *VirtualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	if d < 0 {
		d = 0
	}
	w := &waiter{clock: c, deadline: c.current.Add(d), fn: f}
	c.addLocked(w)
	return w
}

// Stop removes the waiter if it has not fired yet.
func (w *waiter) Stop() bool {
	c := w.clock
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, other := range c.waiters {
		if other == w {
			c.waiters = append(c.waiters[:i], c.waiters[i+1:]...)
			return true
		}
	}
	return false
}

// Pending returns the number of armed waiters.
func (c *VirtualClock) Pending() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.waiters)
}

// Advance moves the virtual clock forward by the given duration.
// Waiters whose deadlines fall inside the window fire in deadline order,
// with the clock set to each deadline as it fires. Callbacks may arm new
// timers; those fire too if they land inside the window.
// Panics if d is negative.
func (c *VirtualClock) Advance(d time.Duration) {
	if d < 0 {
		panic("clock: cannot advance by negative duration")
	}

	c.mu.RLock()
	target := c.current.Add(d)
	c.mu.RUnlock()

	c.runUntil(target)
}

// Set sets the virtual clock to an exact time.
// It fires any waiters whose deadlines have been reached.
// Panics if t is before the current time.
func (c *VirtualClock) Set(t time.Time) {
	c.mu.RLock()
	past := t.Before(c.current)
	c.mu.RUnlock()
	if past {
		panic("clock: cannot set time to the past")
	}

	c.runUntil(t)
}

// runUntil fires due waiters one at a time without holding the lock while
// a callback runs, then parks the clock at target.
func (c *VirtualClock) runUntil(target time.Time) {
	for {
		c.mu.Lock()
		w := c.popDueLocked(target)
		if w == nil {
			if target.After(c.current) {
				c.current = target
			}
			c.mu.Unlock()
			return
		}
		if w.deadline.After(c.current) {
			c.current = w.deadline
		}
		now := c.current
		c.mu.Unlock()

		if w.fn != nil {
			w.fn()
		} else {
			w.ch <- now
		}
	}
}

// addLocked appends a waiter. Must be called with c.mu held.
func (c *VirtualClock) addLocked(w *waiter) {
	c.seq++
	w.seq = c.seq
	c.waiters = append(c.waiters, w)
}

// popDueLocked removes and returns the earliest waiter at or before target,
// breaking ties by registration order. Must be called with c.mu held.
func (c *VirtualClock) popDueLocked(target time.Time) *waiter {
	best := -1
	for i, w := range c.waiters {
		if w.deadline.After(target) {
			continue
		}
		if best < 0 || w.deadline.Before(c.waiters[best].deadline) ||
			(w.deadline.Equal(c.waiters[best].deadline) && w.seq < c.waiters[best].seq) {
			best = i
		}
	}
	if best < 0 {
		return nil
	}
	w := c.waiters[best]
	c.waiters = append(c.waiters[:best], c.waiters[best+1:]...)
	return w
}
