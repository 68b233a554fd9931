// Package simclock implements the ports.SimClock port. UnlimitedClock is
// the deterministic reference variant: it never sleeps and always reports
// readiness to tick. The rate-limited, real-time clock variant described in
// spec.md §1 is explicitly out of scope for this core.
package simclock

import (
	"simcore/internal/ports"
	"simcore/internal/primitives"
)

// UnlimitedClock advances on demand with no throttling and no dependency on
// wall-clock time.
type UnlimitedClock struct {
	tick primitives.Tick
}

// New returns an UnlimitedClock at genesis tick 0.
func New() *UnlimitedClock {
	return &UnlimitedClock{}
}

// CurrentTick returns the clock's current tick.
func (c *UnlimitedClock) CurrentTick() primitives.Tick { return c.tick }

// SimTime returns the sim time derived from the current tick.
func (c *UnlimitedClock) SimTime() primitives.SimTime {
	return primitives.SimTimeFromTicks(c.tick)
}

// Advance increments the tick by one and returns the new value. The engine
// itself advances ticks through World.AdvanceTick; this mirrors that for
// callers that only hold the clock port.
func (c *UnlimitedClock) Advance() primitives.Tick {
	c.tick++
	return c.tick
}

// SetTick overwrites the clock's tick, used by the engine only on recovery.
func (c *UnlimitedClock) SetTick(t primitives.Tick) {
	c.tick = t
}

// ShouldTick always reports true: an unlimited clock never throttles.
func (c *UnlimitedClock) ShouldTick() bool { return true }

// WaitForNextTick is a no-op: there is nothing to wait for.
func (c *UnlimitedClock) WaitForNextTick() {}

var _ ports.SimClock = (*UnlimitedClock)(nil)
