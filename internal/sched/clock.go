package sched

import (
	"sync"
	"time"
)

// Epoch is the fixed anchor for virtual time. Runs with the same seed and
// config emit identical timestamps because nothing depends on wall time.
var Epoch = time.Unix(0, 0).UTC()

// Clock tracks virtual simulation time as an offset from Epoch.
// It only moves forward, driven by the event queue.
type Clock struct {
	mu      sync.RWMutex
	epoch   time.Time
	elapsed time.Duration
}

// NewClock returns a clock at Epoch with zero elapsed time.
func NewClock() *Clock {
	return &Clock{epoch: Epoch}
}

// Now returns the current simulation time.
func (c *Clock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.epoch.Add(c.elapsed)
}

// Elapsed returns the virtual duration since the start of the run.
func (c *Clock) Elapsed() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.elapsed
}

// Seconds returns the elapsed virtual time in seconds.
func (c *Clock) Seconds() float64 {
	return c.Elapsed().Seconds()
}

// advanceTo moves the clock forward to offset d. The clock never moves
// backwards; a stale offset leaves it unchanged.
func (c *Clock) advanceTo(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d > c.elapsed {
		c.elapsed = d
	}
}
