// Package timectrl drives simulated time for headless runs. The embedded
// store stamps every write with a clock, and replaying a scenario faster
// than wall time needs those stamps to come from simulation time rather
// than time.Now.
package timectrl

import (
	"context"
	"sync"
	"time"
)

// Clock is the read side of a time source.
type Clock interface {
	// Now returns the current simulation time.
	Now() time.Time
}

// Controller advances simulation time on a fixed wall-clock cadence and
// notifies registered listeners on every step. A Step larger than Tick
// runs the scenario faster than real time.
type Controller struct {
	// Tick is the wall-clock cadence of the advance loop.
	Tick time.Duration
	// Step is how far simulation time moves per tick.
	Step time.Duration

	mu      sync.RWMutex
	current time.Time

	listeners []func(time.Time)
}

// NewController constructs a controller positioned at start. A Step equal
// to Tick runs in real time.
func NewController(start time.Time, tick, step time.Duration) *Controller {
	return &Controller{
		Tick:    tick,
		Step:    step,
		current: start,
	}
}

// Now returns the current simulation time. Implements Clock.
func (c *Controller) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// AddListener registers a callback invoked on every step. Listeners must
// be registered before Run.
func (c *Controller) AddListener(fn func(time.Time)) {
	c.listeners = append(c.listeners, fn)
}

// Advance moves simulation time forward by d and notifies listeners.
func (c *Controller) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	c.current = c.current.Add(d)
	now := c.current
	c.mu.Unlock()

	for _, fn := range c.listeners {
		fn(now)
	}
	return now
}

// Run advances simulation time until the given simulated duration has
// elapsed or ctx is cancelled. It returns a channel closed when the loop
// stops.
func (c *Controller) Run(ctx context.Context, duration time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		elapsed := time.Duration(0)
		ticker := time.NewTicker(c.Tick)
		defer ticker.Stop()

		for {
			if duration > 0 && elapsed >= duration {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			c.Advance(c.Step)
			elapsed += c.Step
		}
	}()
	return done
}
