// Package sched runs the periodic simulation tasks. Each Job fires on a
// fixed base interval scaled by the simulation speed, and a tick that
// arrives while the previous one is still executing is skipped rather than
// queued, so a slow store never builds a backlog of overlapping ticks.
package sched

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/citygridlabs/traffic-twin/internal/logging"
)

// TickFunc is the body of one tick.
type TickFunc func(ctx context.Context)

// Job periodically invokes a TickFunc. The effective interval is
// base / speed, recomputed after every tick so speed changes take effect
// without restarting the job.
type Job struct {
	name string
	base time.Duration
	fn   TickFunc
	log  logging.Logger

	// speed multiplier, stored as float64 bits.
	speed atomic.Uint64

	// onSkip, when set, observes every suppressed tick.
	onSkip func(name string)

	mu      sync.Mutex
	quit    chan struct{}
	stopped chan struct{}

	busy   atomic.Bool
	inTick sync.WaitGroup
}

// Option configures a Job.
type Option func(*Job)

// WithSkipHook registers a callback invoked with the job name whenever a
// tick is suppressed because the previous one is still running.
func WithSkipHook(fn func(name string)) Option {
	return func(j *Job) { j.onSkip = fn }
}

// NewJob constructs a stopped Job. base must be positive.
func NewJob(name string, base time.Duration, fn TickFunc, log logging.Logger, opts ...Option) *Job {
	if log == nil {
		log = logging.Noop()
	}
	j := &Job{name: name, base: base, fn: fn, log: log}
	j.speed.Store(floatBits(1))
	for _, o := range opts {
		o(j)
	}
	return j
}

// Name returns the job name.
func (j *Job) Name() string { return j.name }

// SetSpeed changes the speed multiplier. Fractional values slow the job
// down below its base cadence. Non-positive values are ignored.
func (j *Job) SetSpeed(speed float64) {
	if speed <= 0 {
		return
	}
	j.speed.Store(floatBits(speed))
}

// Interval returns the effective interval at the current speed.
func (j *Job) Interval() time.Duration {
	speed := floatFrom(j.speed.Load())
	return time.Duration(float64(j.base) / speed)
}

// Start launches the tick loop. Starting a running job is a no-op.
func (j *Job) Start(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.quit != nil {
		return
	}
	j.quit = make(chan struct{})
	j.stopped = make(chan struct{})
	go j.loop(ctx, j.quit, j.stopped)
}

// Stop halts the tick loop and waits for an in-flight tick to finish. An
// executing tick is never interrupted. Stopping a stopped job is a no-op.
func (j *Job) Stop() {
	j.mu.Lock()
	quit, stopped := j.quit, j.stopped
	j.quit = nil
	j.stopped = nil
	j.mu.Unlock()
	if quit == nil {
		return
	}
	close(quit)
	<-stopped
	j.inTick.Wait()
}

func (j *Job) loop(ctx context.Context, quit <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	interval := j.Interval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-quit:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.fire(ctx)
			if next := j.Interval(); next != interval {
				interval = next
				ticker.Reset(interval)
			}
		}
	}
}

// fire runs one tick asynchronously unless the previous tick still holds
// the busy flag, in which case the tick is dropped.
func (j *Job) fire(ctx context.Context) {
	if !j.busy.CompareAndSwap(false, true) {
		if j.onSkip != nil {
			j.onSkip(j.name)
		}
		j.log.Debug(ctx, "tick skipped, previous still running", logging.String("job", j.name))
		return
	}
	j.inTick.Add(1)
	go func() {
		defer j.inTick.Done()
		defer j.busy.Store(false)
		j.fn(ctx)
	}()
}

func floatBits(f float64) uint64 { return math.Float64bits(f) }

func floatFrom(b uint64) float64 { return math.Float64frombits(b) }
