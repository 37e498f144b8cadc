package sched

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/citygridlabs/traffic-twin/internal/logging"
)

func TestJobTicksAtInterval(t *testing.T) {
	var ticks atomic.Int32
	j := NewJob("mobility", 10*time.Millisecond, func(ctx context.Context) {
		ticks.Add(1)
	}, logging.Noop())

	j.Start(context.Background())
	time.Sleep(100 * time.Millisecond)
	j.Stop()

	if got := ticks.Load(); got < 3 {
		t.Fatalf("ticks = %d, want at least 3", got)
	}
}

func TestSlowTickIsSkippedNotQueued(t *testing.T) {
	var started, skipped atomic.Int32
	release := make(chan struct{})
	j := NewJob("mobility", 10*time.Millisecond, func(ctx context.Context) {
		started.Add(1)
		<-release
	}, logging.Noop(), WithSkipHook(func(string) {
		skipped.Add(1)
	}))

	j.Start(context.Background())
	time.Sleep(100 * time.Millisecond)
	close(release)
	j.Stop()

	if got := started.Load(); got != 1 {
		t.Fatalf("started = %d, want exactly 1 while blocked", got)
	}
	if skipped.Load() == 0 {
		t.Fatal("no ticks were skipped while the first was blocked")
	}
}

func TestStopWaitsForInFlightTick(t *testing.T) {
	var finished atomic.Bool
	j := NewJob("congestion", 5*time.Millisecond, func(ctx context.Context) {
		time.Sleep(30 * time.Millisecond)
		finished.Store(true)
	}, logging.Noop())

	j.Start(context.Background())
	time.Sleep(10 * time.Millisecond)
	j.Stop()

	if !finished.Load() {
		t.Fatal("Stop returned before the in-flight tick finished")
	}
}

func TestStartAndStopAreIdempotent(t *testing.T) {
	var ticks atomic.Int32
	j := NewJob("lights", 5*time.Millisecond, func(ctx context.Context) {
		ticks.Add(1)
	}, logging.Noop())

	j.Start(context.Background())
	j.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	j.Stop()
	j.Stop()

	before := ticks.Load()
	time.Sleep(30 * time.Millisecond)
	if after := ticks.Load(); after != before {
		t.Fatalf("ticks advanced after Stop: %d -> %d", before, after)
	}
}

func TestSpeedScalesInterval(t *testing.T) {
	j := NewJob("mobility", 3*time.Second, func(ctx context.Context) {}, logging.Noop())

	if got := j.Interval(); got != 3*time.Second {
		t.Fatalf("Interval() = %v, want 3s", got)
	}
	j.SetSpeed(10)
	if got := j.Interval(); got != 300*time.Millisecond {
		t.Fatalf("Interval() at 10x = %v, want 300ms", got)
	}
	j.SetSpeed(0.5)
	if got := j.Interval(); got != 6*time.Second {
		t.Fatalf("Interval() at 0.5x = %v, want 6s", got)
	}
	j.SetSpeed(0)
	if got := j.Interval(); got != 6*time.Second {
		t.Fatalf("Interval() after invalid speed = %v, want 6s", got)
	}
	j.SetSpeed(-2)
	if got := j.Interval(); got != 6*time.Second {
		t.Fatalf("Interval() after negative speed = %v, want 6s", got)
	}
}
