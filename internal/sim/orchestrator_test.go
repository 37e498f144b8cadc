package sim

import (
	"context"
	"testing"
)

func TestStartPauseResumeLifecycle(t *testing.T) {
	o, traffic := newSim(t)
	ctx := context.Background()

	if _, err := traffic.InitNetwork(ctx); err != nil {
		t.Fatalf("InitNetwork: %v", err)
	}
	if err := o.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer o.Stop()

	if !o.Stats().Running {
		t.Fatal("not running after Start")
	}
	if err := o.Start(ctx); err != nil {
		t.Fatalf("second Start: %v", err)
	}

	o.Pause()
	if o.Stats().Running {
		t.Fatal("running after Pause")
	}
	o.Pause()

	o.Resume()
	if !o.Stats().Running {
		t.Fatal("not running after Resume")
	}
	o.Resume()
}

func TestResetRestoresCounters(t *testing.T) {
	o, traffic := newSim(t)
	ctx := context.Background()

	if _, err := traffic.InitNetwork(ctx); err != nil {
		t.Fatalf("InitNetwork: %v", err)
	}
	if err := o.Reset(ctx); err != nil {
		t.Fatalf("initial Reset: %v", err)
	}

	o.spawnTick(ctx)
	o.spawnTick(ctx)
	if got := o.Stats().TransactionCount; got != 2 {
		t.Fatalf("transactions = %d, want 2", got)
	}

	if err := o.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	s := o.Stats()
	if s.TransactionCount != 0 {
		t.Errorf("transactions after reset = %d, want 0", s.TransactionCount)
	}
	if s.Running {
		t.Error("running after reset")
	}

	// The vehicle counter restarts at 1000. The previous SIM1000 still
	// exists, so the next spawn collides and is dropped as benign.
	o.spawnTick(ctx)
	if got := o.Stats().TransactionCount; got != 0 {
		t.Errorf("transactions after colliding spawn = %d, want 0", got)
	}
}

func TestSetSpeedValidation(t *testing.T) {
	o, _ := newSim(t)

	if err := o.SetSpeed(0); err == nil {
		t.Error("SetSpeed(0) succeeded, want error")
	}
	if err := o.SetSpeed(-1); err == nil {
		t.Error("SetSpeed(-1) succeeded, want error")
	}
	if err := o.SetSpeed(10); err != nil {
		t.Errorf("SetSpeed(10): %v", err)
	}
	if got := o.Stats().Speed; got != 10 {
		t.Errorf("speed = %v, want 10", got)
	}
	// Slow motion is a valid setting too.
	if err := o.SetSpeed(0.5); err != nil {
		t.Errorf("SetSpeed(0.5): %v", err)
	}
	if got := o.Stats().Speed; got != 0.5 {
		t.Errorf("speed = %v, want 0.5", got)
	}
}

func TestZeroSpawnRateDisablesSpawning(t *testing.T) {
	o, traffic := newSim(t)
	ctx := context.Background()

	if _, err := traffic.InitNetwork(ctx); err != nil {
		t.Fatalf("InitNetwork: %v", err)
	}
	if err := o.SetSpawnRate(0); err != nil {
		t.Fatalf("SetSpawnRate(0): %v", err)
	}
	if err := o.SetSpawnRate(-1); err == nil {
		t.Error("SetSpawnRate(-1) succeeded, want error")
	}

	if err := o.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer o.Stop()

	o.mu.Lock()
	spawnJob := o.spawnJob
	o.mu.Unlock()
	if spawnJob != nil {
		t.Error("spawn job scheduled at rate 0")
	}
}

func TestStatsSnapshot(t *testing.T) {
	o, traffic := newSim(t)
	ctx := context.Background()

	if _, err := traffic.InitNetwork(ctx); err != nil {
		t.Fatalf("InitNetwork: %v", err)
	}
	if err := o.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	// The fleet count is primed by the snapshot load, not the first tick.
	if got := o.Stats().TotalVehicles; got != 5 {
		t.Errorf("vehicles before first tick = %d, want 5", got)
	}

	o.mobilityTick(ctx)

	s := o.Stats()
	if s.TotalRoads != 6 || s.TotalIntersections != 5 {
		t.Errorf("graph counts = %d roads, %d intersections", s.TotalRoads, s.TotalIntersections)
	}
	if s.TotalVehicles != 5 {
		t.Errorf("vehicles = %d, want 5", s.TotalVehicles)
	}
	if s.SpawnRate != 2 || s.Speed != 1 {
		t.Errorf("defaults = speed %v, rate %v", s.Speed, s.SpawnRate)
	}

	if s.TransactionCount == 0 {
		t.Error("mobility tick produced no transactions")
	}
}
