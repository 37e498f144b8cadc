// Command twin-sim runs the road network simulation headless against an
// in-memory store and prints the resulting statistics as JSON. Simulation
// time is driven by a controllable clock so long scenarios replay in
// seconds of wall time.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/citygridlabs/traffic-twin/internal/logging"
	"github.com/citygridlabs/traffic-twin/internal/sim"
	"github.com/citygridlabs/traffic-twin/internal/sim/state"
	"github.com/citygridlabs/traffic-twin/ledger"
	"github.com/citygridlabs/traffic-twin/timectrl"
)

func main() {
	duration := flag.Duration("duration", 10*time.Minute, "simulated duration to run")
	tick := flag.Duration("tick", 100*time.Millisecond, "wall-clock cadence of the time controller")
	step := flag.Duration("step", 10*time.Second, "simulated time advanced per tick")
	spawnRate := flag.Float64("spawn-rate", 2, "vehicles spawned per simulated minute")
	flag.Parse()

	if err := run(*duration, *tick, *step, *spawnRate); err != nil {
		fmt.Fprintln(os.Stderr, "twin-sim:", err)
		os.Exit(1)
	}
}

func run(duration, tick, step time.Duration, spawnRate float64) error {
	log := logging.NewFromEnv()
	ctx := context.Background()

	store, err := ledger.Open(ledger.Options{InMemory: true})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	start := time.Now().UTC().Truncate(time.Second)
	clock := timectrl.NewController(start, tick, step)

	traffic := state.New(store, log, state.WithClock(clock.Now))
	if _, err := traffic.InitNetwork(ctx); err != nil {
		return fmt.Errorf("seed network: %w", err)
	}

	orch := sim.New(traffic, log)
	// The orchestrator paces its jobs on wall time. Matching its speed
	// multiplier to the clock ratio keeps ledger timestamps and task
	// cadence in the same timescale.
	if err := orch.SetSpeed(float64(step) / float64(tick)); err != nil {
		return fmt.Errorf("set speed: %w", err)
	}
	if err := orch.SetSpawnRate(spawnRate); err != nil {
		return fmt.Errorf("set spawn rate: %w", err)
	}
	if err := orch.Start(ctx); err != nil {
		return fmt.Errorf("start simulation: %w", err)
	}

	log.Info(ctx, "running headless simulation",
		logging.String("duration", duration.String()),
		logging.String("step", step.String()),
		logging.Float("spawnRate", spawnRate),
	)
	<-clock.Run(ctx, duration)
	orch.Stop()

	stats, err := traffic.GetNetworkStatistics(ctx)
	if err != nil {
		return fmt.Errorf("collect statistics: %w", err)
	}
	out := struct {
		Simulation sim.Stats                `json:"simulation"`
		Network    *state.NetworkStatistics `json:"network"`
	}{
		Simulation: orch.Stats(),
		Network:    stats,
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
