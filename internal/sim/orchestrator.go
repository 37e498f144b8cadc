// Package sim drives the traffic simulation: periodic mobility, light
// cycling, vehicle spawning and congestion derivation, plus the security
// mitigation worker. The asset store stays the only authority; everything
// cached here is a disposable snapshot.
package sim

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/citygridlabs/traffic-twin/core"
	"github.com/citygridlabs/traffic-twin/internal/logging"
	"github.com/citygridlabs/traffic-twin/internal/sched"
	"github.com/citygridlabs/traffic-twin/internal/sim/state"
	"github.com/citygridlabs/traffic-twin/model"
)

// Base intervals at speed 1, matching the live system's cadence.
const (
	mobilityInterval   = 3 * time.Second
	lightsInterval     = 15 * time.Second
	congestionInterval = 10 * time.Second
	spawnBaseInterval  = time.Minute

	defaultBatchSize = 10

	moveDelay  = 150 * time.Millisecond
	lightDelay = 50 * time.Millisecond
)

// Intervals carries the base cadence of each periodic task. Tests shrink
// these; production uses Defaults.
type Intervals struct {
	Mobility   time.Duration
	Lights     time.Duration
	Congestion time.Duration
	// SpawnBase is divided by the spawn rate to get the spawn interval.
	SpawnBase time.Duration
	// MoveDelay and LightDelay space out writes inside one tick.
	MoveDelay  time.Duration
	LightDelay time.Duration
}

// DefaultIntervals returns the production cadence.
func DefaultIntervals() Intervals {
	return Intervals{
		Mobility:   mobilityInterval,
		Lights:     lightsInterval,
		Congestion: congestionInterval,
		SpawnBase:  spawnBaseInterval,
		MoveDelay:  moveDelay,
		LightDelay: lightDelay,
	}
}

// Orchestrator owns the simulation lifecycle and its periodic jobs.
type Orchestrator struct {
	traffic   *state.Traffic
	log       logging.Logger
	intervals Intervals
	onSkip    func(name string)
	onTick    func(name string, took time.Duration)

	mu        sync.Mutex
	running   bool
	speed     float64
	spawnRate float64
	batchSize int
	network   *core.Network
	jobs      []*sched.Job
	spawnJob  *sched.Job
	baseCtx   context.Context

	vehicleCounter atomic.Int64
	txCount        atomic.Int64
	lastVehicles   atomic.Int64
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithIntervals overrides the task cadence.
func WithIntervals(iv Intervals) Option {
	return func(o *Orchestrator) { o.intervals = iv }
}

// WithBatchSize bounds vehicle moves per mobility tick.
func WithBatchSize(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithSkipHook observes suppressed ticks, keyed by job name.
func WithSkipHook(fn func(name string)) Option {
	return func(o *Orchestrator) { o.onSkip = fn }
}

// WithTickObserver observes completed tick durations, keyed by job name.
func WithTickObserver(fn func(name string, took time.Duration)) Option {
	return func(o *Orchestrator) { o.onTick = fn }
}

// New constructs a stopped Orchestrator.
func New(traffic *state.Traffic, log logging.Logger, opts ...Option) *Orchestrator {
	if log == nil {
		log = logging.Noop()
	}
	o := &Orchestrator{
		traffic:   traffic,
		log:       log,
		intervals: DefaultIntervals(),
		speed:     1,
		spawnRate: 2,
		batchSize: defaultBatchSize,
	}
	o.vehicleCounter.Store(1000)
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start loads the road graph and launches all periodic jobs. Starting a
// running simulation is a no-op.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return nil
	}
	if err := o.reloadNetworkLocked(ctx); err != nil {
		return fmt.Errorf("load network: %w", err)
	}
	o.baseCtx = ctx
	o.startJobsLocked()
	o.running = true
	o.log.Info(ctx, "simulation started",
		logging.Float("speed", o.speed),
		logging.Float("spawn_rate", o.spawnRate),
		logging.Int("roads", o.network.RoadCount()),
		logging.Int("intersections", o.network.IntersectionCount()))
	return nil
}

// Pause stops future ticks. In-flight ticks finish; counters keep their
// values.
func (o *Orchestrator) Pause() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.running {
		return
	}
	o.stopJobsLocked()
	o.running = false
	o.log.Info(context.Background(), "simulation paused")
}

// Resume relaunches the jobs after a pause. Resuming a running simulation
// is a no-op.
func (o *Orchestrator) Resume() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running || o.baseCtx == nil {
		return
	}
	o.startJobsLocked()
	o.running = true
	o.log.Info(context.Background(), "simulation resumed")
}

// Reset pauses the simulation, restores the counters and reloads the road
// graph. The store itself is untouched.
func (o *Orchestrator) Reset(ctx context.Context) error {
	o.Pause()
	o.vehicleCounter.Store(1000)
	o.txCount.Store(0)

	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.reloadNetworkLocked(ctx); err != nil {
		return fmt.Errorf("load network: %w", err)
	}
	o.log.Info(ctx, "simulation reset")
	return nil
}

// SetSpeed changes the simulation speed multiplier. Running jobs restart so
// the new cadence applies immediately.
func (o *Orchestrator) SetSpeed(speed float64) error {
	if speed <= 0 {
		return fmt.Errorf("speed must be positive, got %v", speed)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.speed = speed
	if o.running {
		o.stopJobsLocked()
		o.startJobsLocked()
	}
	o.log.Info(context.Background(), "simulation speed changed", logging.Float("speed", speed))
	return nil
}

// SetSpawnRate changes the vehicles-per-minute rate. Only the spawn job
// reschedules; zero disables spawning.
func (o *Orchestrator) SetSpawnRate(rate float64) error {
	if rate < 0 {
		return fmt.Errorf("spawn rate must not be negative, got %v", rate)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.spawnRate = rate
	if o.running {
		if o.spawnJob != nil {
			o.spawnJob.Stop()
			o.spawnJob = nil
		}
		o.startSpawnJobLocked()
	}
	o.log.Info(context.Background(), "spawn rate changed", logging.Float("rate", rate))
	return nil
}

// Stats is a point-in-time summary. The simulation moves on while the
// caller reads it.
type Stats struct {
	Running            bool    `json:"isRunning"`
	Speed              float64 `json:"speed"`
	SpawnRate          float64 `json:"spawnRate"`
	TotalVehicles      int     `json:"totalVehicles"`
	TotalRoads         int     `json:"totalRoads"`
	TotalIntersections int     `json:"totalIntersections"`
	TransactionCount   int64   `json:"transactionCount"`
}

// Stats reports the orchestrator's current view.
func (o *Orchestrator) Stats() Stats {
	o.mu.Lock()
	roads, intersections := 0, 0
	if o.network != nil {
		roads = o.network.RoadCount()
		intersections = o.network.IntersectionCount()
	}
	s := Stats{
		Running:            o.running,
		Speed:              o.speed,
		SpawnRate:          o.spawnRate,
		TotalRoads:         roads,
		TotalIntersections: intersections,
	}
	o.mu.Unlock()
	s.TotalVehicles = int(o.lastVehicles.Load())
	s.TransactionCount = o.txCount.Load()
	return s
}

// Stop shuts the simulation down for good.
func (o *Orchestrator) Stop() {
	o.Pause()
}

func (o *Orchestrator) reloadNetworkLocked(ctx context.Context) error {
	net, err := o.traffic.Network(ctx)
	if err != nil {
		return err
	}
	o.network = net

	// Prime the fleet count so Stats is accurate before the first
	// mobility tick refreshes it.
	vehicles, err := o.traffic.GetAllVehicles(ctx)
	if err != nil {
		return err
	}
	active := 0
	for _, v := range vehicles {
		if v.Status == model.VehicleActive {
			active++
		}
	}
	o.lastVehicles.Store(int64(active))
	return nil
}

// snapshot returns the current road graph.
func (o *Orchestrator) snapshot() *core.Network {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.network
}

func (o *Orchestrator) startJobsLocked() {
	mk := func(name string, base time.Duration, fn sched.TickFunc) *sched.Job {
		var opts []sched.Option
		if o.onSkip != nil {
			opts = append(opts, sched.WithSkipHook(o.onSkip))
		}
		body := fn
		if o.onTick != nil {
			body = func(ctx context.Context) {
				start := time.Now()
				fn(ctx)
				o.onTick(name, time.Since(start))
			}
		}
		j := sched.NewJob(name, base, body, o.log, opts...)
		j.SetSpeed(o.speed)
		j.Start(o.baseCtx)
		return j
	}
	o.jobs = []*sched.Job{
		mk("mobility", o.intervals.Mobility, o.mobilityTick),
		mk("lights", o.intervals.Lights, o.lightsTick),
		mk("congestion", o.intervals.Congestion, o.congestionTick),
	}
	o.startSpawnJobLocked()
}

// startSpawnJobLocked schedules the spawn job unless the rate is zero.
func (o *Orchestrator) startSpawnJobLocked() {
	if o.spawnRate <= 0 {
		return
	}
	base := time.Duration(float64(o.intervals.SpawnBase) / o.spawnRate)
	var opts []sched.Option
	if o.onSkip != nil {
		opts = append(opts, sched.WithSkipHook(o.onSkip))
	}
	body := sched.TickFunc(o.spawnTick)
	if o.onTick != nil {
		body = func(ctx context.Context) {
			start := time.Now()
			o.spawnTick(ctx)
			o.onTick("spawn", time.Since(start))
		}
	}
	j := sched.NewJob("spawn", base, body, o.log, opts...)
	j.SetSpeed(o.speed)
	j.Start(o.baseCtx)
	o.spawnJob = j
}

func (o *Orchestrator) stopJobsLocked() {
	for _, j := range o.jobs {
		j.Stop()
	}
	o.jobs = nil
	if o.spawnJob != nil {
		o.spawnJob.Stop()
		o.spawnJob = nil
	}
}
