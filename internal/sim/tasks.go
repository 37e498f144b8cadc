package sim

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/citygridlabs/traffic-twin/internal/logging"
	"github.com/citygridlabs/traffic-twin/ledger"
	"github.com/citygridlabs/traffic-twin/model"
)

// mobilityTick reloads the active fleet and moves a random batch. Individual
// move failures are logged and swallowed so one stuck vehicle cannot stall
// the tick.
func (o *Orchestrator) mobilityTick(ctx context.Context) {
	vehicles, err := o.traffic.GetAllVehicles(ctx)
	if err != nil {
		o.log.Warn(ctx, "mobility tick: reload vehicles", logging.Err(err))
		return
	}
	active := vehicles[:0]
	for _, v := range vehicles {
		if v.Status == model.VehicleActive {
			active = append(active, v)
		}
	}
	o.lastVehicles.Store(int64(len(active)))

	rand.Shuffle(len(active), func(i, j int) {
		active[i], active[j] = active[j], active[i]
	})
	batch := active
	if len(batch) > o.batchSize {
		batch = batch[:o.batchSize]
	}

	delay := o.intervals.MoveDelay
	for _, v := range batch {
		if ctx.Err() != nil {
			return
		}
		o.moveVehicle(ctx, v)
		sleep(ctx, delay)
	}
}

// moveVehicle advances one vehicle across its next intersection onto a
// random connected road. A vehicle on an unknown road or at a dead end
// stays put.
func (o *Orchestrator) moveVehicle(ctx context.Context, v *model.Vehicle) {
	net := o.snapshot()
	if net == nil {
		return
	}
	road, ok := net.Road(v.CurrentRoad)
	if !ok {
		return
	}
	next, fallback := net.NextIntersection(road, v.CurrentIntersection)
	if fallback {
		o.log.Warn(ctx, "vehicle not at either endpoint of its road",
			logging.String("vehicle", v.ID),
			logging.String("road", road.ID),
			logging.String("intersection", v.CurrentIntersection))
	}
	connected := net.ConnectedRoads(next)
	if len(connected) == 0 {
		return
	}
	nextRoad := connected[rand.Intn(len(connected))]
	speed := moveSpeed(v.IsEmergency, nextRoad.MaxSpeed, rand.Float64()*20-10)
	dir := model.Directions[rand.Intn(len(model.Directions))]

	_, _, err := o.traffic.UpdateVehiclePosition(ctx, v.ID, nextRoad.ID, next, speed, dir)
	if err != nil {
		// The vehicle may have been deleted between reload and move.
		if !errors.Is(err, ledger.ErrNotFound) {
			o.log.Warn(ctx, "move failed", logging.String("vehicle", v.ID), logging.Err(err))
		}
		return
	}
	o.txCount.Add(1)
	o.log.Debug(ctx, "vehicle moved",
		logging.String("vehicle", v.ID),
		logging.String("from", road.ID),
		logging.String("to", nextRoad.ID),
		logging.Int("speed", speed))
}

// moveSpeed computes the post-move speed. variation is in [-10, 10).
// Emergency vehicles run above the limit, capped at 120; everything else is
// clamped to [20, maxSpeed].
func moveSpeed(isEmergency bool, maxSpeed int, variation float64) int {
	base := float64(maxSpeed)
	if maxSpeed <= 0 {
		base = 50
	}
	if isEmergency {
		return int(min(base+30+variation, 120))
	}
	return int(max(min(base+variation, base), 20))
}

// lightsTick advances every intersection's signal one phase.
func (o *Orchestrator) lightsTick(ctx context.Context) {
	intersections, err := o.traffic.GetAllIntersections(ctx)
	if err != nil {
		o.log.Warn(ctx, "lights tick: reload intersections", logging.Err(err))
		return
	}
	for _, i := range intersections {
		if ctx.Err() != nil {
			return
		}
		next := i.TrafficLightState.Next()
		if _, err := o.traffic.UpdateTrafficLight(ctx, i.ID, next); err != nil {
			o.log.Warn(ctx, "light cycle failed",
				logging.String("intersection", i.ID), logging.Err(err))
		} else {
			o.txCount.Add(1)
		}
		sleep(ctx, o.intervals.LightDelay)
	}
}

// congestionTick derives each road's congestion band from live occupancy
// and writes only the bands that changed.
func (o *Orchestrator) congestionTick(ctx context.Context) {
	vehicles, err := o.traffic.GetAllVehicles(ctx)
	if err != nil {
		o.log.Warn(ctx, "congestion tick: reload vehicles", logging.Err(err))
		return
	}
	perRoad := make(map[string]int)
	for _, v := range vehicles {
		if v.Status == model.VehicleActive {
			perRoad[v.CurrentRoad]++
		}
	}

	roads, err := o.traffic.GetAllRoads(ctx)
	if err != nil {
		o.log.Warn(ctx, "congestion tick: reload roads", logging.Err(err))
		return
	}
	for _, r := range roads {
		count := perRoad[r.ID]
		level := model.CongestionForCount(count)
		if r.CongestionLevel == level {
			continue
		}
		if _, err := o.traffic.UpdateRoadCongestion(ctx, r.ID, level, count); err != nil {
			o.log.Warn(ctx, "congestion update failed",
				logging.String("road", r.ID), logging.Err(err))
			continue
		}
		o.txCount.Add(1)
		o.log.Debug(ctx, "congestion changed",
			logging.String("road", r.ID),
			logging.String("level", string(level)),
			logging.Int("vehicles", count))
	}
}

// spawnTick creates one vehicle at a random spot on the network.
func (o *Orchestrator) spawnTick(ctx context.Context) {
	net := o.snapshot()
	if net == nil || net.RoadCount() == 0 {
		return
	}
	roads := net.Roads()
	road := roads[rand.Intn(len(roads))]

	intersection := road.StartIntersection
	if rand.Float64() > 0.5 {
		intersection = road.EndIntersection
	}
	speed := 20
	if road.MaxSpeed > 20 {
		speed = rand.Intn(road.MaxSpeed-20) + 20
	}
	typ := vehicleTypeFor(rand.Float64())
	dir := model.Directions[rand.Intn(len(model.Directions))]
	id := fmt.Sprintf("SIM%d", o.vehicleCounter.Add(1)-1)

	_, err := o.traffic.CreateVehicle(ctx, id, typ, road.ID, intersection, speed, dir)
	if err != nil {
		// A stale counter after reset can collide with an existing id.
		if !errors.Is(err, ledger.ErrAlreadyExists) {
			o.log.Warn(ctx, "spawn failed", logging.String("vehicle", id), logging.Err(err))
		}
		return
	}
	o.txCount.Add(1)
	o.log.Debug(ctx, "vehicle spawned",
		logging.String("vehicle", id),
		logging.String("type", string(typ)),
		logging.String("road", road.ID))
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
