package state

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/citygridlabs/traffic-twin/internal/logging"
	"github.com/citygridlabs/traffic-twin/ledger"
	"github.com/citygridlabs/traffic-twin/model"
)

// CreateVehicle registers a new vehicle. Emergency status is derived from
// the type, never passed in.
func (t *Traffic) CreateVehicle(ctx context.Context, id string, typ model.VehicleType, road, intersection string, speed int, direction model.Direction) (*model.Vehicle, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: vehicle id is required", ledger.ErrValidation)
	}
	if !typ.Valid() {
		return nil, fmt.Errorf("%w: unknown vehicle type %q", ledger.ErrValidation, typ)
	}
	if !direction.Valid() {
		return nil, fmt.Errorf("%w: unknown direction %q", ledger.ErrValidation, direction)
	}
	if speed < 0 {
		return nil, fmt.Errorf("%w: negative speed %d", ledger.ErrValidation, speed)
	}

	v := &model.Vehicle{
		ID:                  id,
		Type:                typ,
		CurrentRoad:         road,
		CurrentIntersection: intersection,
		Speed:               speed,
		Direction:           direction,
		IsEmergency:         typ == model.VehicleEmergency,
		Status:              model.VehicleActive,
	}
	err := t.submit(ctx, "CreateVehicle", func(txn ledger.Txn) error {
		ok, err := exists(txn, id)
		if err != nil {
			return err
		}
		if ok {
			return fmt.Errorf("%w: vehicle %s", ledger.ErrAlreadyExists, id)
		}
		v.Timestamp = t.timestamp()
		return put(txn, v)
	})
	if err != nil {
		return nil, err
	}
	t.rec.EntityDelta(model.KindVehicle, 1)
	return v, nil
}

// ReadVehicle returns the current record for id.
func (t *Traffic) ReadVehicle(ctx context.Context, id string) (*model.Vehicle, error) {
	var v *model.Vehicle
	err := t.evaluate(ctx, "ReadVehicle", func(txn ledger.Txn) error {
		var err error
		v, err = getAs[*model.Vehicle](txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// UpdateVehiclePosition moves a vehicle and, in the same transaction, checks
// the new speed against the road's limit. A violation record, when one is
// warranted, commits atomically with the position update. An unknown road id
// skips the check rather than failing the move.
func (t *Traffic) UpdateVehiclePosition(ctx context.Context, id, newRoad, newIntersection string, newSpeed int, newDirection model.Direction) (*model.Vehicle, *model.Violation, error) {
	if !newDirection.Valid() {
		return nil, nil, fmt.Errorf("%w: unknown direction %q", ledger.ErrValidation, newDirection)
	}
	if newSpeed < 0 {
		return nil, nil, fmt.Errorf("%w: negative speed %d", ledger.ErrValidation, newSpeed)
	}

	var (
		v   *model.Vehicle
		vio *model.Violation
	)
	err := t.submit(ctx, "UpdateVehiclePosition", func(txn ledger.Txn) error {
		var err error
		v, err = getAs[*model.Vehicle](txn, id)
		if err != nil {
			return err
		}
		ts := t.timestamp()
		v.CurrentRoad = newRoad
		v.CurrentIntersection = newIntersection
		v.Speed = newSpeed
		v.Direction = newDirection
		v.Timestamp = ts

		vio, err = t.checkSpeedViolation(txn, id, newRoad, newSpeed, ts)
		if err != nil {
			return err
		}
		return put(txn, v)
	})
	if err != nil {
		return nil, nil, err
	}
	if vio != nil {
		t.rec.Violation()
		t.log.Info(ctx, "speed violation recorded",
			logging.String("vehicle", id),
			logging.String("road", newRoad),
			logging.Int("excess", vio.ExcessSpeed))
	}
	return v, vio, nil
}

// checkSpeedViolation stages a violation record when speed exceeds the
// road's limit. Returns the staged violation, or nil when none applies.
func (t *Traffic) checkSpeedViolation(txn ledger.Txn, vehicleID, roadID string, speed int, ts string) (*model.Violation, error) {
	road, err := getAs[*model.Road](txn, roadID)
	if errors.Is(err, ledger.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if speed <= road.MaxSpeed {
		return nil, nil
	}

	vio := &model.Violation{
		ID:          violationID(vehicleID, ts),
		VehicleID:   vehicleID,
		RoadID:      roadID,
		SpeedLimit:  road.MaxSpeed,
		ActualSpeed: speed,
		ExcessSpeed: speed - road.MaxSpeed,
		Timestamp:   ts,
		Location:    road.Name,
	}
	if err := put(txn, vio); err != nil {
		return nil, err
	}
	return vio, nil
}

// violationID builds a unique violation key. The timestamp alone may repeat
// within one second, so a random suffix keeps concurrent violations apart.
func violationID(vehicleID, ts string) string {
	compact := strings.NewReplacer(":", "", ".", "").Replace(ts)
	return fmt.Sprintf("VIO_%s_%s_%s", vehicleID, compact, uuid.NewString()[:8])
}

// UpdateVehicleStatus sets a vehicle's lifecycle state.
func (t *Traffic) UpdateVehicleStatus(ctx context.Context, id string, status model.VehicleStatus) (*model.Vehicle, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown vehicle status %q", ledger.ErrValidation, status)
	}
	var v *model.Vehicle
	err := t.submit(ctx, "UpdateVehicleStatus", func(txn ledger.Txn) error {
		var err error
		v, err = getAs[*model.Vehicle](txn, id)
		if err != nil {
			return err
		}
		v.Status = status
		v.Timestamp = t.timestamp()
		return put(txn, v)
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// DeleteVehicle removes a vehicle's current record. Its history remains.
func (t *Traffic) DeleteVehicle(ctx context.Context, id string) error {
	err := t.submit(ctx, "DeleteVehicle", func(txn ledger.Txn) error {
		if _, err := getAs[*model.Vehicle](txn, id); err != nil {
			return err
		}
		return txn.Delete(id)
	})
	if err != nil {
		return err
	}
	t.rec.EntityDelta(model.KindVehicle, -1)
	return nil
}

// GetAllVehicles returns every vehicle, ordered by id.
func (t *Traffic) GetAllVehicles(ctx context.Context) ([]*model.Vehicle, error) {
	return list[*model.Vehicle](ctx, t, "GetAllVehicles", nil)
}

// GetVehiclesByType filters vehicles by type.
func (t *Traffic) GetVehiclesByType(ctx context.Context, typ model.VehicleType) ([]*model.Vehicle, error) {
	return list(ctx, t, "GetVehiclesByType", func(v *model.Vehicle) bool {
		return v.Type == typ
	})
}

// GetVehiclesByRoad filters vehicles by their current road.
func (t *Traffic) GetVehiclesByRoad(ctx context.Context, roadID string) ([]*model.Vehicle, error) {
	return list(ctx, t, "GetVehiclesByRoad", func(v *model.Vehicle) bool {
		return v.CurrentRoad == roadID
	})
}
