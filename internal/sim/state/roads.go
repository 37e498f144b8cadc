package state

import (
	"context"
	"fmt"

	"github.com/citygridlabs/traffic-twin/ledger"
	"github.com/citygridlabs/traffic-twin/model"
)

// CreateRoad registers a new road segment between two distinct
// intersections. New roads start open with low congestion.
func (t *Traffic) CreateRoad(ctx context.Context, id, name, startIntersection, endIntersection string, lanes, maxSpeed, length int) (*model.Road, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: road id is required", ledger.ErrValidation)
	}
	if startIntersection == "" || endIntersection == "" {
		return nil, fmt.Errorf("%w: road %s needs both endpoints", ledger.ErrValidation, id)
	}
	if startIntersection == endIntersection {
		return nil, fmt.Errorf("%w: road %s endpoints must differ", ledger.ErrValidation, id)
	}
	if lanes <= 0 || maxSpeed <= 0 || length <= 0 {
		return nil, fmt.Errorf("%w: road %s lanes, maxSpeed and length must be positive", ledger.ErrValidation, id)
	}

	r := &model.Road{
		ID:                id,
		Name:              name,
		StartIntersection: startIntersection,
		EndIntersection:   endIntersection,
		Lanes:             lanes,
		MaxSpeed:          maxSpeed,
		Length:            length,
		Status:            model.RoadOpen,
		CongestionLevel:   model.CongestionLow,
	}
	err := t.submit(ctx, "CreateRoad", func(txn ledger.Txn) error {
		ok, err := exists(txn, id)
		if err != nil {
			return err
		}
		if ok {
			return fmt.Errorf("%w: road %s", ledger.ErrAlreadyExists, id)
		}
		r.Timestamp = t.timestamp()
		return put(txn, r)
	})
	if err != nil {
		return nil, err
	}
	t.rec.EntityDelta(model.KindRoad, 1)
	return r, nil
}

// ReadRoad returns the current record for id.
func (t *Traffic) ReadRoad(ctx context.Context, id string) (*model.Road, error) {
	var r *model.Road
	err := t.evaluate(ctx, "ReadRoad", func(txn ledger.Txn) error {
		var err error
		r, err = getAs[*model.Road](txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// UpdateRoadStatus sets a road's administrative state.
func (t *Traffic) UpdateRoadStatus(ctx context.Context, id string, status model.RoadStatus) (*model.Road, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown road status %q", ledger.ErrValidation, status)
	}
	var r *model.Road
	err := t.submit(ctx, "UpdateRoadStatus", func(txn ledger.Txn) error {
		var err error
		r, err = getAs[*model.Road](txn, id)
		if err != nil {
			return err
		}
		r.Status = status
		r.Timestamp = t.timestamp()
		return put(txn, r)
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// UpdateRoadProperties changes a road's physical parameters.
func (t *Traffic) UpdateRoadProperties(ctx context.Context, id string, lanes, maxSpeed, length int) (*model.Road, error) {
	if lanes <= 0 || maxSpeed <= 0 || length <= 0 {
		return nil, fmt.Errorf("%w: road %s lanes, maxSpeed and length must be positive", ledger.ErrValidation, id)
	}
	var r *model.Road
	err := t.submit(ctx, "UpdateRoadProperties", func(txn ledger.Txn) error {
		var err error
		r, err = getAs[*model.Road](txn, id)
		if err != nil {
			return err
		}
		r.Lanes = lanes
		r.MaxSpeed = maxSpeed
		r.Length = length
		r.Timestamp = t.timestamp()
		return put(txn, r)
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// UpdateRoadCongestion sets a road's congestion band and mirrors the live
// vehicle count in the informational counter.
func (t *Traffic) UpdateRoadCongestion(ctx context.Context, id string, level model.CongestionLevel, vehicleCount int) (*model.Road, error) {
	if !level.Valid() {
		return nil, fmt.Errorf("%w: unknown congestion level %q", ledger.ErrValidation, level)
	}
	var r *model.Road
	err := t.submit(ctx, "UpdateRoadCongestion", func(txn ledger.Txn) error {
		var err error
		r, err = getAs[*model.Road](txn, id)
		if err != nil {
			return err
		}
		r.CongestionLevel = level
		if vehicleCount >= 0 {
			r.CurrentVehicleCount = vehicleCount
		}
		r.Timestamp = t.timestamp()
		return put(txn, r)
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// GetAllRoads returns every road, ordered by id.
func (t *Traffic) GetAllRoads(ctx context.Context) ([]*model.Road, error) {
	return list[*model.Road](ctx, t, "GetAllRoads", nil)
}

// GetRoadsByStatus filters roads by administrative state.
func (t *Traffic) GetRoadsByStatus(ctx context.Context, status model.RoadStatus) ([]*model.Road, error) {
	return list(ctx, t, "GetRoadsByStatus", func(r *model.Road) bool {
		return r.Status == status
	})
}

// DeleteRoad removes a road's current record.
func (t *Traffic) DeleteRoad(ctx context.Context, id string) error {
	err := t.submit(ctx, "DeleteRoad", func(txn ledger.Txn) error {
		if _, err := getAs[*model.Road](txn, id); err != nil {
			return err
		}
		return txn.Delete(id)
	})
	if err != nil {
		return err
	}
	t.rec.EntityDelta(model.KindRoad, -1)
	return nil
}
