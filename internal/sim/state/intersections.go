package state

import (
	"context"
	"fmt"

	"github.com/citygridlabs/traffic-twin/ledger"
	"github.com/citygridlabs/traffic-twin/model"
)

// CreateIntersection registers a junction. New intersections start on green
// with low density.
func (t *Traffic) CreateIntersection(ctx context.Context, id, name string, latitude, longitude float64, connectedRoads []string) (*model.Intersection, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: intersection id is required", ledger.ErrValidation)
	}
	if connectedRoads == nil {
		connectedRoads = []string{}
	}

	i := &model.Intersection{
		ID:                id,
		Name:              name,
		Latitude:          latitude,
		Longitude:         longitude,
		ConnectedRoads:    connectedRoads,
		TrafficLightState: model.LightGreen,
		TrafficDensity:    model.DensityLow,
	}
	err := t.submit(ctx, "CreateIntersection", func(txn ledger.Txn) error {
		ok, err := exists(txn, id)
		if err != nil {
			return err
		}
		if ok {
			return fmt.Errorf("%w: intersection %s", ledger.ErrAlreadyExists, id)
		}
		i.Timestamp = t.timestamp()
		return put(txn, i)
	})
	if err != nil {
		return nil, err
	}
	t.rec.EntityDelta(model.KindIntersection, 1)
	return i, nil
}

// ReadIntersection returns the current record for id.
func (t *Traffic) ReadIntersection(ctx context.Context, id string) (*model.Intersection, error) {
	var i *model.Intersection
	err := t.evaluate(ctx, "ReadIntersection", func(txn ledger.Txn) error {
		var err error
		i, err = getAs[*model.Intersection](txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return i, nil
}

// UpdateTrafficLight sets the signal phase at an intersection.
func (t *Traffic) UpdateTrafficLight(ctx context.Context, id string, phase model.TrafficLight) (*model.Intersection, error) {
	if !phase.Valid() {
		return nil, fmt.Errorf("%w: unknown traffic light state %q", ledger.ErrValidation, phase)
	}
	var i *model.Intersection
	err := t.submit(ctx, "UpdateTrafficLight", func(txn ledger.Txn) error {
		var err error
		i, err = getAs[*model.Intersection](txn, id)
		if err != nil {
			return err
		}
		i.TrafficLightState = phase
		i.Timestamp = t.timestamp()
		return put(txn, i)
	})
	if err != nil {
		return nil, err
	}
	return i, nil
}

// UpdateIntersectionLocation moves an intersection's coordinates.
func (t *Traffic) UpdateIntersectionLocation(ctx context.Context, id string, latitude, longitude float64) (*model.Intersection, error) {
	var i *model.Intersection
	err := t.submit(ctx, "UpdateIntersectionLocation", func(txn ledger.Txn) error {
		var err error
		i, err = getAs[*model.Intersection](txn, id)
		if err != nil {
			return err
		}
		i.Latitude = latitude
		i.Longitude = longitude
		i.Timestamp = t.timestamp()
		return put(txn, i)
	})
	if err != nil {
		return nil, err
	}
	return i, nil
}

// UpdateIntersectionDensity sets the coarse density grade.
func (t *Traffic) UpdateIntersectionDensity(ctx context.Context, id string, density model.Density) (*model.Intersection, error) {
	if !density.Valid() {
		return nil, fmt.Errorf("%w: unknown traffic density %q", ledger.ErrValidation, density)
	}
	var i *model.Intersection
	err := t.submit(ctx, "UpdateIntersectionDensity", func(txn ledger.Txn) error {
		var err error
		i, err = getAs[*model.Intersection](txn, id)
		if err != nil {
			return err
		}
		i.TrafficDensity = density
		i.Timestamp = t.timestamp()
		return put(txn, i)
	})
	if err != nil {
		return nil, err
	}
	return i, nil
}

// GetAllIntersections returns every intersection, ordered by id.
func (t *Traffic) GetAllIntersections(ctx context.Context) ([]*model.Intersection, error) {
	return list[*model.Intersection](ctx, t, "GetAllIntersections", nil)
}

// GetIntersectionsByTrafficLight filters intersections by signal phase.
func (t *Traffic) GetIntersectionsByTrafficLight(ctx context.Context, phase model.TrafficLight) ([]*model.Intersection, error) {
	return list(ctx, t, "GetIntersectionsByTrafficLight", func(i *model.Intersection) bool {
		return i.TrafficLightState == phase
	})
}

// DeleteIntersection removes an intersection's current record.
func (t *Traffic) DeleteIntersection(ctx context.Context, id string) error {
	err := t.submit(ctx, "DeleteIntersection", func(txn ledger.Txn) error {
		if _, err := getAs[*model.Intersection](txn, id); err != nil {
			return err
		}
		return txn.Delete(id)
	})
	if err != nil {
		return err
	}
	t.rec.EntityDelta(model.KindIntersection, -1)
	return nil
}
