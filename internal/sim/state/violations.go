package state

import (
	"context"

	"github.com/citygridlabs/traffic-twin/model"
)

// Violations are only ever written by the position-update path; these are
// the read sides.

// GetAllViolations returns every recorded violation, ordered by id.
func (t *Traffic) GetAllViolations(ctx context.Context) ([]*model.Violation, error) {
	return list[*model.Violation](ctx, t, "GetAllViolations", nil)
}

// GetViolationsByVehicle filters violations by offender.
func (t *Traffic) GetViolationsByVehicle(ctx context.Context, vehicleID string) ([]*model.Violation, error) {
	return list(ctx, t, "GetViolationsByVehicle", func(v *model.Violation) bool {
		return v.VehicleID == vehicleID
	})
}

// GetViolationsByRoad filters violations by road.
func (t *Traffic) GetViolationsByRoad(ctx context.Context, roadID string) ([]*model.Violation, error) {
	return list(ctx, t, "GetViolationsByRoad", func(v *model.Violation) bool {
		return v.RoadID == roadID
	})
}
