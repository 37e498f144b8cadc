package state

import (
	"context"
	"fmt"

	"github.com/citygridlabs/traffic-twin/ledger"
	"github.com/citygridlabs/traffic-twin/model"
)

// ReportIncident records a disruption on a road. New incidents are active.
func (t *Traffic) ReportIncident(ctx context.Context, id, typ, location, roadID string, severity model.Severity, description string) (*model.Incident, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: incident id is required", ledger.ErrValidation)
	}
	if !severity.Valid() {
		return nil, fmt.Errorf("%w: unknown severity %q", ledger.ErrValidation, severity)
	}

	inc := &model.Incident{
		ID:          id,
		Type:        typ,
		Location:    location,
		RoadID:      roadID,
		Severity:    severity,
		Description: description,
		Status:      model.StatusActive,
	}
	err := t.submit(ctx, "ReportIncident", func(txn ledger.Txn) error {
		ok, err := exists(txn, id)
		if err != nil {
			return err
		}
		if ok {
			return fmt.Errorf("%w: incident %s", ledger.ErrAlreadyExists, id)
		}
		ts := t.timestamp()
		inc.ReportedAt = ts
		inc.Timestamp = ts
		return put(txn, inc)
	})
	if err != nil {
		return nil, err
	}
	t.rec.EntityDelta(model.KindIncident, 1)
	return inc, nil
}

// ResolveIncident marks an incident resolved. Resolution is monotonic:
// resolving an already resolved incident returns it unchanged without a
// fresh write, so the original resolution time survives.
func (t *Traffic) ResolveIncident(ctx context.Context, id string) (*model.Incident, error) {
	var inc *model.Incident
	err := t.submit(ctx, "ResolveIncident", func(txn ledger.Txn) error {
		var err error
		inc, err = getAs[*model.Incident](txn, id)
		if err != nil {
			return err
		}
		if inc.Status == model.StatusResolved {
			return nil
		}
		ts := t.timestamp()
		inc.Status = model.StatusResolved
		inc.ResolvedAt = ts
		inc.Timestamp = ts
		return put(txn, inc)
	})
	if err != nil {
		return nil, err
	}
	return inc, nil
}

// GetAllIncidents returns every incident, ordered by id.
func (t *Traffic) GetAllIncidents(ctx context.Context) ([]*model.Incident, error) {
	return list[*model.Incident](ctx, t, "GetAllIncidents", nil)
}

// GetActiveIncidents returns incidents not yet resolved.
func (t *Traffic) GetActiveIncidents(ctx context.Context) ([]*model.Incident, error) {
	return list(ctx, t, "GetActiveIncidents", func(i *model.Incident) bool {
		return i.Status == model.StatusActive
	})
}

// GetIncidentsByRoad filters incidents by road.
func (t *Traffic) GetIncidentsByRoad(ctx context.Context, roadID string) ([]*model.Incident, error) {
	return list(ctx, t, "GetIncidentsByRoad", func(i *model.Incident) bool {
		return i.RoadID == roadID
	})
}

// GetIncidentsBySeverity returns active incidents of one severity grade.
func (t *Traffic) GetIncidentsBySeverity(ctx context.Context, severity model.Severity) ([]*model.Incident, error) {
	return list(ctx, t, "GetIncidentsBySeverity", func(i *model.Incident) bool {
		return i.Severity == severity && i.Status == model.StatusActive
	})
}
