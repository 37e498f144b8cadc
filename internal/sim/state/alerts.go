package state

import (
	"context"
	"fmt"

	"github.com/citygridlabs/traffic-twin/ledger"
	"github.com/citygridlabs/traffic-twin/model"
)

// AlertReport carries the fields of an incoming security finding. Zero
// values fall back to the detector defaults.
type AlertReport struct {
	Source        string
	Dataset       string
	Scenario      string
	WindowMinutes int
	EntityType    model.EntityType
	EntityID      string
	Score         float64
	Severity      model.Severity
	Justification string
	KeyFeatures   []string
}

// ReportSecurityAlert records an anomaly finding. New alerts are active.
func (t *Traffic) ReportSecurityAlert(ctx context.Context, id string, rep AlertReport) (*model.SecurityAlert, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: alert id is required", ledger.ErrValidation)
	}
	if rep.Source == "" {
		rep.Source = "GNN"
	}
	if rep.WindowMinutes <= 0 {
		rep.WindowMinutes = 5
	}
	if rep.EntityType == "" {
		rep.EntityType = model.EntityHost
	}
	if rep.Severity == "" {
		rep.Severity = model.SeverityMedium
	}
	if !rep.EntityType.Valid() {
		return nil, fmt.Errorf("%w: unknown entity type %q", ledger.ErrValidation, rep.EntityType)
	}
	if !rep.Severity.Valid() {
		return nil, fmt.Errorf("%w: unknown severity %q", ledger.ErrValidation, rep.Severity)
	}
	if rep.KeyFeatures == nil {
		rep.KeyFeatures = []string{}
	}

	alert := &model.SecurityAlert{
		ID:            id,
		Source:        rep.Source,
		Dataset:       rep.Dataset,
		Scenario:      rep.Scenario,
		WindowMinutes: rep.WindowMinutes,
		EntityType:    rep.EntityType,
		EntityID:      rep.EntityID,
		Score:         rep.Score,
		Severity:      rep.Severity,
		Status:        model.StatusActive,
		Justification: rep.Justification,
		KeyFeatures:   rep.KeyFeatures,
	}
	err := t.submit(ctx, "ReportSecurityAlert", func(txn ledger.Txn) error {
		ok, err := exists(txn, id)
		if err != nil {
			return err
		}
		if ok {
			return fmt.Errorf("%w: security alert %s", ledger.ErrAlreadyExists, id)
		}
		ts := t.timestamp()
		alert.CreatedAt = ts
		alert.Timestamp = ts
		return put(txn, alert)
	})
	if err != nil {
		return nil, err
	}
	t.rec.EntityDelta(model.KindSecurityAlert, 1)
	return alert, nil
}

// ResolveSecurityAlert marks an alert resolved. Monotonic like incident
// resolution.
func (t *Traffic) ResolveSecurityAlert(ctx context.Context, id string) (*model.SecurityAlert, error) {
	var alert *model.SecurityAlert
	err := t.submit(ctx, "ResolveSecurityAlert", func(txn ledger.Txn) error {
		var err error
		alert, err = getAs[*model.SecurityAlert](txn, id)
		if err != nil {
			return err
		}
		if alert.Status == model.StatusResolved {
			return nil
		}
		ts := t.timestamp()
		alert.Status = model.StatusResolved
		alert.ResolvedAt = ts
		alert.Timestamp = ts
		return put(txn, alert)
	})
	if err != nil {
		return nil, err
	}
	return alert, nil
}

// GetAllSecurityAlerts returns every alert, ordered by id.
func (t *Traffic) GetAllSecurityAlerts(ctx context.Context) ([]*model.SecurityAlert, error) {
	return list[*model.SecurityAlert](ctx, t, "GetAllSecurityAlerts", nil)
}

// GetActiveSecurityAlerts returns alerts not yet resolved.
func (t *Traffic) GetActiveSecurityAlerts(ctx context.Context) ([]*model.SecurityAlert, error) {
	return list(ctx, t, "GetActiveSecurityAlerts", func(a *model.SecurityAlert) bool {
		return a.Status == model.StatusActive
	})
}

// GetSecurityAlertsBySeverity returns active alerts of one severity grade.
func (t *Traffic) GetSecurityAlertsBySeverity(ctx context.Context, severity model.Severity) ([]*model.SecurityAlert, error) {
	return list(ctx, t, "GetSecurityAlertsBySeverity", func(a *model.SecurityAlert) bool {
		return a.Severity == severity && a.Status == model.StatusActive
	})
}

// GetSecurityAlertsByEntity returns alerts raised against one entity,
// resolved or not.
func (t *Traffic) GetSecurityAlertsByEntity(ctx context.Context, entityType model.EntityType, entityID string) ([]*model.SecurityAlert, error) {
	return list(ctx, t, "GetSecurityAlertsByEntity", func(a *model.SecurityAlert) bool {
		return a.EntityType == entityType && a.EntityID == entityID
	})
}
