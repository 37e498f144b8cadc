package state

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/citygridlabs/traffic-twin/ledger"
	"github.com/citygridlabs/traffic-twin/model"
)

func TestIncidentLifecycle(t *testing.T) {
	tr := newTraffic(t)
	ctx := context.Background()

	inc, err := tr.ReportIncident(ctx, "INC1", "accident", "Central Plaza", "R001", model.SeverityHigh, "two cars")
	if err != nil {
		t.Fatalf("ReportIncident: %v", err)
	}
	if inc.Status != model.StatusActive || inc.ReportedAt == "" {
		t.Errorf("fresh incident: %+v", inc)
	}

	if _, err := tr.ReportIncident(ctx, "INC1", "roadwork", "x", "R002", model.SeverityLow, ""); !errors.Is(err, ledger.ErrAlreadyExists) {
		t.Errorf("duplicate report: err = %v, want ErrAlreadyExists", err)
	}

	resolved, err := tr.ResolveIncident(ctx, "INC1")
	if err != nil {
		t.Fatalf("ResolveIncident: %v", err)
	}
	if resolved.Status != model.StatusResolved || resolved.ResolvedAt == "" {
		t.Errorf("resolved incident: %+v", resolved)
	}
}

func TestResolveIncidentIsMonotonic(t *testing.T) {
	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	now := base
	tr := newTraffic(t, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	if _, err := tr.ReportIncident(ctx, "INC1", "closure", "North Gate", "R001", model.SeverityMedium, ""); err != nil {
		t.Fatalf("ReportIncident: %v", err)
	}
	first, err := tr.ResolveIncident(ctx, "INC1")
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}

	now = base.Add(time.Hour)
	second, err := tr.ResolveIncident(ctx, "INC1")
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if second.ResolvedAt != first.ResolvedAt {
		t.Errorf("resolvedAt moved on re-resolve: %q -> %q", first.ResolvedAt, second.ResolvedAt)
	}
}

func TestIncidentFilters(t *testing.T) {
	tr := newTraffic(t)
	ctx := context.Background()

	seed := []struct {
		id       string
		road     string
		severity model.Severity
	}{
		{"INC1", "R1", model.SeverityHigh},
		{"INC2", "R1", model.SeverityLow},
		{"INC3", "R2", model.SeverityHigh},
	}
	for _, s := range seed {
		if _, err := tr.ReportIncident(ctx, s.id, "accident", "loc", s.road, s.severity, ""); err != nil {
			t.Fatalf("seed %s: %v", s.id, err)
		}
	}
	if _, err := tr.ResolveIncident(ctx, "INC3"); err != nil {
		t.Fatalf("resolve INC3: %v", err)
	}

	active, err := tr.GetActiveIncidents(ctx)
	if err != nil {
		t.Fatalf("GetActiveIncidents: %v", err)
	}
	if len(active) != 2 {
		t.Errorf("active = %d, want 2", len(active))
	}

	onR1, err := tr.GetIncidentsByRoad(ctx, "R1")
	if err != nil {
		t.Fatalf("GetIncidentsByRoad: %v", err)
	}
	if len(onR1) != 2 {
		t.Errorf("on R1 = %d, want 2", len(onR1))
	}

	// Severity filter only reports still-active incidents.
	high, err := tr.GetIncidentsBySeverity(ctx, model.SeverityHigh)
	if err != nil {
		t.Fatalf("GetIncidentsBySeverity: %v", err)
	}
	if len(high) != 1 || high[0].ID != "INC1" {
		t.Errorf("active high = %+v, want just INC1", high)
	}
}

func TestSecurityAlertDefaultsAndFilters(t *testing.T) {
	tr := newTraffic(t)
	ctx := context.Background()

	alert, err := tr.ReportSecurityAlert(ctx, "AL1", AlertReport{
		EntityID: "10.0.0.5",
		Score:    0.93,
		Severity: model.SeverityCritical,
	})
	if err != nil {
		t.Fatalf("ReportSecurityAlert: %v", err)
	}
	if alert.Source != "GNN" || alert.WindowMinutes != 5 || alert.EntityType != model.EntityHost {
		t.Errorf("defaults not applied: %+v", alert)
	}
	if alert.KeyFeatures == nil {
		t.Error("keyFeatures is nil, want empty slice")
	}

	if _, err := tr.ReportSecurityAlert(ctx, "AL2", AlertReport{
		EntityType: model.EntityVehicle,
		EntityID:   "V001",
		Severity:   model.SeverityLow,
	}); err != nil {
		t.Fatalf("second alert: %v", err)
	}
	if _, err := tr.ResolveSecurityAlert(ctx, "AL2"); err != nil {
		t.Fatalf("resolve AL2: %v", err)
	}

	active, err := tr.GetActiveSecurityAlerts(ctx)
	if err != nil {
		t.Fatalf("GetActiveSecurityAlerts: %v", err)
	}
	if len(active) != 1 || active[0].ID != "AL1" {
		t.Errorf("active alerts = %+v, want just AL1", active)
	}

	byEntity, err := tr.GetSecurityAlertsByEntity(ctx, model.EntityVehicle, "V001")
	if err != nil {
		t.Fatalf("GetSecurityAlertsByEntity: %v", err)
	}
	if len(byEntity) != 1 || byEntity[0].ID != "AL2" {
		t.Errorf("by entity = %+v, want resolved AL2 included", byEntity)
	}

	critical, err := tr.GetSecurityAlertsBySeverity(ctx, model.SeverityCritical)
	if err != nil {
		t.Fatalf("GetSecurityAlertsBySeverity: %v", err)
	}
	if len(critical) != 1 || critical[0].ID != "AL1" {
		t.Errorf("critical = %+v, want just AL1", critical)
	}
}

func TestReportSecurityAlertValidation(t *testing.T) {
	tr := newTraffic(t)
	ctx := context.Background()

	if _, err := tr.ReportSecurityAlert(ctx, "", AlertReport{}); !errors.Is(err, ledger.ErrValidation) {
		t.Errorf("empty id: err = %v, want ErrValidation", err)
	}
	if _, err := tr.ReportSecurityAlert(ctx, "AL1", AlertReport{EntityType: model.EntityType("cloud")}); !errors.Is(err, ledger.ErrValidation) {
		t.Errorf("bad entity type: err = %v, want ErrValidation", err)
	}
}
