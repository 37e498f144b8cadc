package sim

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/citygridlabs/traffic-twin/internal/logging"
	"github.com/citygridlabs/traffic-twin/internal/sim/state"
	"github.com/citygridlabs/traffic-twin/ledger"
	"github.com/citygridlabs/traffic-twin/model"
)

// Mitigation is the immediate answer to a scheduling request. The actual
// quarantine happens asynchronously.
type Mitigation struct {
	Scheduled bool   `json:"scheduled"`
	VehicleID string `json:"vehicleId,omitempty"`
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
}

type mitigationTask struct {
	alertID   string
	vehicleID string
}

// Mitigator quarantines vehicles implicated by host-level security alerts.
// It runs one supervised worker goroutine; failures go to an error channel
// that is drained into the log, never to the caller.
type Mitigator struct {
	traffic *state.Traffic
	log     logging.Logger

	tasks chan mitigationTask
	errs  chan error

	once sync.Once
	stop chan struct{}
	wg   sync.WaitGroup
}

// NewMitigator constructs a stopped Mitigator.
func NewMitigator(traffic *state.Traffic, log logging.Logger) *Mitigator {
	if log == nil {
		log = logging.Noop()
	}
	return &Mitigator{
		traffic: traffic,
		log:     log,
		tasks:   make(chan mitigationTask, 64),
		errs:    make(chan error, 64),
		stop:    make(chan struct{}),
	}
}

// Start launches the worker and the error drain.
func (m *Mitigator) Start(ctx context.Context) {
	m.wg.Add(2)
	go func() {
		defer m.wg.Done()
		for {
			select {
			case <-m.stop:
				return
			case <-ctx.Done():
				return
			case task := <-m.tasks:
				if err := m.handle(ctx, task); err != nil {
					select {
					case m.errs <- err:
					default:
					}
				}
			}
		}
	}()
	go func() {
		defer m.wg.Done()
		for {
			select {
			case <-m.stop:
				return
			case <-ctx.Done():
				return
			case err := <-m.errs:
				m.log.Warn(ctx, "mitigation failed", logging.Err(err))
			}
		}
	}()
}

// Stop shuts the worker down. Queued tasks are dropped.
func (m *Mitigator) Stop() {
	m.once.Do(func() { close(m.stop) })
	m.wg.Wait()
}

// MitigationTarget reports whether an alert warrants an automatic
// quarantine and, if so, which vehicle it maps to. Only high or critical
// alerts against host entities qualify; the host's dots become underscores
// in the vehicle id.
func MitigationTarget(severity model.Severity, entityType model.EntityType, entityID string) (string, bool) {
	if entityType != model.EntityHost {
		return "", false
	}
	if severity != model.SeverityHigh && severity != model.SeverityCritical {
		return "", false
	}
	return "V_" + strings.ReplaceAll(entityID, ".", "_"), true
}

// Schedule queues an asynchronous quarantine for an alert and returns the
// response the alert's caller sees immediately. Alerts that do not qualify
// come back unscheduled.
func (m *Mitigator) Schedule(alert *model.SecurityAlert) Mitigation {
	vehicleID, ok := MitigationTarget(alert.Severity, alert.EntityType, alert.EntityID)
	if !ok {
		return Mitigation{Scheduled: false, Status: "none"}
	}
	select {
	case m.tasks <- mitigationTask{alertID: alert.ID, vehicleID: vehicleID}:
		return Mitigation{Scheduled: true, VehicleID: vehicleID, Status: "pending"}
	default:
		m.log.Warn(context.Background(), "mitigation queue full, dropping",
			logging.String("alert", alert.ID), logging.String("vehicle", vehicleID))
		return Mitigation{Scheduled: false, VehicleID: vehicleID, Status: "none", Reason: "queue full"}
	}
}

// handle quarantines the target vehicle if it exists. A missing vehicle is
// the expected case for most host alerts and is only logged.
func (m *Mitigator) handle(ctx context.Context, task mitigationTask) error {
	if _, err := m.traffic.ReadVehicle(ctx, task.vehicleID); err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			m.log.Info(ctx, "mitigation skipped, no such vehicle",
				logging.String("alert", task.alertID),
				logging.String("vehicle", task.vehicleID))
			return nil
		}
		return err
	}
	if _, err := m.traffic.UpdateVehicleStatus(ctx, task.vehicleID, model.VehicleQuarantine); err != nil {
		return err
	}
	m.log.Info(ctx, "vehicle quarantined",
		logging.String("alert", task.alertID),
		logging.String("vehicle", task.vehicleID))
	return nil
}
