// Package state implements the traffic asset state machine. Every operation
// runs through the ledger client as a single transaction; nothing here keeps
// authoritative state in memory.
package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/citygridlabs/traffic-twin/internal/logging"
	"github.com/citygridlabs/traffic-twin/ledger"
	"github.com/citygridlabs/traffic-twin/model"
)

// Recorder receives operation-level metrics. Implementations must be safe
// for concurrent use.
type Recorder interface {
	// Transaction counts one store operation by name.
	Transaction(op string)
	// EntityDelta adjusts the live count for an asset kind.
	EntityDelta(kind model.Kind, delta int)
	// Violation counts one recorded speed violation.
	Violation()
}

type nopRecorder struct{}

func (nopRecorder) Transaction(string)          {}
func (nopRecorder) EntityDelta(model.Kind, int) {}
func (nopRecorder) Violation()                  {}

// NopRecorder discards all metrics.
func NopRecorder() Recorder { return nopRecorder{} }

// Traffic exposes one method per contract operation over the asset store.
type Traffic struct {
	store ledger.Client
	log   logging.Logger
	rec   Recorder
	orgs  []string
	now   func() time.Time
}

// Option configures a Traffic.
type Option func(*Traffic)

// WithRecorder attaches a metrics recorder.
func WithRecorder(rec Recorder) Option {
	return func(t *Traffic) { t.rec = rec }
}

// WithEndorsingOrgs sets the organization set attached to every write.
func WithEndorsingOrgs(orgs ...string) Option {
	return func(t *Traffic) { t.orgs = orgs }
}

// WithClock overrides the wall clock. Tests use this to pin timestamps.
func WithClock(now func() time.Time) Option {
	return func(t *Traffic) { t.now = now }
}

// New constructs a Traffic over store.
func New(store ledger.Client, log logging.Logger, opts ...Option) *Traffic {
	if log == nil {
		log = logging.Noop()
	}
	t := &Traffic{
		store: store,
		log:   log,
		rec:   nopRecorder{},
		now:   time.Now,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// timestamp renders the current time the way every record stores it.
func (t *Traffic) timestamp() string {
	return t.now().UTC().Format(time.RFC3339)
}

func (t *Traffic) submit(ctx context.Context, op string, fn func(ledger.Txn) error) error {
	t.rec.Transaction(op)
	var opts []ledger.SubmitOption
	if len(t.orgs) > 0 {
		opts = append(opts, ledger.WithEndorsingOrgs(t.orgs...))
	}
	_, err := t.store.Submit(ctx, op, fn, opts...)
	return err
}

func (t *Traffic) evaluate(ctx context.Context, op string, fn func(ledger.Txn) error) error {
	t.rec.Transaction(op)
	return t.store.Evaluate(ctx, op, fn)
}

// getAs reads and decodes one asset, insisting on the expected variant.
func getAs[T model.Asset](txn ledger.Txn, id string) (T, error) {
	var zero T
	raw, err := txn.Get(id)
	if err != nil {
		return zero, err
	}
	a, err := model.Decode(raw)
	if err != nil {
		return zero, fmt.Errorf("record %s: %w", id, err)
	}
	v, ok := a.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s is a %s", ledger.ErrValidation, id, a.AssetKind())
	}
	return v, nil
}

// exists reports whether any asset is stored under id.
func exists(txn ledger.Txn, id string) (bool, error) {
	_, err := txn.Get(id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ledger.ErrNotFound) {
		return false, nil
	}
	return false, err
}

// put encodes and stores an asset under its own key.
func put(txn ledger.Txn, a model.Asset) error {
	raw, err := model.Encode(a)
	if err != nil {
		return err
	}
	return txn.Put(a.Key(), raw)
}

// list scans the whole keyspace and collects assets of one concrete variant,
// optionally filtered. Records that fail to decode are skipped; the scan is
// shared by every query operation and one bad record must not break them
// all. The result is never nil so it serializes as an empty array.
func list[T model.Asset](ctx context.Context, t *Traffic, op string, keep func(T) bool) ([]T, error) {
	out := []T{}
	err := t.evaluate(ctx, op, func(txn ledger.Txn) error {
		recs, err := txn.Range("", "")
		if err != nil {
			return err
		}
		out = out[:0]
		for _, r := range recs {
			a, err := model.Decode(r.Value)
			if err != nil {
				t.log.Debug(ctx, "skipping undecodable record",
					logging.String("key", r.Key), logging.Err(err))
				continue
			}
			v, ok := a.(T)
			if !ok {
				continue
			}
			if keep == nil || keep(v) {
				out = append(out, v)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
