package state

import (
	"testing"

	"github.com/citygridlabs/traffic-twin/internal/logging"
	"github.com/citygridlabs/traffic-twin/ledger"
)

func newTraffic(t *testing.T, opts ...Option) *Traffic {
	t.Helper()
	store, err := ledger.Open(ledger.Options{InMemory: true})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return New(store, logging.Noop(), opts...)
}
