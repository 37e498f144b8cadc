package gateway

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/citygridlabs/traffic-twin/internal/logging"
	"github.com/citygridlabs/traffic-twin/ledger"
)

// fakeClient scripts per-operation failures and counts calls.
type fakeClient struct {
	mu       sync.Mutex
	evalErrs []error
	calls    int
	closed   bool
}

func (f *fakeClient) Submit(ctx context.Context, op string, fn func(ledger.Txn) error, opts ...ledger.SubmitOption) (*ledger.TxReceipt, error) {
	if err := f.nextErr(); err != nil {
		return nil, err
	}
	return &ledger.TxReceipt{TxID: "tx-fake"}, nil
}

func (f *fakeClient) Evaluate(ctx context.Context, op string, fn func(ledger.Txn) error) error {
	return f.nextErr()
}

func (f *fakeClient) HistoryOf(ctx context.Context, key string) ([]ledger.HistoryEntry, error) {
	if err := f.nextErr(); err != nil {
		return nil, err
	}
	return nil, nil
}

func (f *fakeClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeClient) nextErr() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.evalErrs) == 0 {
		return nil
	}
	err := f.evalErrs[0]
	f.evalErrs = f.evalErrs[1:]
	return err
}

func TestConcurrentConnectsCoalesce(t *testing.T) {
	var dials atomic.Int32
	release := make(chan struct{})
	m := New(func(ctx context.Context) (ledger.Client, error) {
		dials.Add(1)
		<-release
		return &fakeClient{}, nil
	}, logging.Noop())
	defer m.Close()

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = m.Evaluate(context.Background(), "Ping", func(ledger.Txn) error { return nil })
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d: %v", i, err)
		}
	}
	if got := dials.Load(); got != 1 {
		t.Fatalf("dials = %d, want 1", got)
	}
	if m.State() != Connected {
		t.Fatalf("state = %v, want connected", m.State())
	}
}

func TestTransientFailureRetriesOnce(t *testing.T) {
	first := &fakeClient{evalErrs: []error{ledger.ErrUnavailable}}
	second := &fakeClient{}
	clients := []*fakeClient{first, second}
	var dials int
	m := New(func(ctx context.Context) (ledger.Client, error) {
		c := clients[dials]
		dials++
		return c, nil
	}, logging.Noop())
	defer m.Close()

	if err := m.Evaluate(context.Background(), "GetVehicle", func(ledger.Txn) error { return nil }); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if dials != 2 {
		t.Fatalf("dials = %d, want 2", dials)
	}
	if !first.closed {
		t.Fatal("failed client was not closed")
	}
	if second.calls != 1 {
		t.Fatalf("retry calls = %d, want 1", second.calls)
	}
}

func TestSecondTransientFailurePropagates(t *testing.T) {
	var dials int
	m := New(func(ctx context.Context) (ledger.Client, error) {
		dials++
		return &fakeClient{evalErrs: []error{ledger.ErrUnavailable}}, nil
	}, logging.Noop())
	defer m.Close()

	err := m.Evaluate(context.Background(), "GetVehicle", func(ledger.Txn) error { return nil })
	if !errors.Is(err, ledger.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if dials != 2 {
		t.Fatalf("dials = %d, want 2", dials)
	}
}

func TestNonTransientFailureDoesNotRetry(t *testing.T) {
	fc := &fakeClient{evalErrs: []error{ledger.ErrNotFound}}
	var dials int
	m := New(func(ctx context.Context) (ledger.Client, error) {
		dials++
		return fc, nil
	}, logging.Noop())
	defer m.Close()

	err := m.Evaluate(context.Background(), "GetVehicle", func(ledger.Txn) error { return nil })
	if !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if dials != 1 {
		t.Fatalf("dials = %d, want 1", dials)
	}
	if fc.calls != 1 {
		t.Fatalf("calls = %d, want 1", fc.calls)
	}
	if m.State() != Connected {
		t.Fatalf("state = %v, want connected", m.State())
	}
}

func TestDialFailureRetriedWhenTransient(t *testing.T) {
	var dials int
	m := New(func(ctx context.Context) (ledger.Client, error) {
		dials++
		if dials == 1 {
			return nil, ledger.ErrUnavailable
		}
		return &fakeClient{}, nil
	}, logging.Noop())
	defer m.Close()

	if err := m.Evaluate(context.Background(), "Ping", func(ledger.Txn) error { return nil }); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if dials != 2 {
		t.Fatalf("dials = %d, want 2", dials)
	}
}

func TestClosedManagerRejectsOperations(t *testing.T) {
	fc := &fakeClient{}
	m := New(func(ctx context.Context) (ledger.Client, error) {
		return fc, nil
	}, logging.Noop())

	if err := m.Evaluate(context.Background(), "Ping", func(ledger.Txn) error { return nil }); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !fc.closed {
		t.Fatal("cached client not closed")
	}
	err := m.Evaluate(context.Background(), "Ping", func(ledger.Txn) error { return nil })
	if !errors.Is(err, ledger.ErrClosed) {
		t.Fatalf("err = %v, want ErrClosed", err)
	}
	if m.State() != Disconnected {
		t.Fatalf("state = %v, want disconnected", m.State())
	}
}
