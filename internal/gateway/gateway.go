// Package gateway owns the single cached connection to the asset store.
// Connecting and disconnecting per request exhausts sockets under load, so
// the manager connects once, hands the same client to every caller,
// coalesces concurrent first-time connects, and retries a failed operation
// exactly once against a fresh connection when the failure is transient.
package gateway

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/citygridlabs/traffic-twin/internal/logging"
	"github.com/citygridlabs/traffic-twin/ledger"
)

// State is the manager's connection lifecycle state.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

// String implements fmt.Stringer for log fields.
func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Dialer establishes a fresh client to the asset store.
type Dialer func(ctx context.Context) (ledger.Client, error)

// Manager implements ledger.Client by delegating to a lazily dialed, cached
// client. Safe for concurrent use.
type Manager struct {
	dial Dialer
	log  logging.Logger

	mu     sync.Mutex
	state  State
	client ledger.Client
	closed bool

	group singleflight.Group
}

// New constructs a Manager around dial. No connection is opened until the
// first operation.
func New(dial Dialer, log logging.Logger) *Manager {
	if log == nil {
		log = logging.Noop()
	}
	return &Manager{dial: dial, log: log}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// connect returns the cached client, dialing if necessary. Concurrent
// callers with no cached client share one in-flight dial.
func (m *Manager) connect(ctx context.Context) (ledger.Client, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ledger.ErrClosed
	}
	if m.client != nil {
		c := m.client
		m.mu.Unlock()
		return c, nil
	}
	m.state = Connecting
	m.mu.Unlock()

	v, err, _ := m.group.Do("connect", func() (any, error) {
		c, err := m.dial(ctx)
		if err != nil {
			m.mu.Lock()
			m.state = Disconnected
			m.mu.Unlock()
			return nil, err
		}
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			_ = c.Close()
			return nil, ledger.ErrClosed
		}
		m.client = c
		m.state = Connected
		m.mu.Unlock()
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(ledger.Client), nil
}

// invalidate discards the cached client if it is still the one the failed
// operation used, so a concurrent redial is not thrown away.
func (m *Manager) invalidate(c ledger.Client) {
	m.mu.Lock()
	if m.client != c || m.client == nil {
		m.mu.Unlock()
		return
	}
	m.client = nil
	m.state = Disconnected
	m.mu.Unlock()
	_ = c.Close()
}

// do runs fn against the cached client, redialing and retrying exactly once
// when the failure is a transient connectivity error. A second failure, or
// any non-transient failure, propagates unchanged.
func (m *Manager) do(ctx context.Context, fn func(ledger.Client) error) error {
	c, err := m.connect(ctx)
	if err == nil {
		err = fn(c)
		if err == nil || !ledger.IsTransient(err) {
			return err
		}
		m.log.Warn(ctx, "transient store failure, reconnecting once", logging.Err(err))
		m.invalidate(c)
	} else if !ledger.IsTransient(err) {
		return err
	}

	c, err2 := m.connect(ctx)
	if err2 != nil {
		return err2
	}
	return fn(c)
}

// Submit implements ledger.Client.
func (m *Manager) Submit(ctx context.Context, op string, fn func(ledger.Txn) error, opts ...ledger.SubmitOption) (*ledger.TxReceipt, error) {
	var receipt *ledger.TxReceipt
	err := m.do(ctx, func(c ledger.Client) error {
		r, err := c.Submit(ctx, op, fn, opts...)
		if err != nil {
			return err
		}
		receipt = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// Evaluate implements ledger.Client.
func (m *Manager) Evaluate(ctx context.Context, op string, fn func(ledger.Txn) error) error {
	return m.do(ctx, func(c ledger.Client) error {
		return c.Evaluate(ctx, op, fn)
	})
}

// HistoryOf implements ledger.Client.
func (m *Manager) HistoryOf(ctx context.Context, key string) ([]ledger.HistoryEntry, error) {
	var entries []ledger.HistoryEntry
	err := m.do(ctx, func(c ledger.Client) error {
		var err error
		entries, err = c.HistoryOf(ctx, key)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Close releases the cached client. Subsequent operations fail with
// ledger.ErrClosed.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	c := m.client
	m.client = nil
	m.state = Disconnected
	m.mu.Unlock()

	if c != nil {
		return c.Close()
	}
	return nil
}
