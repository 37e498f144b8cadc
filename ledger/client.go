// Package ledger defines the narrow client interface the traffic core uses
// to reach its transactional asset store, plus an embedded BadgerDB-backed
// implementation with an append-only per-key history feed.
package ledger

import (
	"context"
	"time"
)

// Record is a raw key/value pair yielded by a range scan. Key is the logical
// asset id, not the store's internal key.
type Record struct {
	Key   string
	Value []byte
}

// HistoryEntry is one committed write or delete for a key, as yielded by the
// store's history feed.
type HistoryEntry struct {
	TxID      string    `json:"txId"`
	Timestamp time.Time `json:"timestamp"`
	Payload   []byte    `json:"payload,omitempty"`
	IsDelete  bool      `json:"isDelete"`
}

// TxReceipt identifies a committed write transaction.
type TxReceipt struct {
	TxID      string
	Timestamp time.Time
}

// Txn is the view of the store a transaction body operates on. All reads and
// writes inside one Submit or Evaluate call share a single transaction.
type Txn interface {
	// Get returns the current value for key, or ErrNotFound.
	Get(key string) ([]byte, error)
	// Put stages a write for key. Visible to later reads in the same
	// transaction; durable only once the transaction commits.
	Put(key string, value []byte) error
	// Delete stages removal of key.
	Delete(key string) error
	// Range returns all records with startKey <= key < endKey in key order.
	// Empty bounds are unbounded, matching the store's full keyspace scan.
	Range(startKey, endKey string) ([]Record, error)
}

// SubmitOptions carries write-policy parameters that are opaque to the core.
type SubmitOptions struct {
	// EndorsingOrgs is passed through to the store's endorsement policy.
	EndorsingOrgs []string
}

// SubmitOption customises a single Submit call.
type SubmitOption func(*SubmitOptions)

// WithEndorsingOrgs requires endorsement from the named organizations.
func WithEndorsingOrgs(orgs ...string) SubmitOption {
	return func(o *SubmitOptions) {
		o.EndorsingOrgs = append(o.EndorsingOrgs, orgs...)
	}
}

// Client is the asset store surface consumed by the asset state machine.
// Implementations must be safe for concurrent use.
type Client interface {
	// Submit runs fn inside a write transaction named op and commits it,
	// returning the transaction receipt. If fn returns an error the
	// transaction is discarded and the error returned unchanged.
	Submit(ctx context.Context, op string, fn func(Txn) error, opts ...SubmitOption) (*TxReceipt, error)

	// Evaluate runs fn inside a read-only transaction named op.
	Evaluate(ctx context.Context, op string, fn func(Txn) error) error

	// HistoryOf returns the full ordered history for key, oldest first.
	// Entries that cannot be decoded are skipped, not fatal.
	HistoryOf(ctx context.Context, key string) ([]HistoryEntry, error)

	// Close releases the underlying connection or database.
	Close() error
}
