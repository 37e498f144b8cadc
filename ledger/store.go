package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/citygridlabs/traffic-twin/internal/logging"
)

// Key layout inside Badger. Asset state lives under "a/", history entries
// under "h/<id>/<seq>" where seq is a persistent monotonic sequence, so a
// prefix scan yields a key's history oldest first.
const (
	assetPrefix   = "a/"
	historyPrefix = "h/"
	seqKey        = "!seq"
)

// Options configures the embedded store.
type Options struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string
	// InMemory keeps all data in RAM. Used by tests and throwaway runs.
	InMemory bool
	// SyncWrites forces fsync on every commit.
	SyncWrites bool
	// Logger receives store-level events. Defaults to a no-op logger.
	Logger logging.Logger
}

// Store is the embedded BadgerDB-backed implementation of Client. It stands
// in for the external transactional ledger: linearizable per-key state plus
// an append-only per-key history feed written at commit time.
type Store struct {
	db  *badger.DB
	seq *badger.Sequence
	log logging.Logger
}

// Open opens (or creates) the store.
func Open(opts Options) (*Store, error) {
	log := opts.Logger
	if log == nil {
		log = logging.Noop()
	}

	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.Path == "" {
			return nil, fmt.Errorf("%w: store path is required", ErrValidation)
		}
		if err := os.MkdirAll(opts.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
		bopts = badger.DefaultOptions(opts.Path)
	}
	bopts = bopts.WithSyncWrites(opts.SyncWrites).WithLogger(nil)

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	seq, err := db.GetSequence([]byte(seqKey), 128)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open history sequence: %w", err)
	}
	return &Store{db: db, seq: seq, log: log}, nil
}

// Close releases the history sequence and closes the database.
func (s *Store) Close() error {
	if err := s.seq.Release(); err != nil {
		s.log.Warn(context.Background(), "release history sequence",
			logging.String("error", err.Error()))
	}
	return s.db.Close()
}

type stagedWrite struct {
	key      string
	value    []byte
	isDelete bool
}

// storeTxn adapts a Badger transaction to the Txn interface and records
// staged writes so Submit can append matching history entries at commit.
type storeTxn struct {
	btxn   *badger.Txn
	staged []stagedWrite
}

func (t *storeTxn) Get(key string) ([]byte, error) {
	item, err := t.btxn.Get([]byte(assetPrefix + key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return item.ValueCopy(nil)
}

func (t *storeTxn) Put(key string, value []byte) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrValidation)
	}
	if err := t.btxn.Set([]byte(assetPrefix+key), value); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	t.staged = append(t.staged, stagedWrite{key: key, value: value})
	return nil
}

func (t *storeTxn) Delete(key string) error {
	if err := t.btxn.Delete([]byte(assetPrefix + key)); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	t.staged = append(t.staged, stagedWrite{key: key, isDelete: true})
	return nil
}

func (t *storeTxn) Range(startKey, endKey string) ([]Record, error) {
	iopts := badger.DefaultIteratorOptions
	iopts.Prefix = []byte(assetPrefix)
	it := t.btxn.NewIterator(iopts)
	defer it.Close()

	var out []Record
	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		key := string(item.Key())[len(assetPrefix):]
		if startKey != "" && key < startKey {
			continue
		}
		if endKey != "" && key >= endKey {
			break
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return nil, fmt.Errorf("range read %s: %w", key, err)
		}
		out = append(out, Record{Key: key, Value: val})
	}
	return out, nil
}

// Submit implements Client. The endorsing-org option is accepted and logged
// but carries no policy in the embedded store.
func (s *Store) Submit(ctx context.Context, op string, fn func(Txn) error, opts ...SubmitOption) (*TxReceipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var so SubmitOptions
	for _, opt := range opts {
		opt(&so)
	}

	receipt := &TxReceipt{
		TxID:      uuid.NewString(),
		Timestamp: time.Now().UTC(),
	}

	btxn := s.db.NewTransaction(true)
	defer btxn.Discard()

	txn := &storeTxn{btxn: btxn}
	if err := fn(txn); err != nil {
		return nil, err
	}

	for _, w := range txn.staged {
		entry := HistoryEntry{
			TxID:      receipt.TxID,
			Timestamp: receipt.Timestamp,
			Payload:   w.value,
			IsDelete:  w.isDelete,
		}
		buf, err := json.Marshal(entry)
		if err != nil {
			return nil, fmt.Errorf("encode history entry for %s: %w", w.key, err)
		}
		n, err := s.seq.Next()
		if err != nil {
			return nil, fmt.Errorf("next history sequence: %w", err)
		}
		if err := btxn.Set(historyKey(w.key, n), buf); err != nil {
			return nil, fmt.Errorf("append history for %s: %w", w.key, err)
		}
	}

	if err := btxn.Commit(); err != nil {
		return nil, fmt.Errorf("commit %s: %w", op, err)
	}

	s.log.Debug(ctx, "transaction committed",
		logging.String("op", op),
		logging.String("tx_id", receipt.TxID),
		logging.Int("writes", len(txn.staged)),
		logging.Int("endorsing_orgs", len(so.EndorsingOrgs)))
	return receipt, nil
}

// Evaluate implements Client.
func (s *Store) Evaluate(ctx context.Context, op string, fn func(Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(btxn *badger.Txn) error {
		return fn(&storeTxn{btxn: btxn})
	})
}

// HistoryOf implements Client. Entries that fail to decode are skipped with
// a warning so one corrupt record cannot poison a key's whole history.
func (s *Store) HistoryOf(ctx context.Context, key string) ([]HistoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := []byte(historyPrefix + key + "/")

	var out []HistoryEntry
	err := s.db.View(func(btxn *badger.Txn) error {
		iopts := badger.DefaultIteratorOptions
		iopts.Prefix = prefix
		it := btxn.NewIterator(iopts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("read history entry: %w", err)
			}
			var entry HistoryEntry
			if err := json.Unmarshal(val, &entry); err != nil {
				s.log.Warn(ctx, "skipping undecodable history entry",
					logging.String("key", key),
					logging.String("error", err.Error()))
				continue
			}
			out = append(out, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func historyKey(key string, seq uint64) []byte {
	return fmt.Appendf(nil, "%s%s/%016x", historyPrefix, key, seq)
}
