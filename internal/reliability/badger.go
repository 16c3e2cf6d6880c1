package reliability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const (
	metricPrefix = "metric:"
	ledgerPrefix = "ledger:"

	maxConflictRetries = 5
)

type counts struct {
	Correct   float64 `json:"correct"`
	Incorrect float64 `json:"incorrect"`
}

type ledgerEntry struct {
	Correct    bool      `json:"correct"`
	RecordedAt time.Time `json:"recorded_at"`
}

type embedded struct {
	db     *badger.DB
	logger *slog.Logger
	closed atomic.Bool
}

// OpenBadger opens (or creates) a Badger database at path. An empty path
// opens an in-memory database.
func OpenBadger(path string, logger *slog.Logger) (Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", path, err)
	}
	return NewBadger(db, logger), nil
}

// NewBadger creates a Store over an open Badger database. Close closes db.
func NewBadger(db *badger.DB, logger *slog.Logger) Store {
	return &embedded{
		db:     db,
		logger: logger.With("system", "reliability", "driver", "badger"),
	}
}

func (e *embedded) Weights(ctx context.Context) (map[string]float64, error) {
	stats, err := e.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return weights(stats), nil
}

func (e *embedded) Stats(ctx context.Context) ([]Reliability, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}

	stats := make([]Reliability, 0)
	err := e.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(metricPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			item := it.Item()
			metric := string(item.Key()[len(prefix):])

			var c counts
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &c)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", metric, err)
			}
			stats = append(stats, NewReliability(metric, c.Correct, c.Incorrect))
		}
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("read reliability: %w", err)
	}
	return stats, nil
}

func (e *embedded) Record(ctx context.Context, fb Feedback) (bool, error) {
	if e.closed.Load() {
		return false, ErrClosed
	}

	inc := increments(fb)

	var applied bool
	var err error
	for range maxConflictRetries {
		if err = ctx.Err(); err != nil {
			return false, err
		}

		applied, err = e.record(fb, inc)
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
	}

	if err != nil {
		return false, fmt.Errorf("record feedback %s: %w", fb.DetectionID, err)
	}

	e.logger.Info("feedback recorded",
		"detection_id", fb.DetectionID,
		"correct", fb.Correct,
		"metrics", len(inc),
		"applied", applied,
	)
	return applied, nil
}

func (e *embedded) record(fb Feedback, inc map[string][2]float64) (bool, error) {
	applied := false

	err := e.db.Update(func(txn *badger.Txn) error {
		ledgerKey := []byte(ledgerPrefix + fb.DetectionID.String())

		_, err := txn.Get(ledgerKey)
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		for metric, d := range inc {
			key := []byte(metricPrefix + metric)

			var c counts
			item, err := txn.Get(key)
			switch {
			case errors.Is(err, badger.ErrKeyNotFound):
			case err != nil:
				return err
			default:
				if err := item.Value(func(val []byte) error {
					return json.Unmarshal(val, &c)
				}); err != nil {
					return err
				}
			}

			c.Correct += d[0]
			c.Incorrect += d[1]

			data, err := json.Marshal(c)
			if err != nil {
				return err
			}
			if err := txn.Set(key, data); err != nil {
				return err
			}
		}

		entry, err := json.Marshal(ledgerEntry{Correct: fb.Correct, RecordedAt: time.Now().UTC()})
		if err != nil {
			return err
		}
		if err := txn.Set(ledgerKey, entry); err != nil {
			return err
		}

		applied = true
		return nil
	})

	return applied, err
}

func (e *embedded) Close() error {
	if e.closed.Swap(true) {
		return nil
	}
	return e.db.Close()
}
