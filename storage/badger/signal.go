package badger

import (
	"bytes"
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/kestrelhq/trendwatch/core"
	"github.com/kestrelhq/trendwatch/storage"
)

// SignalRepository implements storage.SignalRepository for BadgerDB.
type SignalRepository struct {
	backend *Backend
}

var _ storage.SignalRepository = (*SignalRepository)(nil)

// NewSignalRepository creates a new SignalRepository.
func NewSignalRepository(backend *Backend) (*SignalRepository, error) {
	return &SignalRepository{backend: backend}, nil
}

// Close releases repository resources. The backend stays open.
func (r *SignalRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *SignalRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddSignals stores one or more signals, overwriting by id.
func (r *SignalRepository) AddSignals(ctx context.Context, signals ...*core.Signal) error {
	for _, signal := range signals {
		if err := core.ValidateSignal(signal); err != nil {
			return err
		}
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, signal := range signals {
			key := makeSignalKey(signal.Id)

			// Clean the old date index entry when re-adding a signal
			// under a different timestamp.
			old, err := r.readSignal(tx, key)
			if err != nil {
				return err
			}
			if old != nil && !old.Timestamp.Equal(signal.Timestamp) {
				if err := tx.Delete(makeSignalDateKey(old.Timestamp, old.Id)); err != nil {
					return err
				}
			}

			if err := tx.Set(key, storage.MarshalSignal(signal)); err != nil {
				return err
			}
			dateKey := makeSignalDateKey(signal.Timestamp, signal.Id)
			if err := tx.Set(dateKey, []byte(signal.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetSignal retrieves a single signal by id.
func (r *SignalRepository) GetSignal(ctx context.Context, id string) (*core.Signal, error) {
	var result *core.Signal
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = r.readSignal(tx, makeSignalKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetSignals retrieves multiple signals by their ids.
func (r *SignalRepository) GetSignals(ctx context.Context, ids ...string) ([]*core.Signal, error) {
	var result []*core.Signal
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			signal, err := r.readSignal(tx, makeSignalKey(id))
			if err != nil {
				return err
			}
			if signal != nil {
				result = append(result, signal)
			}
		}
		return nil
	}, false)
	return result, err
}

// GetSignalsByDateRange retrieves signals within a time range.
func (r *SignalRepository) GetSignalsByDateRange(ctx context.Context, start, end time.Time) ([]*core.Signal, error) {
	if start.Equal(end) {
		end = start.Add(1 * time.Microsecond)
	}

	var results []*core.Signal
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		startKey := makePartialSignalDateKey(start)
		endKey := makePartialSignalDateKey(end)
		iter := tx.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()

		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if !bytes.HasPrefix(key, []byte(signalDatePrefix+":")) {
				break
			}
			if slices.Compare(key, endKey) >= 0 {
				break
			}

			var id string
			if err := iter.Item().Value(func(val []byte) error {
				id = string(val)
				return nil
			}); err != nil {
				return err
			}

			signal, err := r.readSignal(tx, makeSignalKey(id))
			if err != nil {
				return err
			}
			if signal != nil {
				results = append(results, signal)
			}
		}
		return nil
	}, false)

	return results, err
}

// FindSimilar scans the signal log for vectors similar to the query.
func (r *SignalRepository) FindSimilar(ctx context.Context, vector []float32, minSimilarity float64, limit int) ([]*core.SignalMatch, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}

	var results []*core.SignalMatch
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(signalPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var signal *core.Signal
			err := iter.Item().Value(func(val []byte) error {
				var err error
				signal, err = storage.UnmarshalSignal(val)
				return err
			})
			if err != nil {
				return err
			}
			if signal == nil || len(signal.Vector) == 0 {
				continue
			}

			score := core.CosineSimilarity(vector, signal.Vector)
			if score >= minSimilarity {
				results = append(results, &core.SignalMatch{
					Signal: signal,
					Score:  score,
				})
			}
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}

	// Sort by similarity descending
	slices.SortFunc(results, func(a, b *core.SignalMatch) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})

	if len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// readSignal reads and unmarshals a signal, returning nil if absent.
func (r *SignalRepository) readSignal(tx *badger.Txn, key []byte) (*core.Signal, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var signal *core.Signal
	err = item.Value(func(val []byte) error {
		var err error
		signal, err = storage.UnmarshalSignal(val)
		return err
	})
	return signal, err
}
