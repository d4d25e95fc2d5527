package badger

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/kestrelhq/trendwatch/core"
	"github.com/kestrelhq/trendwatch/storage"
)

// CandidateRepository implements storage.CandidateRepository for BadgerDB.
type CandidateRepository struct {
	backend *Backend
}

var _ storage.CandidateRepository = (*CandidateRepository)(nil)

// NewCandidateRepository creates a new CandidateRepository.
func NewCandidateRepository(backend *Backend) (*CandidateRepository, error) {
	return &CandidateRepository{backend: backend}, nil
}

// Close releases repository resources. The backend stays open.
func (r *CandidateRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *CandidateRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// UpsertCandidates inserts or replaces candidate clusters by id.
func (r *CandidateRepository) UpsertCandidates(ctx context.Context, candidates ...*core.CandidateCluster) error {
	for _, candidate := range candidates {
		if err := core.ValidateCandidateCluster(candidate); err != nil {
			return err
		}
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, candidate := range candidates {
			key := makeCandidateKey(candidate.Id)

			// CreatedAt never changes after insert, so the index entry
			// only needs cleanup if it somehow did.
			old, err := r.readCandidate(tx, key)
			if err != nil {
				return err
			}
			if old != nil && !old.CreatedAt.Equal(candidate.CreatedAt) {
				if err := tx.Delete(makeCandidateDateKey(old.CreatedAt, old.Id)); err != nil {
					return err
				}
			}

			if err := tx.Set(key, storage.MarshalCandidateCluster(candidate)); err != nil {
				return err
			}
			dateKey := makeCandidateDateKey(candidate.CreatedAt, candidate.Id)
			if err := tx.Set(dateKey, []byte(candidate.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetCandidate retrieves a single candidate cluster by id.
func (r *CandidateRepository) GetCandidate(ctx context.Context, id string) (*core.CandidateCluster, error) {
	var result *core.CandidateCluster
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = r.readCandidate(tx, makeCandidateKey(id))
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

// ListCandidates retrieves the whole pool in creation order, oldest first.
func (r *CandidateRepository) ListCandidates(ctx context.Context) ([]*core.CandidateCluster, error) {
	var results []*core.CandidateCluster
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(candidateDatePrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var id string
			if err := iter.Item().Value(func(val []byte) error {
				id = string(val)
				return nil
			}); err != nil {
				return err
			}

			candidate, err := r.readCandidate(tx, makeCandidateKey(id))
			if err != nil {
				return err
			}
			if candidate != nil {
				results = append(results, candidate)
			}
		}
		return nil
	}, false)

	return results, err
}

// DeleteCandidates removes candidate clusters by their ids.
func (r *CandidateRepository) DeleteCandidates(ctx context.Context, ids ...string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeCandidateKey(id)

			candidate, err := r.readCandidate(tx, key)
			if err != nil {
				return err
			}
			if candidate == nil {
				return storage.ErrNotFound
			}

			if err := tx.Delete(makeCandidateDateKey(candidate.CreatedAt, candidate.Id)); err != nil {
				return err
			}
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// readCandidate reads and unmarshals a candidate, returning nil if absent.
func (r *CandidateRepository) readCandidate(tx *badger.Txn, key []byte) (*core.CandidateCluster, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var candidate *core.CandidateCluster
	err = item.Value(func(val []byte) error {
		var err error
		candidate, err = storage.UnmarshalCandidateCluster(val)
		return err
	})
	return candidate, err
}
