package storage

import (
	"context"
	"time"

	"github.com/kestrelhq/trendwatch/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// SignalRepository provides operations for the historical signal log.
type SignalRepository interface {
	Repository

	// AddSignals stores one or more signals, overwriting any signal that
	// already exists under the same id. Signals must pass
	// core.ValidateSignal.
	AddSignals(ctx context.Context, signals ...*core.Signal) error

	// GetSignal retrieves a single signal by id.
	// Returns ErrNotFound if the signal doesn't exist.
	GetSignal(ctx context.Context, id string) (*core.Signal, error)

	// GetSignals retrieves multiple signals by their ids.
	// Returns only the signals that exist (no error for missing signals).
	GetSignals(ctx context.Context, ids ...string) ([]*core.Signal, error)

	// GetSignalsByDateRange retrieves signals within a time range.
	// Returns signals where start <= Timestamp < end, ordered by timestamp.
	GetSignalsByDateRange(ctx context.Context, start, end time.Time) ([]*core.Signal, error)

	// FindSimilar finds stored signals similar to the given vector.
	// Returns signals with cosine similarity >= minSimilarity, up to limit
	// results, highest similarity first. Signals without a stored vector
	// are skipped.
	FindSimilar(ctx context.Context, vector []float32, minSimilarity float64, limit int) ([]*core.SignalMatch, error)
}

// CandidateRepository provides operations for the candidate cluster pool.
type CandidateRepository interface {
	Repository

	// UpsertCandidates inserts or replaces candidate clusters by id.
	// Candidates must pass core.ValidateCandidateCluster.
	UpsertCandidates(ctx context.Context, candidates ...*core.CandidateCluster) error

	// GetCandidate retrieves a single candidate cluster by id.
	// Returns ErrNotFound if the candidate doesn't exist.
	GetCandidate(ctx context.Context, id string) (*core.CandidateCluster, error)

	// ListCandidates retrieves the whole candidate pool ordered by
	// creation time, oldest first. The pool order is load-bearing:
	// evolution matches proto-clusters against candidates in this order.
	ListCandidates(ctx context.Context) ([]*core.CandidateCluster, error)

	// DeleteCandidates removes candidate clusters by their ids.
	// Returns ErrNotFound if any candidate doesn't exist.
	DeleteCandidates(ctx context.Context, ids ...string) error
}
