package cluster

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kestrelhq/trendwatch/ai"
	"github.com/kestrelhq/trendwatch/core"
)

// DefaultSimilarityThreshold is the centroid similarity above which a
// proto-cluster is merged into an existing candidate.
const DefaultSimilarityThreshold = 0.70

// Engine merges batches of proto-clusters into a persisted candidate pool
// using centroid similarity. The engine itself performs no I/O beyond
// embedding calls; loading and storing the pool is the caller's job, and the
// caller must serialize Evolve passes over the same pool (single writer).
type Engine struct {
	embedder  ai.Embedder
	threshold float64
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine) error

// WithThreshold sets the centroid similarity threshold for merging.
// Default is DefaultSimilarityThreshold.
func WithThreshold(threshold float64) Option {
	return func(e *Engine) error {
		if threshold <= 0 || threshold > 1 {
			return fmt.Errorf("%w: threshold %v out of (0, 1]", ErrInvalidThreshold, threshold)
		}
		e.threshold = threshold
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// NewEngine creates a new evolution engine.
func NewEngine(embedder ai.Embedder, opts ...Option) (*Engine, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	e := &Engine{
		embedder:  embedder,
		threshold: DefaultSimilarityThreshold,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// Evolve merges the proto-clusters into the candidate pool, in input order.
//
// Each proto-cluster is matched against the candidates in their current
// order and merged into the FIRST candidate whose centroid similarity meets
// the threshold; the greedy first-match policy deliberately favors older
// clusters. Signals already present in the matched candidate (by id) are
// skipped; a proto-cluster whose signals are all duplicates still counts as
// merged. When no candidate matches, a new candidate seeded from the
// proto-cluster is appended.
//
// Candidates that already carry a centroid from a prior pass keep their
// stored embeddings untouched; the embedding list is an append-only cache.
//
// On an embedding failure the error wraps ErrEmbeddingFailed and the
// partially updated pool is returned: proto-clusters merged before the
// failure stay merged, the rest of the batch is abandoned.
func (e *Engine) Evolve(ctx context.Context, candidates []*core.CandidateCluster, protos []*core.ProtoCluster) ([]*core.CandidateCluster, error) {
	if err := e.prepareCandidates(ctx, candidates); err != nil {
		return candidates, err
	}

	for _, proto := range protos {
		embeddings, err := e.embedSignals(ctx, proto.Signals)
		if err != nil {
			return candidates, err
		}
		centroid, err := core.Centroid(embeddings)
		if err != nil {
			return candidates, err
		}

		merged := false
		for _, candidate := range candidates {
			sim := core.CosineSimilarity(centroid, candidate.Centroid)
			if sim < e.threshold {
				continue
			}

			if err := e.merge(ctx, candidate, proto, embeddings); err != nil {
				return candidates, err
			}
			e.logger.Debug("merged proto-cluster into candidate",
				"proto", proto.Id,
				"candidate", candidate.Id,
				"similarity", sim,
				"signals", candidate.SignalCount)
			merged = true
			break
		}

		if !merged {
			candidate := e.newCandidate(proto, embeddings, centroid)
			candidates = append(candidates, candidate)
			e.logger.Debug("created new candidate",
				"proto", proto.Id,
				"candidate", candidate.Id,
				"signals", candidate.SignalCount)
		}
	}

	return candidates, nil
}

// prepareCandidates backfills embeddings and centroids for candidates that
// were stored before either existed. Candidates holding a centroid are left
// alone.
func (e *Engine) prepareCandidates(ctx context.Context, candidates []*core.CandidateCluster) error {
	for _, candidate := range candidates {
		if len(candidate.Centroid) > 0 {
			continue
		}

		embeddings, err := e.embedSignals(ctx, candidate.Signals)
		if err != nil {
			return err
		}
		candidate.Embeddings = embeddings
		if err := candidate.RecomputeCentroid(); err != nil {
			return err
		}
	}
	return nil
}

// embedSignals returns one vector per signal, reusing vectors already
// attached to the signals and embedding only the rest.
func (e *Engine) embedSignals(ctx context.Context, signals []*core.Signal) ([][]float32, error) {
	embeddings := make([][]float32, len(signals))
	var missing []string
	var missingIdx []int

	for i, s := range signals {
		if len(s.Vector) > 0 {
			embeddings[i] = s.Vector
			continue
		}
		missing = append(missing, s.Text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) > 0 {
		embedded, err := e.embedder.EmbedTexts(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEmbeddingFailed, err)
		}
		if len(embedded) != len(missing) {
			return nil, fmt.Errorf("%w: expected %d vectors, received %d",
				ErrEmbeddingFailed, len(missing), len(embedded))
		}
		for j, v := range embedded {
			embeddings[missingIdx[j]] = v
			signals[missingIdx[j]].Vector = v
		}
	}

	return embeddings, nil
}

// merge appends the proto-cluster's unseen signals to the candidate and
// refreshes the derived fields. protoEmbeddings is parallel to proto.Signals.
func (e *Engine) merge(ctx context.Context, candidate *core.CandidateCluster, proto *core.ProtoCluster, protoEmbeddings [][]float32) error {
	before := candidate.SignalCount

	added := false
	for i, s := range proto.Signals {
		if candidate.HasSignal(s.Id) {
			continue
		}
		candidate.Signals = append(candidate.Signals, s)
		candidate.Embeddings = append(candidate.Embeddings, protoEmbeddings[i])
		added = true
	}

	// All-duplicate merge: candidate unchanged, still counts as merged.
	if !added {
		return nil
	}

	candidate.SignalCount = len(candidate.Signals)
	candidate.LastUpdated = time.Now().UTC()
	if before > 0 {
		candidate.GrowthRatio = float64(candidate.SignalCount) / float64(before)
	}
	// Cached coherence is stale once membership changes.
	candidate.Coherence = 0

	return candidate.RecomputeCentroid()
}

// newCandidate seeds a candidate cluster from an unmatched proto-cluster.
func (e *Engine) newCandidate(proto *core.ProtoCluster, embeddings [][]float32, centroid []float32) *core.CandidateCluster {
	now := time.Now().UTC()
	return &core.CandidateCluster{
		Id:          uuid.NewString(),
		Signals:     proto.Signals,
		Embeddings:  embeddings,
		Centroid:    centroid,
		SignalCount: len(proto.Signals),
		CreatedAt:   now,
		LastUpdated: now,
		GrowthRatio: 1.0,
	}
}
