package badger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/kestrelhq/trendwatch/core"
	"github.com/kestrelhq/trendwatch/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCandidateRepo(t *testing.T) storage.CandidateRepository {
	t.Helper()
	signalRepo, candidateRepo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		signalRepo.Close()
		candidateRepo.Close()
		backend.Close()
	})
	return candidateRepo
}

func storedCandidate(id string, createdAt time.Time, signalIds ...string) *core.CandidateCluster {
	signals := make([]*core.Signal, len(signalIds))
	embeddings := make([][]float32, len(signalIds))
	for i, sid := range signalIds {
		signals[i] = &core.Signal{
			Id:        sid,
			Text:      fmt.Sprintf("text for %s", sid),
			Timestamp: createdAt,
			Source:    "tech_news",
		}
		embeddings[i] = []float32{1, 0, 0}
	}
	return &core.CandidateCluster{
		Id:          id,
		Signals:     signals,
		Embeddings:  embeddings,
		Centroid:    []float32{1, 0, 0},
		SignalCount: len(signals),
		CreatedAt:   createdAt,
		LastUpdated: createdAt,
		GrowthRatio: 1.0,
	}
}

func TestCandidateRepositoryUpsertAndGet(t *testing.T) {
	repo := setupCandidateRepo(t)
	ctx := context.Background()
	createdAt := time.Now().UTC().Add(-time.Hour).Truncate(time.Microsecond)

	candidate := storedCandidate("cand_001", createdAt, "sig_001", "sig_002")
	candidate.Coherence = 0.82
	candidate.CriticReport = &core.CriticReport{
		Confidence:        core.ConfidenceMedium,
		Flags:             []string{"single source"},
		RecommendedAction: core.ActionKeepCandidate,
		Metrics:           core.ClusterMetrics{SignalCount: 2, SourceDiversity: 1, Coherence: 0.82},
	}

	require.NoError(t, repo.UpsertCandidates(ctx, candidate))

	got, err := repo.GetCandidate(ctx, "cand_001")
	require.NoError(t, err)
	assert.Equal(t, "cand_001", got.Id)
	assert.Equal(t, 2, got.SignalCount)
	assert.Equal(t, createdAt, got.CreatedAt)
	assert.Equal(t, 0.82, got.Coherence)
	require.NotNil(t, got.CriticReport)
	assert.Equal(t, core.ConfidenceMedium, got.CriticReport.Confidence)
	assert.Nil(t, got.ControllerDecision)
}

func TestCandidateRepositoryGetMissing(t *testing.T) {
	repo := setupCandidateRepo(t)

	_, err := repo.GetCandidate(context.Background(), "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCandidateRepositoryRejectsInvalid(t *testing.T) {
	repo := setupCandidateRepo(t)

	broken := storedCandidate("cand_001", time.Now().UTC().Add(-time.Hour))
	broken.SignalCount = 5

	err := repo.UpsertCandidates(context.Background(), broken)
	assert.ErrorIs(t, err, core.ErrInvalidCluster)
}

func TestCandidateRepositoryUpsertReplaces(t *testing.T) {
	repo := setupCandidateRepo(t)
	ctx := context.Background()
	createdAt := time.Now().UTC().Add(-time.Hour).Truncate(time.Microsecond)

	require.NoError(t, repo.UpsertCandidates(ctx, storedCandidate("cand_001", createdAt, "sig_001")))

	grown := storedCandidate("cand_001", createdAt, "sig_001", "sig_002", "sig_003")
	grown.GrowthRatio = 3.0
	require.NoError(t, repo.UpsertCandidates(ctx, grown))

	got, err := repo.GetCandidate(ctx, "cand_001")
	require.NoError(t, err)
	assert.Equal(t, 3, got.SignalCount)
	assert.Equal(t, 3.0, got.GrowthRatio)

	// Still exactly one pool entry.
	pool, err := repo.ListCandidates(ctx)
	require.NoError(t, err)
	assert.Len(t, pool, 1)
}

func TestCandidateRepositoryListOrder(t *testing.T) {
	repo := setupCandidateRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Insert out of creation order; listing must come back oldest first.
	require.NoError(t, repo.UpsertCandidates(ctx,
		storedCandidate("cand_newest", base.Add(2*time.Hour), "sig_003"),
		storedCandidate("cand_oldest", base, "sig_001"),
		storedCandidate("cand_middle", base.Add(time.Hour), "sig_002"),
	))

	pool, err := repo.ListCandidates(ctx)
	require.NoError(t, err)
	require.Len(t, pool, 3)
	assert.Equal(t, "cand_oldest", pool[0].Id)
	assert.Equal(t, "cand_middle", pool[1].Id)
	assert.Equal(t, "cand_newest", pool[2].Id)
}

func TestCandidateRepositoryDelete(t *testing.T) {
	repo := setupCandidateRepo(t)
	ctx := context.Background()
	createdAt := time.Now().UTC().Add(-time.Hour).Truncate(time.Microsecond)

	require.NoError(t, repo.UpsertCandidates(ctx,
		storedCandidate("cand_001", createdAt, "sig_001"),
		storedCandidate("cand_002", createdAt.Add(time.Minute), "sig_002"),
	))

	require.NoError(t, repo.DeleteCandidates(ctx, "cand_001"))

	_, err := repo.GetCandidate(ctx, "cand_001")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	pool, err := repo.ListCandidates(ctx)
	require.NoError(t, err)
	require.Len(t, pool, 1)
	assert.Equal(t, "cand_002", pool[0].Id)

	t.Run("missing id errors", func(t *testing.T) {
		assert.ErrorIs(t, repo.DeleteCandidates(ctx, "cand_001"), storage.ErrNotFound)
	})
}

func TestCandidateRepositoryRoundTripEmbeddings(t *testing.T) {
	repo := setupCandidateRepo(t)
	ctx := context.Background()
	createdAt := time.Now().UTC().Add(-time.Hour).Truncate(time.Microsecond)

	candidate := storedCandidate("cand_001", createdAt, "sig_001", "sig_002")
	candidate.Embeddings = [][]float32{{0.1, 0.2, 0.3}, {0.4, 0.5, 0.6}}
	candidate.Centroid = []float32{0.25, 0.35, 0.45}

	require.NoError(t, repo.UpsertCandidates(ctx, candidate))

	got, err := repo.GetCandidate(ctx, "cand_001")
	require.NoError(t, err)
	assert.Equal(t, candidate.Embeddings, got.Embeddings)
	assert.Equal(t, candidate.Centroid, got.Centroid)
}
