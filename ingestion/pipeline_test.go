package ingestion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kestrelhq/trendwatch/ai/mock"
	"github.com/kestrelhq/trendwatch/core"
	"github.com/kestrelhq/trendwatch/storage"
	badgerstore "github.com/kestrelhq/trendwatch/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testVectors routes both single and batch embedding calls through one
// fixed text->vector table so clustering outcomes are deterministic.
func testVectors(vectors map[string][]float32) *mock.MockEmbedder {
	lookup := func(text string) ([]float32, error) {
		v, ok := vectors[text]
		if !ok {
			return nil, errors.New("unknown text: " + text)
		}
		return v, nil
	}
	m := mock.NewMockEmbedder()
	m.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return lookup(text)
	}
	m.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i, text := range texts {
			v, err := lookup(text)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}
	return m
}

func setupPipeline(t *testing.T, embedder *mock.MockEmbedder, opts ...Option) (*Pipeline, storage.SignalRepository, storage.CandidateRepository) {
	t.Helper()

	signalRepo, candidateRepo, backend, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		signalRepo.Close()
		candidateRepo.Close()
		backend.Close()
	})

	provider := mock.NewMockProviderWithServices(embedder, mock.NewMockTitler())
	pipeline, err := NewPipeline(signalRepo, candidateRepo, provider, opts...)
	require.NoError(t, err)
	t.Cleanup(pipeline.Release)

	return pipeline, signalRepo, candidateRepo
}

func batchSignal(id, text, source string) *core.Signal {
	return &core.Signal{
		Id:        id,
		Text:      text,
		Timestamp: time.Now().UTC().Add(-time.Hour),
		Source:    source,
		Domain:    "emerging_technology",
	}
}

func TestNewPipelineValidation(t *testing.T) {
	signalRepo, candidateRepo, backend, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		signalRepo.Close()
		candidateRepo.Close()
		backend.Close()
	})
	provider := mock.NewMockProvider()

	t.Run("requires signal repository", func(t *testing.T) {
		_, err := NewPipeline(nil, candidateRepo, provider)
		assert.ErrorIs(t, err, ErrSignalRepositoryRequired)
	})

	t.Run("requires candidate repository", func(t *testing.T) {
		_, err := NewPipeline(signalRepo, nil, provider)
		assert.ErrorIs(t, err, ErrCandidateRepositoryRequired)
	})

	t.Run("requires provider", func(t *testing.T) {
		_, err := NewPipeline(signalRepo, candidateRepo, nil)
		assert.ErrorIs(t, err, ErrAIProviderRequired)
	})

	t.Run("rejects bad retry policy", func(t *testing.T) {
		_, err := NewPipeline(signalRepo, candidateRepo, provider, WithRetryPolicy(0, time.Second))
		assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
	})
}

func TestProcessSignalsEmptyBatch(t *testing.T) {
	pipeline, _, _ := setupPipeline(t, mock.NewMockEmbedder())

	report, err := pipeline.ProcessSignals(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, report.SignalsProcessed)
	assert.Equal(t, 0, report.ProtoClusters)
}

func TestProcessSignalsRejectsInvalid(t *testing.T) {
	pipeline, _, _ := setupPipeline(t, mock.NewMockEmbedder())

	_, err := pipeline.ProcessSignals(context.Background(), []*core.Signal{{Text: "no id"}})
	assert.ErrorIs(t, err, core.ErrInvalidSignal)
}

func TestProcessSignalsCreatesCandidates(t *testing.T) {
	embedder := testVectors(map[string][]float32{
		"gpu scarcity reported": {1, 0, 0},
		"quantum breakthroughs": {0, 0, 1},
	})
	pipeline, signalRepo, candidateRepo := setupPipeline(t, embedder)
	ctx := context.Background()

	report, err := pipeline.ProcessSignals(ctx, []*core.Signal{
		batchSignal("sig_001", "gpu scarcity reported", "tech_news"),
		batchSignal("sig_002", "quantum breakthroughs", "academic_journal"),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, report.SignalsProcessed)
	assert.Equal(t, 2, report.ProtoClusters)
	assert.Equal(t, 0, report.PoolBefore)
	assert.Equal(t, 2, report.PoolAfter)
	assert.Equal(t, 2, report.CandidatesCreated)
	assert.Equal(t, 0, report.ProtosMerged)

	// Signals landed in the log with their vectors.
	stored, err := signalRepo.GetSignal(ctx, "sig_001")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0}, stored.Vector)

	// Each candidate carries a critic report and controller decision.
	pool, err := candidateRepo.ListCandidates(ctx)
	require.NoError(t, err)
	require.Len(t, pool, 2)
	for _, candidate := range pool {
		require.NotNil(t, candidate.CriticReport)
		require.NotNil(t, candidate.ControllerDecision)
		assert.Equal(t, core.ActionDemoteWait, candidate.ControllerDecision.FinalAction,
			"singletons lack evidence")
	}
	assert.Equal(t, 2, report.Demoted)
}

func TestProcessSignalsMergesAcrossBatches(t *testing.T) {
	embedder := testVectors(map[string][]float32{
		"gpu scarcity reported": {1, 0, 0},
		"gpu procurement pains": {0.95, 0.05, 0},
	})
	pipeline, _, candidateRepo := setupPipeline(t, embedder)
	ctx := context.Background()

	_, err := pipeline.ProcessSignals(ctx, []*core.Signal{
		batchSignal("sig_001", "gpu scarcity reported", "tech_news"),
	})
	require.NoError(t, err)

	report, err := pipeline.ProcessSignals(ctx, []*core.Signal{
		batchSignal("sig_002", "gpu procurement pains", "research_blog"),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, report.PoolBefore)
	assert.Equal(t, 1, report.PoolAfter)
	assert.Equal(t, 0, report.CandidatesCreated)
	assert.Equal(t, 1, report.ProtosMerged)

	pool, err := candidateRepo.ListCandidates(ctx)
	require.NoError(t, err)
	require.Len(t, pool, 1)

	candidate := pool[0]
	// The second signal found the first as a neighbor, so the merged
	// proto-cluster carried both; dedup keeps the count at 2.
	assert.Equal(t, 2, candidate.SignalCount)
	assert.Equal(t, 2, candidate.CriticReport.Metrics.SourceDiversity)
}

func TestProcessSignalsNeighborLimit(t *testing.T) {
	embedder := testVectors(map[string][]float32{
		"alpha": {1, 0, 0},
		"beta":  {0.99, 0.01, 0},
		"gamma": {0.98, 0.02, 0},
	})
	pipeline, _, _ := setupPipeline(t, embedder, WithNeighborLimit(1))
	ctx := context.Background()

	_, err := pipeline.ProcessSignals(ctx, []*core.Signal{
		batchSignal("sig_001", "alpha", "tech_news"),
		batchSignal("sig_002", "beta", "tech_news"),
	})
	require.NoError(t, err)

	report, err := pipeline.ProcessSignals(ctx, []*core.Signal{
		batchSignal("sig_003", "gamma", "tech_news"),
	})
	require.NoError(t, err)

	// One proto-cluster from the trigger plus at most one neighbor.
	assert.Equal(t, 1, report.ProtoClusters)
}

func TestProcessSignalsEmbeddingFailure(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("provider down")
	}
	pipeline, signalRepo, _ := setupPipeline(t, embedder, WithRetryPolicy(2, time.Millisecond))
	ctx := context.Background()

	_, err := pipeline.ProcessSignals(ctx, []*core.Signal{
		batchSignal("sig_001", "anything", "tech_news"),
	})
	require.Error(t, err)

	// Nothing was stored: the batch failed before the log append.
	_, err = signalRepo.GetSignal(ctx, "sig_001")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestProcessSignalsRetriesEmbedding(t *testing.T) {
	attempts := 0
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("transient")
		}
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{1, 0, 0}
		}
		return out, nil
	}
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 0, 0}, nil
	}
	pipeline, _, _ := setupPipeline(t, embedder, WithRetryPolicy(3, time.Millisecond))

	report, err := pipeline.ProcessSignals(context.Background(), []*core.Signal{
		batchSignal("sig_001", "flaky once", "tech_news"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.SignalsProcessed)
	assert.GreaterOrEqual(t, attempts, 2)
}

func TestProcessSignalsGrowsToPromotion(t *testing.T) {
	// Ten near-identical signals from two sources: after the batch the
	// single cluster meets every high-confidence gate.
	vectors := map[string][]float32{}
	signals := make([]*core.Signal, 10)
	texts := []string{
		"agents zero", "agents one", "agents two", "agents three", "agents four",
		"agents five", "agents six", "agents seven", "agents eight", "agents nine",
	}
	for i, text := range texts {
		vectors[text] = []float32{1, float32(i) * 0.001, 0}
		source := "tech_news"
		if i%2 == 1 {
			source = "research_blog"
		}
		signals[i] = batchSignal(texts[i], text, source)
	}

	pipeline, _, candidateRepo := setupPipeline(t, testVectors(vectors))
	ctx := context.Background()

	report, err := pipeline.ProcessSignals(ctx, signals)
	require.NoError(t, err)

	pool, err := candidateRepo.ListCandidates(ctx)
	require.NoError(t, err)
	require.Len(t, pool, 1, "all ten signals cluster together")

	candidate := pool[0]
	assert.Equal(t, 10, candidate.SignalCount)
	assert.Equal(t, core.ConfidenceHigh, candidate.CriticReport.Confidence)
	assert.Equal(t, core.ActionPromote, candidate.ControllerDecision.FinalAction)
	assert.Equal(t, 1, report.Promoted)
}

func TestProcessSignalsDuplicateSignalAcrossBatches(t *testing.T) {
	embedder := testVectors(map[string][]float32{
		"same signal text": {1, 0, 0},
	})
	pipeline, _, candidateRepo := setupPipeline(t, embedder)
	ctx := context.Background()

	_, err := pipeline.ProcessSignals(ctx, []*core.Signal{
		batchSignal("sig_001", "same signal text", "tech_news"),
	})
	require.NoError(t, err)

	report, err := pipeline.ProcessSignals(ctx, []*core.Signal{
		batchSignal("sig_001", "same signal text", "tech_news"),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, report.ProtosMerged, "duplicate folds into the existing candidate")

	pool, err := candidateRepo.ListCandidates(ctx)
	require.NoError(t, err)
	require.Len(t, pool, 1)
	assert.Equal(t, 1, pool[0].SignalCount, "same id never counted twice")
}

func TestEngineThresholdOption(t *testing.T) {
	embedder := testVectors(map[string][]float32{
		"alpha": {1, 0, 0},
		"beta":  {0.8, 0.6, 0},
	})
	// similarity(alpha, beta) = 0.8: below the default threshold they
	// merge, above it they stay separate.
	pipeline, _, candidateRepo := setupPipeline(t, embedder,
		WithSimilarityThreshold(0.95),
		WithMinNeighborSimilarity(0.99))
	ctx := context.Background()

	_, err := pipeline.ProcessSignals(ctx, []*core.Signal{
		batchSignal("sig_001", "alpha", "tech_news"),
	})
	require.NoError(t, err)
	_, err = pipeline.ProcessSignals(ctx, []*core.Signal{
		batchSignal("sig_002", "beta", "tech_news"),
	})
	require.NoError(t, err)

	pool, err := candidateRepo.ListCandidates(ctx)
	require.NoError(t, err)
	assert.Len(t, pool, 2)
}

func TestRetryWithBackoff(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds first try", func(t *testing.T) {
		calls := 0
		err := RetryWithBackoff(ctx, func() error {
			calls++
			return nil
		}, 3, time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("retries until success", func(t *testing.T) {
		calls := 0
		err := RetryWithBackoff(ctx, func() error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		}, 5, time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("returns last error when exhausted", func(t *testing.T) {
		wantErr := errors.New("permanent")
		calls := 0
		err := RetryWithBackoff(ctx, func() error {
			calls++
			return wantErr
		}, 3, time.Millisecond)
		assert.ErrorIs(t, err, wantErr)
		assert.Equal(t, 3, calls)
	})

	t.Run("rejects non-positive attempts", func(t *testing.T) {
		err := RetryWithBackoff(ctx, func() error { return nil }, 0, time.Millisecond)
		assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
	})

	t.Run("honors context cancellation", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		err := RetryWithBackoff(cancelled, func() error { return errors.New("nope") }, 3, time.Millisecond)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestLoadMockSignals(t *testing.T) {
	signals := LoadMockSignals()
	require.Len(t, signals, 4)

	seen := map[string]bool{}
	for _, signal := range signals {
		require.NoError(t, core.ValidateSignal(signal))
		assert.False(t, seen[signal.Id], "ids are unique")
		seen[signal.Id] = true
		assert.Equal(t, "emerging_technology", signal.Domain)
		assert.NotEmpty(t, signal.Metadata["confidence_hint"])
	}
}
