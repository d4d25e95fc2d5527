// Copyright 2025 Kestrel Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/kestrelhq/trendwatch/ai"
	"github.com/kestrelhq/trendwatch/cluster"
	"github.com/kestrelhq/trendwatch/core"
	"github.com/kestrelhq/trendwatch/scoring"
	"github.com/kestrelhq/trendwatch/storage"
	"github.com/panjf2000/ants/v2"
)

// Neighbor lookup defaults for signal contextualization.
const (
	DefaultNeighborLimit         = 5
	DefaultMinNeighborSimilarity = 0.65

	defaultMaxAttempts    = 3
	defaultRetryBaseDelay = 500 * time.Millisecond
)

// Pipeline orchestrates one batch pass over incoming signals: embed and
// store them, contextualize each against the historical signal log, build
// proto-clusters, evolve the candidate pool, and score every candidate.
// Neighbor lookups run concurrently on a worker pool; the evolution pass
// itself is strictly sequential.
type Pipeline struct {
	signalRepo    storage.SignalRepository
	candidateRepo storage.CandidateRepository
	embedder      ai.Embedder
	engine        *cluster.Engine
	critic        *scoring.Critic
	controller    *scoring.Controller
	pool          *ants.Pool

	neighborLimit         int
	minNeighborSimilarity float64
	similarityThreshold   float64
	maxAttempts           int
	retryBaseDelay        time.Duration
	progress              *ProgressTracker
	logger                *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent neighbor lookups.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithNeighborLimit caps the number of similar signals attached to each
// incoming signal. Default is DefaultNeighborLimit.
func WithNeighborLimit(limit int) Option {
	return func(p *Pipeline) error {
		if limit < 0 {
			limit = 0
		}
		p.neighborLimit = limit
		return nil
	}
}

// WithMinNeighborSimilarity sets the similarity floor for neighbor lookups.
// Default is DefaultMinNeighborSimilarity.
func WithMinNeighborSimilarity(minSimilarity float64) Option {
	return func(p *Pipeline) error {
		p.minNeighborSimilarity = minSimilarity
		return nil
	}
}

// WithSimilarityThreshold sets the centroid similarity threshold used by
// the evolution pass. Default is cluster.DefaultSimilarityThreshold.
func WithSimilarityThreshold(threshold float64) Option {
	return func(p *Pipeline) error {
		p.similarityThreshold = threshold
		return nil
	}
}

// WithRetryPolicy configures the embedding retry behavior.
func WithRetryPolicy(maxAttempts int, baseDelay time.Duration) Option {
	return func(p *Pipeline) error {
		if maxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		p.maxAttempts = maxAttempts
		p.retryBaseDelay = baseDelay
		return nil
	}
}

// WithProgress attaches a progress tracker for CLI runs.
func WithProgress(tracker *ProgressTracker) Option {
	return func(p *Pipeline) error {
		p.progress = tracker
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	signalRepo storage.SignalRepository,
	candidateRepo storage.CandidateRepository,
	provider ai.AIProvider,
	opts ...Option,
) (*Pipeline, error) {
	if signalRepo == nil {
		return nil, ErrSignalRepositoryRequired
	}
	if candidateRepo == nil {
		return nil, ErrCandidateRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		signalRepo:            signalRepo,
		candidateRepo:         candidateRepo,
		embedder:              provider.Embedder(),
		pool:                  pool,
		neighborLimit:         DefaultNeighborLimit,
		minNeighborSimilarity: DefaultMinNeighborSimilarity,
		similarityThreshold:   cluster.DefaultSimilarityThreshold,
		maxAttempts:           defaultMaxAttempts,
		retryBaseDelay:        defaultRetryBaseDelay,
		logger:                slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	// Build the scoring and evolution components after options so they
	// pick up the final configuration.
	engine, err := cluster.NewEngine(p.embedder,
		cluster.WithThreshold(p.similarityThreshold),
		cluster.WithLogger(p.logger))
	if err != nil {
		p.Release()
		return nil, err
	}
	critic, err := scoring.NewCritic(scoring.WithCriticLogger(p.logger))
	if err != nil {
		p.Release()
		return nil, err
	}
	controller, err := scoring.NewController(scoring.WithControllerLogger(p.logger))
	if err != nil {
		p.Release()
		return nil, err
	}

	p.engine = engine
	p.critic = critic
	p.controller = controller

	return p, nil
}

// RunReport summarizes one batch pass for callers and the CLI.
type RunReport struct {
	SignalsProcessed  int
	ProtoClusters     int
	PoolBefore        int
	PoolAfter         int
	CandidatesCreated int
	ProtosMerged      int
	Promoted          int
	KeptCandidate     int
	Demoted           int
	Elapsed           time.Duration
}

// ProcessSignals runs one full batch pass and returns its report.
//
// The batch is embedded (with retries) and appended to the signal log
// before contextualization, so signals within one batch can become each
// other's neighbors. An evolution failure mid-batch is not fatal to the
// data already merged: the partial pool is still scored and persisted, and
// the error is returned alongside the report.
func (p *Pipeline) ProcessSignals(ctx context.Context, signals []*core.Signal) (*RunReport, error) {
	start := time.Now()
	report := &RunReport{}

	for _, signal := range signals {
		if err := core.ValidateSignal(signal); err != nil {
			return report, err
		}
	}
	if len(signals) == 0 {
		return report, nil
	}

	if p.progress != nil {
		p.progress.Start()
		defer p.progress.Finish()
	}

	if err := p.embedSignals(ctx, signals); err != nil {
		return report, err
	}
	if err := p.signalRepo.AddSignals(ctx, signals...); err != nil {
		return report, err
	}
	report.SignalsProcessed = len(signals)

	protos, err := p.contextualize(ctx, signals)
	if err != nil {
		return report, err
	}
	report.ProtoClusters = len(protos)

	pool, err := p.candidateRepo.ListCandidates(ctx)
	if err != nil {
		return report, err
	}
	report.PoolBefore = len(pool)

	evolved, evolveErr := p.engine.Evolve(ctx, pool, protos)
	report.PoolAfter = len(evolved)
	report.CandidatesCreated = report.PoolAfter - report.PoolBefore
	if evolveErr == nil {
		report.ProtosMerged = report.ProtoClusters - report.CandidatesCreated
	}

	p.score(evolved, report)

	if len(evolved) > 0 {
		if err := p.candidateRepo.UpsertCandidates(ctx, evolved...); err != nil {
			return report, err
		}
	}

	report.Elapsed = time.Since(start)
	if evolveErr != nil {
		p.logger.Error("evolution pass aborted mid-batch, partial pool persisted",
			"merged_before_failure", report.PoolAfter,
			"err", evolveErr)
		return report, evolveErr
	}

	p.logger.Info("batch pass complete",
		"signals", report.SignalsProcessed,
		"protos", report.ProtoClusters,
		"created", report.CandidatesCreated,
		"merged", report.ProtosMerged,
		"promoted", report.Promoted,
		"elapsed", report.Elapsed)

	return report, nil
}

// embedSignals fills in missing signal vectors, retrying transient
// provider failures with exponential backoff.
func (p *Pipeline) embedSignals(ctx context.Context, signals []*core.Signal) error {
	var missing []*core.Signal
	var texts []string
	for _, signal := range signals {
		if len(signal.Vector) == 0 {
			missing = append(missing, signal)
			texts = append(texts, signal.Text)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	var embeddings [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var embedErr error
		embeddings, embedErr = p.embedder.EmbedTexts(ctx, texts)
		return embedErr
	}, p.maxAttempts, p.retryBaseDelay)
	if err != nil {
		return fmt.Errorf("embedding batch of %d signals: %w", len(missing), err)
	}
	if len(embeddings) != len(missing) {
		return fmt.Errorf("embedding result mismatch. expected %d, received %d",
			len(missing), len(embeddings))
	}

	for i, signal := range missing {
		signal.Vector = embeddings[i]
	}
	return nil
}

// contextualize looks up each signal's nearest neighbors concurrently and
// builds one proto-cluster per signal, preserving input order.
func (p *Pipeline) contextualize(ctx context.Context, signals []*core.Signal) ([]*core.ProtoCluster, error) {
	contextualized := make([]cluster.ContextualizedSignal, len(signals))
	errs := make([]error, len(signals))
	var wg sync.WaitGroup

	for i, signal := range signals {
		i, signal := i, signal
		wg.Add(1)
		submitErr := p.pool.Submit(func() {
			defer wg.Done()
			neighbors, err := p.findNeighbors(ctx, signal)
			if err != nil {
				errs[i] = err
				return
			}
			contextualized[i] = cluster.ContextualizedSignal{
				Signal:         signal,
				SimilarSignals: neighbors,
			}
			if p.progress != nil {
				p.progress.Increment(1)
			}
		})
		if submitErr != nil {
			wg.Done()
			return nil, submitErr
		}
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	protos := make([]*core.ProtoCluster, len(contextualized))
	for i, cs := range contextualized {
		protos[i] = cluster.BuildProtoCluster(cs)
	}
	return protos, nil
}

// findNeighbors returns the stored signals most similar to the given one,
// excluding the signal itself.
func (p *Pipeline) findNeighbors(ctx context.Context, signal *core.Signal) ([]*core.Signal, error) {
	if p.neighborLimit == 0 {
		return nil, nil
	}

	// Ask for one extra hit since the signal is already stored and will
	// match itself perfectly.
	matches, err := p.signalRepo.FindSimilar(ctx, signal.Vector, p.minNeighborSimilarity, p.neighborLimit+1)
	if err != nil {
		return nil, err
	}

	neighbors := make([]*core.Signal, 0, len(matches))
	for _, match := range matches {
		if match.Signal.Id == signal.Id {
			continue
		}
		neighbors = append(neighbors, match.Signal)
		if len(neighbors) == p.neighborLimit {
			break
		}
	}
	return neighbors, nil
}

// score evaluates every candidate in the pool and attaches the critic
// report and controller decision, tallying actions into the report.
func (p *Pipeline) score(pool []*core.CandidateCluster, report *RunReport) {
	for _, candidate := range pool {
		criticReport := p.critic.Evaluate(candidate)
		candidate.Coherence = criticReport.Metrics.Coherence
		candidate.CriticReport = criticReport

		decision := p.controller.Decide(criticReport)
		candidate.ControllerDecision = decision

		switch decision.FinalAction {
		case core.ActionPromote:
			report.Promoted++
		case core.ActionKeepCandidate:
			report.KeptCandidate++
		case core.ActionDemoteWait:
			report.Demoted++
		}
	}
}

// Release releases resources including the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
