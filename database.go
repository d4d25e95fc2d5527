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


package trendwatch

import (
	"context"
	"log/slog"
	"sync"

	"github.com/kestrelhq/trendwatch/ai"
	"github.com/kestrelhq/trendwatch/ai/openai"
	"github.com/kestrelhq/trendwatch/core"
	"github.com/kestrelhq/trendwatch/ingestion"
	"github.com/kestrelhq/trendwatch/search"
	"github.com/kestrelhq/trendwatch/storage"
	"github.com/kestrelhq/trendwatch/storage/badger"
	"github.com/kestrelhq/trendwatch/titles"
)

// Database is the root handle over storage, the AI provider and the
// processing components. Evolution passes mutate the shared candidate
// pool, so ProcessSignals runs are serialized by a single-writer lock;
// search and titling are read-only and free to run concurrently.
type Database struct {
	backend       *badger.Backend
	signalRepo    storage.SignalRepository
	candidateRepo storage.CandidateRepository
	provider      ai.AIProvider
	searcher      *search.Searcher
	logger        *slog.Logger

	evolveMu sync.Mutex
	pipeline *ingestion.Pipeline
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig       *ai.Config
	provider       ai.AIProvider
	inMemory       bool
	embedCachePath string
	embedCache     bool
}

// WithAIConfig sets the AI service configuration used to build the default
// OpenAI-compatible provider.
func WithAIConfig(config *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.aiConfig = config
	}
}

// WithProvider injects a pre-built AI provider, bypassing provider
// construction entirely. The Database takes ownership and closes it.
func WithProvider(provider ai.AIProvider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

// WithInMemoryStorage keeps all records in memory; nothing is written to
// the given path.
func WithInMemoryStorage() DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = true
	}
}

// WithEmbedCache routes all embedding calls through a content-addressed
// cache persisted at path (empty path keeps it in memory). The cache is
// flushed when the Database closes.
func WithEmbedCache(path string) DatabaseOption {
	return func(o *databaseOptions) {
		o.embedCache = true
		o.embedCachePath = path
	}
}

func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	// Apply options
	options := &databaseOptions{
		aiConfig: ai.DefaultConfig(), // Default if not provided
	}
	for _, opt := range opts {
		opt(options)
	}
	// Open backend
	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	// Create signal repository
	signalRepo, err := badger.NewSignalRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	// Create candidate repository
	candidateRepo, err := badger.NewCandidateRepository(backend)
	if err != nil {
		signalRepo.Close()
		backend.Close()
		return nil, err
	}

	// Create AI provider with configured settings, unless one was injected
	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			candidateRepo.Close()
			signalRepo.Close()
			backend.Close()
			return nil, err
		}
	}

	if options.embedCache {
		provider, err = ai.NewCachedProvider(provider, options.embedCachePath)
		if err != nil {
			candidateRepo.Close()
			signalRepo.Close()
			backend.Close()
			return nil, err
		}
	}

	searcher, err := search.NewSearcher(provider.Embedder())
	if err != nil {
		provider.Close()
		candidateRepo.Close()
		signalRepo.Close()
		backend.Close()
		return nil, err
	}

	return &Database{
		backend:       backend,
		signalRepo:    signalRepo,
		candidateRepo: candidateRepo,
		provider:      provider,
		searcher:      searcher,
		logger:        slog.Default(),
	}, nil
}

func (db *Database) Close() error {
	db.evolveMu.Lock()
	if db.pipeline != nil {
		db.pipeline.Release()
		db.pipeline = nil
	}
	db.evolveMu.Unlock()

	// Close AI provider first
	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
	}

	// Close repositories
	if err := db.candidateRepo.Close(); err != nil {
		db.logger.Error("error closing candidate repository", "err", err)
		return err
	}
	if err := db.signalRepo.Close(); err != nil {
		db.logger.Error("error closing signal repository", "err", err)
		return err
	}

	// Close backend
	if err := db.backend.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (db *Database) SignalRepository() storage.SignalRepository {
	return db.signalRepo
}

func (db *Database) CandidateRepository() storage.CandidateRepository {
	return db.candidateRepo
}

// NewIngestionPipeline builds a standalone pipeline over this database's
// repositories and provider. Callers using it directly are responsible for
// not running concurrent evolution passes; prefer ProcessSignals.
func (db *Database) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	return ingestion.NewPipeline(db.signalRepo, db.candidateRepo, db.provider, opts...)
}

// ProcessSignals runs one evolution pass over the batch. Passes are
// serialized: a second caller blocks until the running pass finishes, so
// the candidate pool only ever has one writer.
func (db *Database) ProcessSignals(ctx context.Context, signals []*core.Signal) (*ingestion.RunReport, error) {
	db.evolveMu.Lock()
	defer db.evolveMu.Unlock()

	if db.pipeline == nil {
		pipeline, err := ingestion.NewPipeline(db.signalRepo, db.candidateRepo, db.provider)
		if err != nil {
			return nil, err
		}
		db.pipeline = pipeline
	}
	return db.pipeline.ProcessSignals(ctx, signals)
}

func (db *Database) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	return search.NewSearcher(db.provider.Embedder(), opts...)
}

// SearchHybrid runs a hybrid search over the stored candidate pool.
func (db *Database) SearchHybrid(ctx context.Context, query string, minFinalScore float64) ([]*core.ClusterMatch, error) {
	candidates, err := db.candidateRepo.ListCandidates(ctx)
	if err != nil {
		return nil, err
	}
	return db.searcher.SearchHybrid(ctx, query, candidates, minFinalScore)
}

// SearchClusters runs the legacy single-threshold search over the stored
// candidate pool.
func (db *Database) SearchClusters(ctx context.Context, query string, threshold float64) ([]*core.ClusterMatch, error) {
	candidates, err := db.candidateRepo.ListCandidates(ctx)
	if err != nil {
		return nil, err
	}
	return db.searcher.SearchClusters(ctx, query, candidates, threshold)
}

// NewTitleGenerator builds a title generator backed by this database's
// provider. The cache lifecycle (Load/Flush) stays with the caller.
func (db *Database) NewTitleGenerator(cache *titles.Cache, opts ...titles.GeneratorOption) (*titles.Generator, error) {
	return titles.NewGenerator(db.provider.TitleGenerator(), cache, opts...)
}
