package trendwatch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelhq/trendwatch/ai/mock"
	"github.com/kestrelhq/trendwatch/core"
	"github.com/kestrelhq/trendwatch/titles"
)

func newMockDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase("", WithInMemoryStorage(), WithProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewDatabase(t *testing.T) {
	t.Run("create new database", func(t *testing.T) {
		tmpDir := filepath.Join(t.TempDir(), "test_db")
		db, err := NewDatabase(tmpDir, WithProvider(mock.NewMockProvider()))
		require.NoError(t, err)
		require.NotNil(t, db)
		defer db.Close()

		// Verify components are initialized
		assert.NotNil(t, db.SignalRepository())
		assert.NotNil(t, db.CandidateRepository())
		assert.NotNil(t, db.backend)
		assert.NotNil(t, db.logger)
	})

	t.Run("error with invalid path", func(t *testing.T) {
		// Try to create a database at a file path instead of directory
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		err := os.WriteFile(tmpFile, []byte("test"), 0644)
		require.NoError(t, err)

		db, err := NewDatabase(tmpFile, WithProvider(mock.NewMockProvider()))
		assert.Error(t, err)
		assert.Nil(t, db)
	})
}

func TestDatabase_Close(t *testing.T) {
	db, err := NewDatabase(t.TempDir(), WithProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	require.NotNil(t, db)

	err = db.Close()
	assert.NoError(t, err)
}

func TestDatabase_FactoryMethods(t *testing.T) {
	db := newMockDatabase(t)

	t.Run("can create ingestion pipeline", func(t *testing.T) {
		pipeline, err := db.NewIngestionPipeline()
		require.NoError(t, err)
		require.NotNil(t, pipeline)
		pipeline.Release()
	})

	t.Run("can create searcher", func(t *testing.T) {
		searcher, err := db.NewSearcher()
		require.NoError(t, err)
		require.NotNil(t, searcher)
	})

	t.Run("can create title generator", func(t *testing.T) {
		generator, err := db.NewTitleGenerator(titles.NewCache(""))
		require.NoError(t, err)
		require.NotNil(t, generator)
	})
}

func TestDatabase_ProcessSignals(t *testing.T) {
	db := newMockDatabase(t)

	signals := []*core.Signal{
		{
			Id:        "sig-db-1",
			Text:      "quantum networking trials expand across europe",
			Timestamp: time.Now().UTC().Add(-time.Hour),
			Source:    "research_blog",
			Domain:    "emerging_technology",
			Subdomain: "quantum",
		},
	}

	report, err := db.ProcessSignals(context.Background(), signals)
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, 1, report.SignalsProcessed)
	assert.Equal(t, 1, report.PoolAfter)

	stored, err := db.SignalRepository().GetSignal(context.Background(), "sig-db-1")
	require.NoError(t, err)
	assert.NotEmpty(t, stored.Vector)

	// A second pass over the same pool reuses the serialized pipeline.
	report, err = db.ProcessSignals(context.Background(), signals)
	require.NoError(t, err)
	assert.Equal(t, 1, report.PoolBefore)
}

func TestDatabase_SearchOverStoredPool(t *testing.T) {
	db := newMockDatabase(t)

	signals := []*core.Signal{
		{
			Id:        "sig-search-1",
			Text:      "fusion reactor pilot plants attract funding",
			Timestamp: time.Now().UTC().Add(-time.Hour),
			Source:    "tech_news",
			Domain:    "emerging_technology",
			Subdomain: "energy",
		},
	}
	_, err := db.ProcessSignals(context.Background(), signals)
	require.NoError(t, err)

	// The mock embedder is deterministic, so the stored centroid and the
	// query embedding of the same text match exactly.
	matches, err := db.SearchHybrid(context.Background(), "fusion reactor pilot plants attract funding", 0)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.InDelta(t, 1.0, matches[0].SemanticScore, 1e-6)

	matches, err = db.SearchClusters(context.Background(), "fusion reactor pilot plants attract funding", 0)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, matches[0].SemanticScore, matches[0].SimilarityScore)
}
