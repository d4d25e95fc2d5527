package ai_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelhq/trendwatch/ai"
	"github.com/kestrelhq/trendwatch/ai/mock"
)

func TestEmbedCacheRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embed_cache.json")

	cache := ai.NewEmbedCache(path)
	require.NoError(t, cache.Load())
	assert.Equal(t, 0, cache.Len())

	cache.Put("quantum networking", []float32{0.1, 0.2, 0.3})
	require.NoError(t, cache.Flush())

	reloaded := ai.NewEmbedCache(path)
	require.NoError(t, reloaded.Load())
	assert.Equal(t, 1, reloaded.Len())

	v, ok := reloaded.Get("quantum networking")
	require.True(t, ok)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, v)

	_, ok = reloaded.Get("never embedded")
	assert.False(t, ok)
}

func TestCachedEmbedderHitsProviderOncePerText(t *testing.T) {
	calls := 0
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		calls++
		return []float32{1, 0, 0}, nil
	}

	cached := ai.NewCachedEmbedder(embedder, ai.NewEmbedCache(""))

	ctx := context.Background()
	first, err := cached.EmbedText(ctx, "same text")
	require.NoError(t, err)
	second, err := cached.EmbedText(ctx, "same text")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestCachedEmbedderBatchesOnlyMisses(t *testing.T) {
	var batches [][]string
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		batches = append(batches, texts)
		vectors := make([][]float32, len(texts))
		for i := range texts {
			vectors[i] = []float32{float32(len(texts[i])), 0, 0}
		}
		return vectors, nil
	}

	cache := ai.NewEmbedCache("")
	cache.Put("cached", []float32{9, 9, 9})
	cached := ai.NewCachedEmbedder(embedder, cache)

	vectors, err := cached.EmbedTexts(context.Background(), []string{"cached", "miss one", "miss two"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Equal(t, []float32{9, 9, 9}, vectors[0])

	require.Len(t, batches, 1)
	assert.Equal(t, []string{"miss one", "miss two"}, batches[0])

	// A fully cached batch never reaches the provider.
	_, err = cached.EmbedTexts(context.Background(), []string{"miss one", "miss two"})
	require.NoError(t, err)
	assert.Len(t, batches, 1)
}

func TestCachedEmbedderRejectsBatchSizeMismatch(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		// One vector short of the request.
		return [][]float32{{1, 0, 0}}, nil
	}

	cached := ai.NewCachedEmbedder(embedder, ai.NewEmbedCache(""))
	_, err := cached.EmbedTexts(context.Background(), []string{"one", "two"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mismatch")

	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}, nil
	}
	_, err = cached.EmbedTexts(context.Background(), []string{"one", "two"})
	require.Error(t, err, "extra vectors are rejected, not silently dropped")
}

func TestCachedEmbedderPropagatesErrors(t *testing.T) {
	embedErr := errors.New("embedding service down")
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, embedErr
	}

	cached := ai.NewCachedEmbedder(embedder, ai.NewEmbedCache(""))
	_, err := cached.EmbedText(context.Background(), "text")
	assert.ErrorIs(t, err, embedErr)
}

func TestCachedProviderFlushesOnClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embed_cache.json")

	provider, err := ai.NewCachedProvider(mock.NewMockProvider(), path)
	require.NoError(t, err)

	_, err = provider.Embedder().EmbedText(context.Background(), "fusion reactors")
	require.NoError(t, err)
	require.NoError(t, provider.Close())

	reloaded := ai.NewEmbedCache(path)
	require.NoError(t, reloaded.Load())
	assert.Equal(t, 1, reloaded.Len())

	assert.NotNil(t, provider.TitleGenerator())
}
