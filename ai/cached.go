package ai

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/goccy/go-json"
	"github.com/kestrelhq/trendwatch/core"
)

// EmbedCache is an explicit content-addressed cache of embedding vectors,
// keyed by a BLAKE2b hash of the text. It has a defined load/flush lifecycle
// and is passed by reference into the components that need it; there is no
// process-global cache state.
type EmbedCache struct {
	path    string
	entries map[string][]float32
	dirty   bool
	mu      sync.RWMutex
}

// NewEmbedCache creates an empty cache. If path is non-empty the cache can
// be persisted with Load and Flush.
func NewEmbedCache(path string) *EmbedCache {
	return &EmbedCache{
		path:    path,
		entries: make(map[string][]float32),
	}
}

// Load reads previously flushed entries from disk. A missing file is not an
// error; the cache simply starts empty.
func (c *EmbedCache) Load() error {
	if c.path == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	entries := make(map[string][]float32)
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	c.entries = entries
	c.dirty = false
	return nil
}

// Flush writes the cache to disk if it changed since the last Load/Flush.
func (c *EmbedCache) Flush() error {
	if c.path == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.dirty {
		return nil
	}

	data, err := json.Marshal(c.entries)
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return err
	}
	c.dirty = false
	return nil
}

// Get returns the cached vector for the text, if present.
func (c *EmbedCache) Get(text string) ([]float32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[core.HashText(text)]
	return v, ok
}

// Put stores the vector for the text.
func (c *EmbedCache) Put(text string, vector []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[core.HashText(text)] = vector
	c.dirty = true
}

// Len returns the number of cached vectors.
func (c *EmbedCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// CachedEmbedder wraps an Embedder with an EmbedCache so repeated embedding
// of the same text hits the provider only once.
type CachedEmbedder struct {
	inner  Embedder
	cache  *EmbedCache
	logger *slog.Logger
}

var _ Embedder = (*CachedEmbedder)(nil)

// NewCachedEmbedder creates a caching wrapper around the given embedder.
// The cache is owned by the caller; Load/Flush remain the caller's
// responsibility.
func NewCachedEmbedder(inner Embedder, cache *EmbedCache) *CachedEmbedder {
	return &CachedEmbedder{
		inner:  inner,
		cache:  cache,
		logger: slog.Default().With("component", "cached-embedder"),
	}
}

// EmbedText returns the cached vector for text, embedding on a miss.
func (e *CachedEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if v, ok := e.cache.Get(text); ok {
		return v, nil
	}

	v, err := e.inner.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}
	e.cache.Put(text, v)
	return v, nil
}

// EmbedTexts embeds a batch, consulting the cache per text and sending only
// the misses to the underlying provider.
func (e *CachedEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int

	for i, text := range texts {
		if v, ok := e.cache.Get(text); ok {
			results[i] = v
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		return results, nil
	}

	e.logger.Debug("embedding cache misses", "misses", len(missing), "total", len(texts))

	embedded, err := e.inner.EmbedTexts(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(embedded) != len(missing) {
		return nil, fmt.Errorf("embedding result mismatch. expected %d, received %d",
			len(missing), len(embedded))
	}
	for j, v := range embedded {
		results[missingIdx[j]] = v
		e.cache.Put(missing[j], v)
	}
	return results, nil
}

// CachedProvider wraps an AIProvider so its embedder goes through an
// EmbedCache. The cache is loaded at construction and flushed on Close;
// titling passes through untouched.
type CachedProvider struct {
	inner    AIProvider
	embedder *CachedEmbedder
	cache    *EmbedCache
	logger   *slog.Logger
}

var _ AIProvider = (*CachedProvider)(nil)

// NewCachedProvider wraps the provider with a persistent embedding cache at
// the given path. An empty path keeps the cache in memory only.
func NewCachedProvider(inner AIProvider, cachePath string) (*CachedProvider, error) {
	cache := NewEmbedCache(cachePath)
	if err := cache.Load(); err != nil {
		return nil, err
	}
	return &CachedProvider{
		inner:    inner,
		embedder: NewCachedEmbedder(inner.Embedder(), cache),
		cache:    cache,
		logger:   slog.Default().With("component", "cached-provider"),
	}, nil
}

func (p *CachedProvider) Embedder() Embedder {
	return p.embedder
}

func (p *CachedProvider) TitleGenerator() TitleGenerator {
	return p.inner.TitleGenerator()
}

// Close flushes the embedding cache, then closes the wrapped provider.
func (p *CachedProvider) Close() error {
	if err := p.cache.Flush(); err != nil {
		p.logger.Error("failed to flush embedding cache", "err", err)
	}
	return p.inner.Close()
}
