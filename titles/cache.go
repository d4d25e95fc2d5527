package titles

import (
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/kestrelhq/trendwatch/core"
)

// DefaultCacheFile is the conventional on-disk location for the title cache.
const DefaultCacheFile = "cluster_title_cache.json"

// contentKeySample is how many texts contribute to a content-derived cache
// key. A small sorted sample is more stable across re-clustering than the
// full membership.
const contentKeySample = 3

// Cache is a persistent map from cluster keys to generated titles. Like
// ai.EmbedCache it has an explicit Load/Flush lifecycle owned by the caller;
// there is no process-global cache state.
type Cache struct {
	path    string
	entries map[string]string
	dirty   bool
	mu      sync.RWMutex
}

// NewCache creates an empty cache. If path is non-empty the cache can be
// persisted with Load and Flush.
func NewCache(path string) *Cache {
	return &Cache{
		path:    path,
		entries: make(map[string]string),
	}
}

// Load reads previously flushed titles from disk. A missing file is not an
// error; the cache simply starts empty.
func (c *Cache) Load() error {
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

	entries := make(map[string]string)
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	c.entries = entries
	c.dirty = false
	return nil
}

// Flush writes the cache to disk if it changed since the last Load/Flush.
func (c *Cache) Flush() error {
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

// Get returns the cached title for the key, if present.
func (c *Cache) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	title, ok := c.entries[key]
	return title, ok
}

// Put stores a title under the key.
func (c *Cache) Put(key, title string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = title
	c.dirty = true
}

// Len returns the number of cached titles.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// CacheKey derives the cache key for a cluster. Clusters with a stable id
// are keyed by it directly; anonymous signal lists fall back to a content
// hash of a small sorted sample so the key survives reordering.
func CacheKey(clusterId string, texts []string) string {
	if clusterId != "" {
		return "cluster_" + clusterId
	}
	sample := make([]string, 0, contentKeySample)
	for i, text := range texts {
		if i >= contentKeySample {
			break
		}
		sample = append(sample, text)
	}
	sort.Strings(sample)
	return core.HashText(strings.Join(sample, "|"))
}
