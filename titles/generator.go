package titles

import (
	"context"
	"log/slog"
	"strings"

	"github.com/kestrelhq/trendwatch/ai"
)

const (
	// sampleSignals limits how many signal texts are sent to the model.
	sampleSignals = 5
	// sampleRunes truncates each sampled text before it reaches the model.
	sampleRunes = 150
	// maxTitleWords is the hard cap; longer model output gets truncated.
	maxTitleWords = 12
	// truncatedTitleWords is the length a too-long title is cut down to.
	truncatedTitleWords = 10
)

// Generator produces cluster titles, combining an LLM titler with a
// persistent cache and a deterministic fallback. A model failure never
// fails the caller: the fallback title is returned and cached instead.
type Generator struct {
	titler ai.TitleGenerator
	cache  *Cache
	logger *slog.Logger
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator) error

// WithGeneratorLogger sets the logger used by the generator.
func WithGeneratorLogger(logger *slog.Logger) GeneratorOption {
	return func(g *Generator) error {
		if logger == nil {
			return ErrLoggerRequired
		}
		g.logger = logger
		return nil
	}
}

// NewGenerator creates a title generator. The titler may be nil, in which
// case every title comes from the fallback. The cache is required; pass
// NewCache("") for a purely in-memory one.
func NewGenerator(titler ai.TitleGenerator, cache *Cache, options ...GeneratorOption) (*Generator, error) {
	if cache == nil {
		return nil, ErrCacheRequired
	}

	g := &Generator{
		titler: titler,
		cache:  cache,
		logger: slog.Default().With("component", "title-generator"),
	}

	for _, option := range options {
		if err := option(g); err != nil {
			return nil, err
		}
	}

	return g, nil
}

// Title returns a short human-readable title for a cluster. Cached titles
// are returned as-is; otherwise the model is asked with a truncated sample
// of the texts, and on any model failure the deterministic fallback is
// used. Either way the result is cached under the cluster's key, so a
// flaky model does not produce a different title on every call.
func (g *Generator) Title(ctx context.Context, clusterId string, texts []string) string {
	key := CacheKey(clusterId, texts)
	if title, ok := g.cache.Get(key); ok {
		return title
	}

	title := g.generate(ctx, texts)
	g.cache.Put(key, title)
	return title
}

func (g *Generator) generate(ctx context.Context, texts []string) string {
	if g.titler == nil {
		return FallbackTitle(texts)
	}

	sample := make([]string, 0, sampleSignals)
	for i, text := range texts {
		if i >= sampleSignals {
			break
		}
		sample = append(sample, truncateRunes(text, sampleRunes))
	}

	title, err := g.titler.GenerateTitle(ctx, sample)
	if err != nil {
		g.logger.Warn("title generation failed, using fallback", "err", err)
		return FallbackTitle(texts)
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return FallbackTitle(texts)
	}
	return clampTitle(title)
}

// clampTitle enforces the word limit on model output.
func clampTitle(title string) string {
	words := strings.Fields(title)
	if len(words) <= maxTitleWords {
		return title
	}
	return strings.Join(words[:truncatedTitleWords], " ") + "..."
}

func truncateRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
