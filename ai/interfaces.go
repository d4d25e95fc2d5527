package ai

import "context"

// Embedder generates vector embeddings from text for semantic clustering
// and search. Implementations must be thread-safe for concurrent use and
// deterministic enough that repeated calls on identical text produce vectors
// with cosine similarity of approximately 1.0.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a
	// batch, in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// TitleGenerator produces a short human-readable title summarizing a set of
// signal texts belonging to one cluster.
// Implementations must be thread-safe for concurrent use.
type TitleGenerator interface {
	// GenerateTitle summarizes the given signal texts into a short title.
	// Returns an error if the generation fails; callers are expected to
	// fall back to a deterministic title in that case.
	GenerateTitle(ctx context.Context, texts []string) (string, error)
}

// AIProvider aggregates AI services for convenient initialization and
// lifecycle management. A provider creates and manages Embedder and
// TitleGenerator instances, ensuring they share configuration.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// TitleGenerator returns the cluster titling service.
	// The returned TitleGenerator is safe for concurrent use.
	TitleGenerator() TitleGenerator

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
