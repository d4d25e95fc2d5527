package cluster

import "errors"

var (
	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrInvalidThreshold indicates a similarity threshold outside (0, 1].
	ErrInvalidThreshold = errors.New("invalid similarity threshold")

	// ErrEmbeddingFailed indicates the embedding provider could not produce
	// a vector. The evolution pass aborts for the remainder of the batch;
	// proto-clusters merged before the failure stay merged.
	ErrEmbeddingFailed = errors.New("embedding failed")
)
