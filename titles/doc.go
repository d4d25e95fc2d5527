// Package titles turns cluster signal texts into short human-readable
// titles. The Generator asks an LLM titler for a name, falls back to
// keyword extraction when the model is unavailable, and caches results in
// a persistent Cache so titles stay stable across runs.
package titles
