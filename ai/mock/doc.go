// Package mock provides deterministic test doubles for the ai package
// interfaces. The mock embedder derives vectors from an FNV hash of the
// input text, so identical text always embeds identically and tests need no
// network access.
package mock
