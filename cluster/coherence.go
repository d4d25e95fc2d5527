package cluster

import "github.com/kestrelhq/trendwatch/core"

// Coherence estimates cluster tightness as the mean pairwise cosine
// similarity over the member embeddings. A single-member cluster is
// perfectly coherent by definition; an empty cluster scores 0.
func Coherence(embeddings [][]float32) float64 {
	n := len(embeddings)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return 1
	}

	var sum float64
	var pairs int
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sum += core.CosineSimilarity(embeddings[i], embeddings[j])
			pairs++
		}
	}
	return sum / float64(pairs)
}
