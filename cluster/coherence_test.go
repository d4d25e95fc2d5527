package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoherence(t *testing.T) {
	t.Run("empty cluster scores zero", func(t *testing.T) {
		assert.Equal(t, 0.0, Coherence(nil))
	})

	t.Run("single member is perfectly coherent", func(t *testing.T) {
		assert.Equal(t, 1.0, Coherence([][]float32{{1, 0, 0}}))
	})

	t.Run("identical vectors", func(t *testing.T) {
		embeddings := [][]float32{
			{0.5, 0.5, 0},
			{0.5, 0.5, 0},
			{0.5, 0.5, 0},
		}
		assert.InDelta(t, 1.0, Coherence(embeddings), 1e-9)
	})

	t.Run("orthogonal vectors", func(t *testing.T) {
		embeddings := [][]float32{
			{1, 0, 0},
			{0, 1, 0},
			{0, 0, 1},
		}
		assert.InDelta(t, 0.0, Coherence(embeddings), 1e-9)
	})

	t.Run("mean over all pairs", func(t *testing.T) {
		// Pairs: (a,b)=1, (a,c)=0, (b,c)=0 -> mean 1/3.
		embeddings := [][]float32{
			{1, 0, 0},
			{1, 0, 0},
			{0, 1, 0},
		}
		assert.InDelta(t, 1.0/3.0, Coherence(embeddings), 1e-9)
	})
}
