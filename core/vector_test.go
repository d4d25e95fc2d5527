package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	t.Run("identical vectors", func(t *testing.T) {
		v := []float32{0.5, 0.3, 0.2}
		assert.InDelta(t, 1.0, CosineSimilarity(v, v), 1e-9)
	})

	t.Run("orthogonal vectors", func(t *testing.T) {
		a := []float32{1, 0, 0}
		b := []float32{0, 1, 0}
		assert.InDelta(t, 0.0, CosineSimilarity(a, b), 1e-9)
	})

	t.Run("opposite vectors", func(t *testing.T) {
		a := []float32{1, 2, 3}
		b := []float32{-1, -2, -3}
		assert.InDelta(t, -1.0, CosineSimilarity(a, b), 1e-9)
	})

	t.Run("zero norm returns zero", func(t *testing.T) {
		a := []float32{0, 0, 0}
		b := []float32{1, 2, 3}
		assert.Equal(t, 0.0, CosineSimilarity(a, b))
		assert.Equal(t, 0.0, CosineSimilarity(b, a))
	})

	t.Run("scale invariant", func(t *testing.T) {
		a := []float32{1, 2, 3}
		b := []float32{2, 4, 6}
		assert.InDelta(t, 1.0, CosineSimilarity(a, b), 1e-9)
	})
}

func TestCentroid(t *testing.T) {
	t.Run("single vector", func(t *testing.T) {
		centroid, err := Centroid([][]float32{{1, 2, 3}})
		require.NoError(t, err)
		assert.Equal(t, []float32{1, 2, 3}, centroid)
	})

	t.Run("mean of two vectors", func(t *testing.T) {
		centroid, err := Centroid([][]float32{
			{0, 0, 0},
			{2, 4, 6},
		})
		require.NoError(t, err)
		assert.InDeltaSlice(t, []float32{1, 2, 3}, centroid, 1e-6)
	})

	t.Run("empty list", func(t *testing.T) {
		_, err := Centroid(nil)
		assert.ErrorIs(t, err, ErrNoVectors)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		_, err := Centroid([][]float32{
			{1, 2, 3},
			{1, 2},
		})
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})
}

func TestNormalizeVector(t *testing.T) {
	t.Run("unit length result", func(t *testing.T) {
		v := NormalizeVector([]float32{3, 4})
		assert.InDelta(t, 0.6, float64(v[0]), 1e-6)
		assert.InDelta(t, 0.8, float64(v[1]), 1e-6)
	})

	t.Run("zero vector stays zero", func(t *testing.T) {
		v := NormalizeVector([]float32{0, 0, 0})
		assert.Equal(t, []float32{0, 0, 0}, v)
	})

	t.Run("empty vector", func(t *testing.T) {
		assert.Empty(t, NormalizeVector(nil))
	})
}
