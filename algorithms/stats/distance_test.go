package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEuclideanDistance(t *testing.T) {
	assert.Equal(t, 0.0, EuclideanDistance([]float64{1, 2, 3}, []float64{1, 2, 3}))
	assert.InDelta(t, 5.0, EuclideanDistance([]float64{0, 0}, []float64{3, 4}), 1e-12)
	assert.InDelta(t, math.Sqrt(2), EuclideanDistance([]float64{1, 0}, []float64{0, 1}), 1e-12)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float64{1, 2, 3}, []float64{2, 4, 6}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float64{1, 1}, []float64{-1, -1}), 1e-9)
}

func TestCosineSimilarityZeroVector(t *testing.T) {
	// The epsilon in the denominator keeps zero vectors finite.
	s := CosineSimilarity([]float64{0, 0}, []float64{1, 1})
	assert.False(t, math.IsNaN(s))
	assert.Equal(t, 0.0, s)
}
