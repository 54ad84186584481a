package windowing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHannCoefficients(t *testing.T) {
	h := NewHann(8)
	require.Equal(t, 8, h.Size())

	ones := make([]float64, 8)
	for i := range ones {
		ones[i] = 1.0
	}
	w := h.Apply(ones)

	// Periodic Hann: w[0] = 0 and the midpoint of the period is 1.
	assert.InDelta(t, 0.0, w[0], 1e-12)
	assert.InDelta(t, 1.0, w[4], 1e-12)

	for i, v := range w {
		expected := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/8))
		assert.InDelta(t, expected, v, 1e-12)
	}
}

func TestHannApplyDoesNotMutateInput(t *testing.T) {
	h := NewHann(4)
	in := []float64{1, 1, 1, 1}
	_ = h.Apply(in)
	assert.Equal(t, []float64{1, 1, 1, 1}, in)
}

func TestHannApplyInPlaceSizeMismatch(t *testing.T) {
	h := NewHann(4)
	assert.Error(t, h.ApplyInPlace(make([]float64, 5)))
	assert.NoError(t, h.ApplyInPlace(make([]float64, 4)))
}
