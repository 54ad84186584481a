package filters

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRate = 22050

func sine(freq float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(testRate))
	}
	return out
}

// rmsOf measures the steady-state level, skipping the settling transient.
func rmsOf(samples []float64) float64 {
	tail := samples[len(samples)/2:]
	sum := 0.0
	for _, s := range tail {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(tail)))
}

func TestNewHighpassFilterValidation(t *testing.T) {
	_, err := NewHighpassFilter(0, 100, 5)
	assert.Error(t, err)

	_, err = NewHighpassFilter(testRate, 0, 5)
	assert.Error(t, err)

	_, err = NewHighpassFilter(testRate, float64(testRate), 5)
	assert.Error(t, err)

	_, err = NewHighpassFilter(testRate, 100, 0)
	assert.Error(t, err)

	f, err := NewHighpassFilter(testRate, 100, 5)
	require.NoError(t, err)
	cutoff, order := f.GetParameters()
	assert.Equal(t, 100.0, cutoff)
	assert.Equal(t, 5, order)
}

func TestHighpassBlocksDC(t *testing.T) {
	f, err := NewHighpassFilter(testRate, 100, 5)
	require.NoError(t, err)

	dc := make([]float64, testRate)
	for i := range dc {
		dc[i] = 1.0
	}

	out := f.ProcessBuffer(dc)
	assert.Less(t, rmsOf(out), 1e-6)
}

func TestHighpassAttenuatesBelowCutoff(t *testing.T) {
	f, err := NewHighpassFilter(testRate, 100, 5)
	require.NoError(t, err)

	// 25 Hz sits two octaves under the cutoff; a 5th-order Butterworth
	// attenuates it by roughly 60 dB.
	out := f.ProcessBuffer(sine(25, testRate))
	assert.Less(t, rmsOf(out), 0.01)
}

func TestHighpassPassesAboveCutoff(t *testing.T) {
	f, err := NewHighpassFilter(testRate, 100, 5)
	require.NoError(t, err)

	out := f.ProcessBuffer(sine(1000, testRate))
	inputRMS := 1.0 / math.Sqrt2
	assert.InDelta(t, inputRMS, rmsOf(out), 0.05)
}

func TestHighpassOddAndEvenOrders(t *testing.T) {
	for _, order := range []int{1, 2, 3, 4, 5, 6} {
		f, err := NewHighpassFilter(testRate, 100, order)
		require.NoError(t, err)

		out := f.ProcessBuffer(sine(2000, testRate))
		assert.InDelta(t, 1.0/math.Sqrt2, rmsOf(out), 0.05, "order %d", order)
	}
}

func TestHighpassReset(t *testing.T) {
	f, err := NewHighpassFilter(testRate, 100, 5)
	require.NoError(t, err)

	signal := sine(500, 4096)
	first := f.ProcessBuffer(signal)
	f.Reset()
	second := f.ProcessBuffer(signal)

	assert.Equal(t, first, second)
}
