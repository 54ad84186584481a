package temporal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeRMSConstantSignal(t *testing.T) {
	e := NewEnergy(256, 128)

	signal := make([]float64, 1024)
	for i := range signal {
		signal[i] = 0.5
	}

	rms := e.ComputeRMS(signal)
	require.Len(t, rms, (1024-256)/128+1)
	for _, r := range rms {
		assert.InDelta(t, 0.5, r, 1e-12)
	}
}

func TestComputeRMSSineSignal(t *testing.T) {
	e := NewEnergy(1024, 512)

	signal := make([]float64, 4096)
	for i := range signal {
		signal[i] = math.Sin(2 * math.Pi * 64 * float64(i) / 1024)
	}

	for _, r := range e.ComputeRMS(signal) {
		assert.InDelta(t, 1.0/math.Sqrt2, r, 1e-3)
	}
}

func TestComputeRMSShortSignal(t *testing.T) {
	e := NewEnergy(256, 128)
	assert.Empty(t, e.ComputeRMS(make([]float64, 100)))
	assert.Empty(t, e.ComputeRMS(nil))
}

func TestComputeRMSDropsPartialFrame(t *testing.T) {
	e := NewEnergy(100, 50)
	// 149 samples hold exactly one complete frame.
	rms := e.ComputeRMS(make([]float64, 149))
	assert.Len(t, rms, 1)
}

func TestComputeLogRMS(t *testing.T) {
	e := NewEnergy(100, 100)

	signal := make([]float64, 200)
	for i := 0; i < 100; i++ {
		signal[i] = 1.0
	}
	// Second frame is silence and must hit the floor, not -Inf.

	logRMS := e.ComputeLogRMS(signal, 1e-5)
	require.Len(t, logRMS, 2)
	assert.InDelta(t, 0.0, logRMS[0], 1e-9)
	assert.InDelta(t, -100.0, logRMS[1], 1e-9)
}
