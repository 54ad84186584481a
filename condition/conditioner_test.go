package condition

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRate = 22050

func tone(freq, amplitude float64, n int) []float64 {
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(testRate))
	}
	return samples
}

func peak(samples []float64) float64 {
	p := 0.0
	for _, s := range samples {
		if abs := math.Abs(s); abs > p {
			p = abs
		}
	}
	return p
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 22050, cfg.TargetSampleRate)
	assert.Equal(t, 20.0, cfg.SilenceThresholdDB)
	assert.Equal(t, 100.0, cfg.HighPassCutoffHz)
	assert.Equal(t, 5, cfg.HighPassOrder)
}

func TestNewConditionerFillsDefaults(t *testing.T) {
	c := NewConditioner(Config{TargetSampleRate: 16000})
	cfg := c.Config()
	assert.Equal(t, 16000, cfg.TargetSampleRate)
	assert.Equal(t, DefaultConfig().HighPassCutoffHz, cfg.HighPassCutoffHz)
	assert.Equal(t, DefaultConfig().TrimFrameSize, cfg.TrimFrameSize)
}

func TestConditionEmptyInput(t *testing.T) {
	c := NewConditioner(DefaultConfig())

	out, rate := c.Condition(nil, 44100)
	assert.Empty(t, out)
	assert.Equal(t, 44100, rate)

	out, rate = c.Condition([]float64{}, 0)
	assert.Empty(t, out)
	assert.Equal(t, 0, rate)
}

func TestConditionAllSilence(t *testing.T) {
	c := NewConditioner(DefaultConfig())

	out, rate := c.Condition(make([]float64, testRate), testRate)
	assert.Empty(t, out)
	assert.Equal(t, testRate, rate)
}

func TestConditionNormalizesPeak(t *testing.T) {
	c := NewConditioner(DefaultConfig())

	// A quiet 440 Hz tone well above the high-pass cutoff: the peak
	// after conditioning should sit near full scale.
	out, rate := c.Condition(tone(440, 0.05, testRate), testRate)
	require.NotEmpty(t, out)
	assert.Equal(t, testRate, rate)
	assert.InDelta(t, 1.0, peak(out), 0.15)
}

func TestConditionTrimsSilencePadding(t *testing.T) {
	c := NewConditioner(DefaultConfig())

	padding := make([]float64, testRate/2)
	voice := tone(440, 0.8, testRate)
	padded := append(append(append([]float64{}, padding...), voice...), padding...)

	out, _ := c.Condition(padded, testRate)
	require.NotEmpty(t, out)

	// Both half-second pads should be gone, give or take frame bounds.
	assert.Less(t, len(out), len(voice)+2*c.Config().TrimFrameSize)
	assert.Greater(t, len(out), len(voice)/2)
}

func TestConditionRemovesDCOffset(t *testing.T) {
	c := NewConditioner(DefaultConfig())

	signal := tone(440, 0.5, testRate)
	for i := range signal {
		signal[i] += 0.3
	}

	out, _ := c.Condition(signal, testRate)
	require.NotEmpty(t, out)

	// The high-pass stage strips the DC offset; skip the filter's
	// settling transient before measuring.
	mean := 0.0
	tail := out[len(out)/2:]
	for _, s := range tail {
		mean += s
	}
	mean /= float64(len(tail))
	assert.InDelta(t, 0.0, mean, 0.01)
}

func TestConditionResamples(t *testing.T) {
	c := NewConditioner(DefaultConfig())

	source := 44100
	n := source // one second
	signal := make([]float64, n)
	for i := range signal {
		signal[i] = 0.8 * math.Sin(2*math.Pi*440*float64(i)/float64(source))
	}

	out, rate := c.Condition(signal, source)
	require.NotEmpty(t, out)
	assert.Equal(t, testRate, rate)

	// One second in, at most one second out at the target rate; silence
	// trimming may shave the edges.
	assert.LessOrEqual(t, len(out), testRate)
	assert.Greater(t, len(out), testRate/2)
}
