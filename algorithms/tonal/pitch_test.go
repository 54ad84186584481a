package tonal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRate = 22050

func newTestTracker() *PitchTracker {
	return NewPitchTracker(PitchTrackerParams{
		SampleRate: testRate,
		WindowSize: 2048,
		HopSize:    512,
		MinFreq:    65.41,
		MaxFreq:    2093.0,
	})
}

func sine(freq float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.8 * math.Sin(2*math.Pi*freq*float64(i)/float64(testRate))
	}
	return out
}

func TestTrackPureTone(t *testing.T) {
	tracker := newTestTracker()

	for _, freq := range []float64{110.0, 220.0, 440.0, 880.0} {
		frames := tracker.Track(sine(freq, testRate))
		require.NotEmpty(t, frames)

		voiced := 0
		for _, f := range frames {
			if !f.Voiced {
				continue
			}
			voiced++
			assert.InDelta(t, freq, f.F0, freq*0.02, "freq %.0f", freq)
		}
		// A sustained pure tone should be voiced nearly everywhere.
		assert.Greater(t, voiced, len(frames)*3/4, "freq %.0f", freq)
	}
}

func TestTrackSilenceIsUnvoiced(t *testing.T) {
	tracker := newTestTracker()

	frames := tracker.Track(make([]float64, testRate))
	require.NotEmpty(t, frames)
	for _, f := range frames {
		assert.False(t, f.Voiced)
		assert.Equal(t, 0.0, f.F0)
	}
}

func TestTrackOutOfRangeFrequency(t *testing.T) {
	tracker := newTestTracker()

	// 30 Hz sits below MinFreq; its lag exceeds the admissible range.
	frames := tracker.Track(sine(30, testRate))
	for _, f := range frames {
		assert.False(t, f.Voiced)
	}
}

func TestTrackShortSignal(t *testing.T) {
	tracker := newTestTracker()
	assert.Empty(t, tracker.Track(make([]float64, 100)))
	assert.Empty(t, tracker.Track(nil))
}

func TestNewPitchTrackerDefaults(t *testing.T) {
	tracker := NewPitchTracker(PitchTrackerParams{
		SampleRate: testRate,
		WindowSize: 2048,
		HopSize:    512,
	})
	assert.Equal(t, 0.15, tracker.params.Threshold)
	assert.Equal(t, 65.0, tracker.params.MinFreq)
	assert.Equal(t, float64(testRate)/4.0, tracker.params.MaxFreq)
}
