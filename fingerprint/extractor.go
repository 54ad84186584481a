// Package fingerprint converts a conditioned waveform into a
// fixed-dimension embedding: per-channel statistics of 40 mel cepstral
// coefficients, RMS energy, and YIN fundamental frequency, all computed
// over one shared framing grid.
package fingerprint

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/voxkit/phraseprint/algorithms/spectral"
	"github.com/voxkit/phraseprint/algorithms/temporal"
	"github.com/voxkit/phraseprint/algorithms/tonal"
	"github.com/voxkit/phraseprint/algorithms/windowing"
	"github.com/voxkit/phraseprint/logging"
)

// ErrEmptyWaveform is returned when the input waveform is empty. It
// marks audio that failed conditioning; batch callers skip the file
// and continue.
var ErrEmptyWaveform = errors.New("fingerprint: empty waveform")

// Embedding is a fixed-dimension numeric summary of one utterance.
// Concatenation order is fixed: (mean, std) per cepstral channel in
// channel order, then energy (mean, std), then pitch (mean, std).
type Embedding []float64

// Extractor computes embeddings under one fixed configuration. It is
// deterministic: identical samples, rate, and config produce identical
// embeddings.
type Extractor struct {
	config Config

	stft    *spectral.STFT
	mfcc    *spectral.MFCC
	energy  *temporal.Energy
	tracker *tonal.PitchTracker
	window  *windowing.Hann

	logger logging.Logger
}

// NewExtractor creates an extractor, filling in defaults for any
// zero-valued config fields
func NewExtractor(config Config) *Extractor {
	config = config.WithDefaults()

	return &Extractor{
		config: config,
		stft:   spectral.NewSTFT(),
		mfcc: spectral.NewMFCCWithParams(config.SampleRate, spectral.MFCCParams{
			NumCoefficients: config.NumCoefficients,
			NumMelFilters:   config.NumMelFilters,
		}),
		energy: temporal.NewEnergy(config.WindowSize, config.HopSize),
		tracker: tonal.NewPitchTracker(tonal.PitchTrackerParams{
			SampleRate: config.SampleRate,
			WindowSize: config.WindowSize,
			HopSize:    config.HopSize,
			MinFreq:    config.MinPitchHz,
			MaxFreq:    config.MaxPitchHz,
		}),
		window: windowing.NewHann(config.WindowSize),
		logger: logging.WithFields(logging.Fields{"component": "extractor"}),
	}
}

// Config returns the active extraction parameters
func (e *Extractor) Config() Config {
	return e.config
}

// Extract computes the embedding of a conditioned waveform. The sample
// rate must match the configured rate; embeddings extracted at other
// rates would not be comparable.
//
// Returns ErrEmptyWaveform only for an empty waveform. Input shorter
// than one analysis window is zero-padded to a full window, so every
// non-empty waveform yields a D-dimensional embedding.
func (e *Extractor) Extract(samples []float64, sampleRate int) (Embedding, error) {
	if len(samples) == 0 {
		return nil, ErrEmptyWaveform
	}

	if len(samples) < e.config.WindowSize {
		padded := make([]float64, e.config.WindowSize)
		copy(padded, samples)
		samples = padded
	}

	if sampleRate != e.config.SampleRate {
		return nil, fmt.Errorf("fingerprint: sample rate %d does not match configured rate %d", sampleRate, e.config.SampleRate)
	}

	spectrogram, err := e.stft.Compute(samples, e.config.WindowSize, e.config.HopSize, sampleRate, e.window)
	if err != nil {
		return nil, fmt.Errorf("fingerprint: stft: %w", err)
	}

	mfccFrames, err := e.mfcc.ComputeFrames(spectrogram.Magnitude)
	if err != nil {
		return nil, fmt.Errorf("fingerprint: mfcc: %w", err)
	}

	rms := e.energy.ComputeRMS(samples)
	pitch := e.tracker.Track(samples)

	embedding := make(Embedding, 0, e.config.Dimension())

	// Cepstral (mean, std) pairs in channel order
	channel := make([]float64, len(mfccFrames))
	for c := 0; c < e.config.NumCoefficients; c++ {
		for t, frame := range mfccFrames {
			channel[t] = frame[c]
		}
		embedding = append(embedding, stat.Mean(channel, nil), stat.PopStdDev(channel, nil))
	}

	// Energy (mean, std)
	embedding = append(embedding, stat.Mean(rms, nil), stat.PopStdDev(rms, nil))

	// Pitch (mean, std) over voiced frames only
	voiced := make([]float64, 0, len(pitch))
	for _, frame := range pitch {
		if frame.Voiced {
			voiced = append(voiced, frame.F0)
		}
	}

	if len(voiced) > 0 {
		embedding = append(embedding, stat.Mean(voiced, nil), stat.PopStdDev(voiced, nil))
	} else {
		embedding = append(embedding, 0.0, 0.0)
	}

	e.logger.Debug("extracted embedding", logging.Fields{
		"frames":        len(mfccFrames),
		"voiced_frames": len(voiced),
		"dimension":     len(embedding),
	})

	return embedding, nil
}
