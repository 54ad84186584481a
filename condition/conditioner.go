// Package condition turns a raw decoded waveform into the normalized,
// trimmed, denoised form that feature extraction expects. The transform
// chain is purely in-memory and deterministic for a fixed configuration.
package condition

import (
	"math"

	resampling "github.com/tphakala/go-audio-resampling"
	"gonum.org/v1/gonum/floats"

	"github.com/voxkit/phraseprint/algorithms/filters"
	"github.com/voxkit/phraseprint/algorithms/temporal"
	"github.com/voxkit/phraseprint/logging"
)

// Config holds the conditioning parameters. These are fixed per
// deployment: changing them invalidates comparability with embeddings
// extracted from previously conditioned audio.
type Config struct {
	TargetSampleRate   int     `json:"target_sample_rate" yaml:"target_sample_rate"`
	SilenceThresholdDB float64 `json:"silence_threshold_db" yaml:"silence_threshold_db"` // Trim frames this far below peak energy
	HighPassCutoffHz   float64 `json:"high_pass_cutoff_hz" yaml:"high_pass_cutoff_hz"`
	HighPassOrder      int     `json:"high_pass_order" yaml:"high_pass_order"`
	TrimFrameSize      int     `json:"trim_frame_size" yaml:"trim_frame_size"`
	TrimHopSize        int     `json:"trim_hop_size" yaml:"trim_hop_size"`
}

// DefaultConfig returns the conditioning defaults
func DefaultConfig() Config {
	return Config{
		TargetSampleRate:   22050,
		SilenceThresholdDB: 20.0,
		HighPassCutoffHz:   100.0,
		HighPassOrder:      5,
		TrimFrameSize:      2048,
		TrimHopSize:        512,
	}
}

// Conditioner applies the resample -> normalize -> trim -> high-pass
// chain, in that order
type Conditioner struct {
	config Config
	logger logging.Logger
}

// NewConditioner creates a conditioner, filling in defaults for any
// zero-valued config fields
func NewConditioner(config Config) *Conditioner {
	defaults := DefaultConfig()
	if config.TargetSampleRate <= 0 {
		config.TargetSampleRate = defaults.TargetSampleRate
	}
	if config.SilenceThresholdDB <= 0 {
		config.SilenceThresholdDB = defaults.SilenceThresholdDB
	}
	if config.HighPassCutoffHz <= 0 {
		config.HighPassCutoffHz = defaults.HighPassCutoffHz
	}
	if config.HighPassOrder <= 0 {
		config.HighPassOrder = defaults.HighPassOrder
	}
	if config.TrimFrameSize <= 0 {
		config.TrimFrameSize = defaults.TrimFrameSize
	}
	if config.TrimHopSize <= 0 {
		config.TrimHopSize = defaults.TrimHopSize
	}

	return &Conditioner{
		config: config,
		logger: logging.WithFields(logging.Fields{"component": "conditioner"}),
	}
}

// Config returns the active conditioning parameters
func (c *Conditioner) Config() Config {
	return c.config
}

// Condition runs the full transform chain over a mono waveform and
// returns the conditioned samples at the target rate. An empty input
// yields an empty output with the source rate unchanged, which signals
// the caller that feature extraction must not proceed.
func (c *Conditioner) Condition(samples []float64, sourceRate int) ([]float64, int) {
	if len(samples) == 0 || sourceRate <= 0 {
		return []float64{}, sourceRate
	}

	rate := sourceRate
	out := samples

	if sourceRate != c.config.TargetSampleRate {
		resampled, err := c.resample(out, sourceRate, c.config.TargetSampleRate)
		if err != nil {
			c.logger.Error(err, "resampling failed", logging.Fields{
				"source_rate": sourceRate,
				"target_rate": c.config.TargetSampleRate,
			})
			return []float64{}, sourceRate
		}
		out = resampled
		rate = c.config.TargetSampleRate
	}

	out = normalizePeak(out)
	out = c.trimSilence(out)

	if len(out) == 0 {
		return []float64{}, rate
	}

	filter, err := filters.NewHighpassFilter(rate, c.config.HighPassCutoffHz, c.config.HighPassOrder)
	if err != nil {
		c.logger.Error(err, "high-pass filter construction failed", logging.Fields{
			"cutoff_hz": c.config.HighPassCutoffHz,
			"order":     c.config.HighPassOrder,
		})
		return []float64{}, rate
	}

	return filter.ProcessBuffer(out), rate
}

// resample converts the waveform between sample rates using the pure-Go
// soxr-style resampler. The resampler is streaming, so zero blocks are
// fed after the signal until the expected output length is reached.
func (c *Conditioner) resample(samples []float64, sourceRate, targetRate int) ([]float64, error) {
	rs, err := resampling.New(&resampling.Config{
		InputRate:  float64(sourceRate),
		OutputRate: float64(targetRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, err
	}

	expected := int(float64(len(samples)) * float64(targetRate) / float64(sourceRate))

	out, err := rs.Process(samples)
	if err != nil {
		return nil, err
	}

	// Drain buffered tail samples
	flush := make([]float64, 256)
	for attempts := 0; len(out) < expected && attempts < 64; attempts++ {
		tail, err := rs.Process(flush)
		if err != nil {
			return nil, err
		}
		out = append(out, tail...)
	}

	if len(out) > expected {
		out = out[:expected]
	}

	return out, nil
}

// normalizePeak scales the waveform so the peak absolute sample is 1.0
func normalizePeak(samples []float64) []float64 {
	peak := 0.0
	for _, s := range samples {
		if abs := math.Abs(s); abs > peak {
			peak = abs
		}
	}

	out := make([]float64, len(samples))
	copy(out, samples)

	if peak > 0 {
		floats.Scale(1.0/peak, out)
	}

	return out
}

// trimSilence removes leading and trailing frames whose RMS energy sits
// more than SilenceThresholdDB below the loudest frame
func (c *Conditioner) trimSilence(samples []float64) []float64 {
	frameSize := c.config.TrimFrameSize
	hopSize := c.config.TrimHopSize

	if len(samples) < frameSize {
		return samples
	}

	energy := temporal.NewEnergy(frameSize, hopSize)
	rms := energy.ComputeRMS(samples)
	if len(rms) == 0 {
		return samples
	}

	maxRMS := floats.Max(rms)
	if maxRMS <= 0 {
		return []float64{}
	}

	first, last := -1, -1
	for i, r := range rms {
		if r <= 0 {
			continue
		}
		if 20.0*math.Log10(r/maxRMS) > -c.config.SilenceThresholdDB {
			if first == -1 {
				first = i
			}
			last = i
		}
	}

	if first == -1 {
		return []float64{}
	}

	start := first * hopSize
	end := last*hopSize + frameSize
	if end > len(samples) {
		end = len(samples)
	}

	return samples[start:end]
}
