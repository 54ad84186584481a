package filters

import (
	"fmt"
	"math"
)

// biquadSection is one second-order IIR section in Direct Form II.
//
// Coefficients follow Robert Bristow-Johnson's "Cookbook formulae for
// audio EQ biquad filter coefficients".
type biquadSection struct {
	b0, b1, b2 float64
	a1, a2     float64

	// Delay line
	w1, w2 float64
}

func (s *biquadSection) process(input float64) float64 {
	// w[n] = x[n] - a1*w[n-1] - a2*w[n-2]
	w := input - s.a1*s.w1 - s.a2*s.w2

	// y[n] = b0*w[n] + b1*w[n-1] + b2*w[n-2]
	output := s.b0*w + s.b1*s.w1 + s.b2*s.w2

	s.w2 = s.w1
	s.w1 = w

	return output
}

// firstOrderSection is the single-pole high-pass section used for
// odd filter orders
type firstOrderSection struct {
	b0, b1 float64
	a1     float64

	x1, y1 float64
}

func (s *firstOrderSection) process(input float64) float64 {
	output := s.b0*input + s.b1*s.x1 - s.a1*s.y1
	s.x1 = input
	s.y1 = output
	return output
}

// HighpassFilter implements an order-N Butterworth high-pass filter as a
// cascade of biquad sections (plus one first-order section for odd
// orders). Butterworth gives a maximally flat passband, which keeps the
// voiced band untouched while rumble below the cutoff is suppressed.
type HighpassFilter struct {
	sampleRate int
	cutoffFreq float64
	order      int

	sections   []*biquadSection
	firstOrder *firstOrderSection
}

// NewHighpassFilter creates an order-N Butterworth high-pass filter.
//
// Parameters:
//   - sampleRate: Sample rate in Hz
//   - cutoffFreq: -3 dB cutoff frequency in Hz; must lie below Nyquist
//   - order: Filter order (>= 1)
func NewHighpassFilter(sampleRate int, cutoffFreq float64, order int) (*HighpassFilter, error) {
	if cutoffFreq <= 0 || cutoffFreq >= float64(sampleRate)/2 {
		return nil, fmt.Errorf("cutoff frequency must be between 0 and Nyquist frequency (%d Hz)", sampleRate/2)
	}
	if order < 1 {
		return nil, fmt.Errorf("filter order must be at least 1, got %d", order)
	}

	hf := &HighpassFilter{
		sampleRate: sampleRate,
		cutoffFreq: cutoffFreq,
		order:      order,
	}

	hf.computeCoefficients()
	return hf, nil
}

// computeCoefficients builds the section cascade. Each conjugate pole
// pair of the analog Butterworth prototype maps to one biquad whose Q
// is 1/(2*cos(phi)), phi being the pole angle from the negative real
// axis; an odd order contributes a single real pole.
func (hf *HighpassFilter) computeCoefficients() {
	w0 := 2.0 * math.Pi * hf.cutoffFreq / float64(hf.sampleRate)
	cosW0 := math.Cos(w0)
	sinW0 := math.Sin(w0)

	numBiquads := hf.order / 2

	hf.sections = make([]*biquadSection, 0, numBiquads)

	for k := 0; k < numBiquads; k++ {
		var phi float64
		if hf.order%2 == 0 {
			phi = math.Pi * float64(2*k+1) / float64(2*hf.order)
		} else {
			phi = math.Pi * float64(k+1) / float64(hf.order)
		}
		q := 1.0 / (2.0 * math.Cos(phi))

		alpha := sinW0 / (2.0 * q)

		// High-pass cookbook coefficients
		b0 := (1.0 + cosW0) / 2.0
		b1 := -(1.0 + cosW0)
		b2 := (1.0 + cosW0) / 2.0
		a0 := 1.0 + alpha
		a1 := -2.0 * cosW0
		a2 := 1.0 - alpha

		hf.sections = append(hf.sections, &biquadSection{
			b0: b0 / a0,
			b1: b1 / a0,
			b2: b2 / a0,
			a1: a1 / a0,
			a2: a2 / a0,
		})
	}

	if hf.order%2 == 1 {
		// Bilinear transform of H(s) = s/(s + wc)
		k := math.Tan(w0 / 2.0)
		norm := 1.0 / (1.0 + k)

		hf.firstOrder = &firstOrderSection{
			b0: norm,
			b1: -norm,
			a1: (k - 1.0) * norm,
		}
	}
}

// Process applies the filter to a single sample
func (hf *HighpassFilter) Process(input float64) float64 {
	output := input

	if hf.firstOrder != nil {
		output = hf.firstOrder.process(output)
	}

	for _, section := range hf.sections {
		output = section.process(output)
	}

	return output
}

// ProcessBuffer applies the filter to an entire buffer of samples
func (hf *HighpassFilter) ProcessBuffer(input []float64) []float64 {
	output := make([]float64, len(input))
	for i, sample := range input {
		output[i] = hf.Process(sample)
	}
	return output
}

// Reset clears the delay lines of every section. Call this when
// processing discontinuous audio segments.
func (hf *HighpassFilter) Reset() {
	for _, section := range hf.sections {
		section.w1, section.w2 = 0.0, 0.0
	}
	if hf.firstOrder != nil {
		hf.firstOrder.x1, hf.firstOrder.y1 = 0.0, 0.0
	}
}

// GetParameters returns the current filter parameters
func (hf *HighpassFilter) GetParameters() (cutoffFreq float64, order int) {
	return hf.cutoffFreq, hf.order
}
