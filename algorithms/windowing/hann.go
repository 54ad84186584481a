package windowing

import (
	"fmt"
	"math"
)

// Hann is a Hann (raised cosine) analysis window. It is the framing
// window used for all spectral and energy features so that stored and
// query embeddings see identical windowing.
type Hann struct {
	size         int
	coefficients []float64
}

// NewHann creates a periodic Hann window of the given size
func NewHann(size int) *Hann {
	h := &Hann{size: size}
	h.generate()
	return h
}

func (h *Hann) generate() {
	h.coefficients = make([]float64, h.size)
	for i := range h.size {
		h.coefficients[i] = 0.5 * (1.0 - math.Cos(2*math.Pi*float64(i)/float64(h.size)))
	}
}

// Apply applies the window to a signal, returning a new slice
func (h *Hann) Apply(signal []float64) []float64 {
	if len(signal) != h.size {
		return nil
	}

	windowed := make([]float64, h.size)
	for i := range signal {
		windowed[i] = signal[i] * h.coefficients[i]
	}

	return windowed
}

// ApplyInPlace applies the window to a signal in-place
func (h *Hann) ApplyInPlace(signal []float64) error {
	if len(signal) != h.size {
		return fmt.Errorf("signal length (%d) doesn't match window size (%d)", len(signal), h.size)
	}

	for i := range signal {
		signal[i] *= h.coefficients[i]
	}

	return nil
}

// Size returns the window size
func (h *Hann) Size() int {
	return h.size
}
