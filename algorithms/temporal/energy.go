package temporal

import (
	"math"
)

// Energy computes frame-wise RMS energy over a fixed framing grid
type Energy struct {
	frameSize int
	hopSize   int
}

// NewEnergy creates a new energy calculator
func NewEnergy(frameSize, hopSize int) *Energy {
	return &Energy{
		frameSize: frameSize,
		hopSize:   hopSize,
	}
}

// ComputeRMS calculates root-mean-square amplitude for overlapping frames.
// Returns one value per complete frame; a trailing partial frame is dropped.
func (e *Energy) ComputeRMS(signal []float64) []float64 {
	if len(signal) < e.frameSize || e.hopSize <= 0 || e.frameSize <= 0 {
		return []float64{}
	}

	numFrames := (len(signal)-e.frameSize)/e.hopSize + 1
	energies := make([]float64, numFrames)

	for i := range numFrames {
		startIdx := i * e.hopSize
		endIdx := startIdx + e.frameSize

		sumSquares := 0.0
		for j := startIdx; j < endIdx; j++ {
			sumSquares += signal[j] * signal[j]
		}
		energies[i] = math.Sqrt(sumSquares / float64(e.frameSize))
	}

	return energies
}

// ComputeLogRMS calculates frame RMS in dB, flooring at the given value
// so silence does not produce -Inf
func (e *Energy) ComputeLogRMS(signal []float64, floor float64) []float64 {
	energies := e.ComputeRMS(signal)
	logEnergies := make([]float64, len(energies))

	for i, energy := range energies {
		if energy < floor {
			energy = floor
		}
		logEnergies[i] = 20.0 * math.Log10(energy)
	}

	return logEnergies
}
