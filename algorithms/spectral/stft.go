package spectral

import (
	"fmt"
	"math/cmplx"
	"runtime"
	"sync"
)

// STFT provides Short-Time Fourier Transform functionality
type STFT struct {
	fft *FFT
}

// STFTResult holds the magnitude spectrogram of an STFT analysis
type STFTResult struct {
	Magnitude  [][]float64 `json:"magnitude"`   // Time x Frequency magnitude matrix
	TimeFrames int         `json:"time_frames"` // Number of time frames
	FreqBins   int         `json:"freq_bins"`   // Number of frequency bins
	SampleRate int         `json:"sample_rate"` // Sample rate
	WindowSize int         `json:"window_size"` // FFT window size
	HopSize    int         `json:"hop_size"`    // Hop size between frames
}

// Window is the windowing function applied to each frame
type Window interface {
	ApplyInPlace(signal []float64) error
}

// NewSTFT creates a new STFT calculator
func NewSTFT() *STFT {
	return &STFT{
		fft: NewFFT(),
	}
}

// Compute computes the magnitude spectrogram with frame-parallel processing.
// Frames are taken every hopSize samples; a trailing partial frame is dropped.
func (s *STFT) Compute(signal []float64, windowSize, hopSize, sampleRate int, window Window) (*STFTResult, error) {
	if len(signal) == 0 {
		return nil, fmt.Errorf("empty signal")
	}

	if windowSize <= 0 {
		return nil, fmt.Errorf("window size must be positive")
	}

	if hopSize <= 0 {
		return nil, fmt.Errorf("hop size must be positive")
	}

	numFrames := (len(signal)-windowSize)/hopSize + 1
	if numFrames <= 0 {
		return nil, fmt.Errorf("signal too short for given window size and hop size")
	}

	freqBins := windowSize/2 + 1

	magnitude := make([][]float64, numFrames)
	for i := range numFrames {
		magnitude[i] = make([]float64, freqBins)
	}

	numWorkers := s.workerCount(numFrames)

	type frameJob struct {
		frameIdx int
		startIdx int
	}

	jobs := make(chan frameJob, numFrames)

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			// Reuse frame buffer for this worker
			frameBuffer := make([]float64, windowSize)

			for job := range jobs {
				copy(frameBuffer, signal[job.startIdx:job.startIdx+windowSize])

				if window != nil {
					if err := window.ApplyInPlace(frameBuffer); err != nil {
						continue
					}
				}

				fftResult := s.fft.Compute(frameBuffer)

				for i := range freqBins {
					magnitude[job.frameIdx][i] = cmplx.Abs(fftResult[i])
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for frameIdx := range numFrames {
			startIdx := frameIdx * hopSize
			if startIdx+windowSize <= len(signal) {
				jobs <- frameJob{frameIdx: frameIdx, startIdx: startIdx}
			}
		}
	}()

	wg.Wait()

	return &STFTResult{
		Magnitude:  magnitude,
		TimeFrames: numFrames,
		FreqBins:   freqBins,
		SampleRate: sampleRate,
		WindowSize: windowSize,
		HopSize:    hopSize,
	}, nil
}

// workerCount picks a worker count proportional to the workload
func (s *STFT) workerCount(numFrames int) int {
	numCPU := runtime.NumCPU()

	if numFrames < 100 {
		return max(1, min(numCPU/2, numFrames))
	}

	if numFrames < 1000 {
		return min(numCPU, 8)
	}

	return numCPU
}
