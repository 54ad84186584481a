package tonal

// PitchFrame is the pitch estimate for one analysis frame. Voiced is
// false when no periodic component was found within the configured
// frequency range; F0 is meaningless in that case.
type PitchFrame struct {
	F0     float64 `json:"f0"`
	Voiced bool    `json:"voiced"`
}

// PitchTrackerParams contains parameters for frame-wise pitch tracking
type PitchTrackerParams struct {
	SampleRate int     `json:"sample_rate"`
	WindowSize int     `json:"window_size"`
	HopSize    int     `json:"hop_size"`
	MinFreq    float64 `json:"min_freq"`      // Lowest admissible F0 (Hz)
	MaxFreq    float64 `json:"max_freq"`      // Highest admissible F0 (Hz)
	Threshold  float64 `json:"yin_threshold"` // YIN absolute threshold (default: 0.15)
}

// PitchTracker estimates the fundamental frequency per frame using the
// YIN algorithm (de Cheveigné & Kawahara, 2002): cumulative mean
// normalized difference with an absolute threshold and parabolic
// interpolation around the selected lag.
type PitchTracker struct {
	params PitchTrackerParams
}

// NewPitchTracker creates a pitch tracker with the given parameters
func NewPitchTracker(params PitchTrackerParams) *PitchTracker {
	if params.Threshold <= 0 {
		params.Threshold = 0.15
	}
	if params.MinFreq <= 0 {
		params.MinFreq = 65.0
	}
	if params.MaxFreq <= params.MinFreq {
		params.MaxFreq = float64(params.SampleRate) / 4.0
	}

	return &PitchTracker{params: params}
}

// Track estimates F0 for every complete frame of the signal. Frames where
// no candidate lag falls below the YIN threshold, or whose frequency lands
// outside [MinFreq, MaxFreq], are marked unvoiced.
func (pt *PitchTracker) Track(signal []float64) []PitchFrame {
	p := pt.params
	if len(signal) < p.WindowSize || p.HopSize <= 0 || p.WindowSize <= 0 {
		return []PitchFrame{}
	}

	numFrames := (len(signal)-p.WindowSize)/p.HopSize + 1
	frames := make([]PitchFrame, numFrames)

	for i := range numFrames {
		start := i * p.HopSize
		frames[i] = pt.estimateFrame(signal[start : start+p.WindowSize])
	}

	return frames
}

// estimateFrame runs YIN on a single frame
func (pt *PitchTracker) estimateFrame(frame []float64) PitchFrame {
	p := pt.params
	halfN := len(frame) / 2

	// Lag search range from the frequency bounds
	minTau := int(float64(p.SampleRate) / p.MaxFreq)
	maxTau := int(float64(p.SampleRate) / p.MinFreq)
	if minTau < 1 {
		minTau = 1
	}
	if maxTau >= halfN {
		maxTau = halfN - 1
	}
	if minTau >= maxTau {
		return PitchFrame{}
	}

	// Difference function
	diff := make([]float64, maxTau+1)
	for tau := 1; tau <= maxTau; tau++ {
		sum := 0.0
		for j := 0; j < halfN; j++ {
			delta := frame[j] - frame[j+tau]
			sum += delta * delta
		}
		diff[tau] = sum
	}

	// Cumulative mean normalized difference function
	cmndf := make([]float64, maxTau+1)
	cmndf[0] = 1.0

	runningSum := 0.0
	for tau := 1; tau <= maxTau; tau++ {
		runningSum += diff[tau]
		if runningSum > 0 {
			cmndf[tau] = diff[tau] * float64(tau) / runningSum
		} else {
			cmndf[tau] = 1.0
		}
	}

	// First local minimum below threshold within the admissible lag range
	bestTau := -1
	for tau := minTau; tau < maxTau; tau++ {
		if cmndf[tau] < p.Threshold && cmndf[tau] < cmndf[tau+1] {
			bestTau = tau
			break
		}
	}

	if bestTau <= 0 {
		return PitchFrame{}
	}

	period := parabolicInterpolation(cmndf, bestTau)
	frequency := float64(p.SampleRate) / period

	if frequency < p.MinFreq || frequency > p.MaxFreq {
		return PitchFrame{}
	}

	return PitchFrame{F0: frequency, Voiced: true}
}

// parabolicInterpolation refines a minimum location using its neighbors
func parabolicInterpolation(data []float64, peakIdx int) float64 {
	if peakIdx <= 0 || peakIdx >= len(data)-1 {
		return float64(peakIdx)
	}

	y1 := data[peakIdx-1]
	y2 := data[peakIdx]
	y3 := data[peakIdx+1]

	denom := 2.0 * (y1 - 2.0*y2 + y3)
	if denom == 0 {
		return float64(peakIdx)
	}

	offset := (y1 - y3) / denom
	return float64(peakIdx) + offset
}
