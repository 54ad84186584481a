package fingerprint

// Config fixes the parameters of the audio-to-embedding transform.
//
// Every value here is part of the embedding contract: all stored and
// query embeddings in one personalization database must be produced
// with identical parameters, or similarity comparisons between them
// are meaningless. Never change these once a database holds data.
type Config struct {
	SampleRate      int     `json:"sample_rate" yaml:"sample_rate"`
	WindowSize      int     `json:"window_size" yaml:"window_size"`
	HopSize         int     `json:"hop_size" yaml:"hop_size"`
	NumCoefficients int     `json:"num_coefficients" yaml:"num_coefficients"`
	NumMelFilters   int     `json:"num_mel_filters" yaml:"num_mel_filters"`
	MinPitchHz      float64 `json:"min_pitch_hz" yaml:"min_pitch_hz"`
	MaxPitchHz      float64 `json:"max_pitch_hz" yaml:"max_pitch_hz"`
}

// DefaultConfig returns the default extraction parameters: 22.05 kHz
// audio framed at 2048/512, 40 cepstral coefficients, and a pitch
// search range spanning C2 to C7.
func DefaultConfig() Config {
	return Config{
		SampleRate:      22050,
		WindowSize:      2048,
		HopSize:         512,
		NumCoefficients: 40,
		NumMelFilters:   128,
		MinPitchHz:      65.41,  // C2
		MaxPitchHz:      2093.0, // C7
	}
}

// WithDefaults fills zero-valued fields from DefaultConfig
func (c Config) WithDefaults() Config {
	defaults := DefaultConfig()
	if c.SampleRate <= 0 {
		c.SampleRate = defaults.SampleRate
	}
	if c.WindowSize <= 0 {
		c.WindowSize = defaults.WindowSize
	}
	if c.HopSize <= 0 {
		c.HopSize = defaults.HopSize
	}
	if c.NumCoefficients <= 0 {
		c.NumCoefficients = defaults.NumCoefficients
	}
	if c.NumMelFilters <= 0 {
		c.NumMelFilters = defaults.NumMelFilters
	}
	if c.MinPitchHz <= 0 {
		c.MinPitchHz = defaults.MinPitchHz
	}
	if c.MaxPitchHz <= c.MinPitchHz {
		c.MaxPitchHz = defaults.MaxPitchHz
	}
	return c
}

// Dimension returns the embedding dimension D produced by this
// configuration: (mean, std) per cepstral channel, plus energy
// (mean, std), plus pitch (mean, std).
func (c Config) Dimension() int {
	return 2*c.NumCoefficients + 4
}
