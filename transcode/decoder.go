// Package transcode decodes audio files into raw mono waveforms using
// FFmpeg. Decoding keeps the file's native sample rate; resampling to
// the deployment rate is the conditioner's job.
package transcode

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"time"

	"github.com/voxkit/phraseprint/logging"
)

// ErrInvalidAudio is returned when a file cannot be decoded or yields no
// samples. Batch callers skip the file and continue; it never aborts a
// whole pipeline.
var ErrInvalidAudio = errors.New("transcode: invalid audio")

// AudioData represents decoded audio data
type AudioData struct {
	PCM        []float64     `json:"-"`
	SampleRate int           `json:"sample_rate"`
	Channels   int           `json:"channels"`
	Duration   time.Duration `json:"duration"`
}

// AudioMetadata holds detected audio properties from FFprobe
type AudioMetadata struct {
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
	Codec      string  `json:"codec"`
	Duration   float64 `json:"duration"`
}

// DecoderConfig holds decoder configuration
type DecoderConfig struct {
	MaxDuration time.Duration `json:"max_duration"` // 0 means no limit
	FFmpegPath  string        `json:"ffmpeg_path"`
	FFprobePath string        `json:"ffprobe_path"`
	Timeout     time.Duration `json:"timeout"`
}

// DefaultDecoderConfig returns default decoder configuration
func DefaultDecoderConfig() *DecoderConfig {
	return &DecoderConfig{
		MaxDuration: 0,
		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",
		Timeout:     30 * time.Second,
	}
}

// Decoder handles audio decoding using FFmpeg
type Decoder struct {
	config *DecoderConfig
}

// NewDecoder creates a new audio decoder
func NewDecoder(config *DecoderConfig) *Decoder {
	if config == nil {
		config = DefaultDecoderConfig()
	}
	return &Decoder{config: config}
}

// DecodeFile decodes an audio file to mono float64 PCM at the file's
// native sample rate. Undecodable input returns an error wrapping
// ErrInvalidAudio.
func (d *Decoder) DecodeFile(ctx context.Context, filename string) (*AudioData, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "audio_decoder",
		"filename":  filename,
	})

	metadata, err := d.probeFile(ctx, filename)
	if err != nil {
		logger.Error(err, "failed to probe audio file")
		return nil, fmt.Errorf("%w: probe %s: %v", ErrInvalidAudio, filename, err)
	}

	logger.Debug("audio metadata detected", logging.Fields{
		"sample_rate": metadata.SampleRate,
		"channels":    metadata.Channels,
		"codec":       metadata.Codec,
		"duration":    metadata.Duration,
	})

	if d.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.Timeout)
		defer cancel()
	}

	args := []string{"-i", filename}
	args = append(args, d.buildFFmpegArgs(metadata)...)
	args = append(args, "pipe:1")

	cmd := exec.CommandContext(ctx, d.config.FFmpegPath, args...)

	output, err := cmd.Output()
	if err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			logger.Error(err, "ffmpeg decode failed", logging.Fields{
				"stderr": string(exitError.Stderr),
			})
		}
		return nil, fmt.Errorf("%w: decode %s: %v", ErrInvalidAudio, filename, err)
	}

	samples := bytesToFloat64(output)
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: %s: no audio samples decoded", ErrInvalidAudio, filename)
	}

	duration := time.Duration(len(samples)) * time.Second / time.Duration(metadata.SampleRate)

	logger.Debug("decode completed", logging.Fields{
		"samples":  len(samples),
		"duration": duration.Seconds(),
	})

	return &AudioData{
		PCM:        samples,
		SampleRate: metadata.SampleRate,
		Channels:   1,
		Duration:   duration,
	}, nil
}

// buildFFmpegArgs builds the ffmpeg output arguments: raw little-endian
// float64, downmixed to mono, native sample rate preserved
func (d *Decoder) buildFFmpegArgs(metadata *AudioMetadata) []string {
	args := []string{
		"-f", "f64le",
		"-ac", "1",
		"-ar", strconv.Itoa(metadata.SampleRate),
	}

	if d.config.MaxDuration > 0 {
		args = append(args, "-t", fmt.Sprintf("%.2f", d.config.MaxDuration.Seconds()))
	}

	args = append(args, "-v", "error")

	return args
}

// probeFile reads stream properties with ffprobe
func (d *Decoder) probeFile(ctx context.Context, filename string) (*AudioMetadata, error) {
	if d.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, d.config.FFprobePath,
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "stream=sample_rate,channels,codec_name,duration",
		"-of", "json",
		filename,
	)

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	return parseFFprobeOutput(output)
}

func parseFFprobeOutput(jsonData []byte) (*AudioMetadata, error) {
	var probe struct {
		Streams []struct {
			SampleRate string `json:"sample_rate"`
			Channels   int    `json:"channels"`
			CodecName  string `json:"codec_name"`
			Duration   string `json:"duration"`
		} `json:"streams"`
	}

	if err := json.Unmarshal(jsonData, &probe); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	if len(probe.Streams) == 0 {
		return nil, fmt.Errorf("no audio streams found")
	}

	stream := probe.Streams[0]

	sampleRate, err := strconv.Atoi(stream.SampleRate)
	if err != nil || sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %q", stream.SampleRate)
	}

	duration, _ := strconv.ParseFloat(stream.Duration, 64)

	return &AudioMetadata{
		SampleRate: sampleRate,
		Channels:   stream.Channels,
		Codec:      stream.CodecName,
		Duration:   duration,
	}, nil
}

// bytesToFloat64 converts raw f64le bytes to a float64 slice
func bytesToFloat64(data []byte) []float64 {
	data = data[:len(data)-(len(data)%8)]
	if len(data) == 0 {
		return nil
	}

	sampleCount := len(data) / 8
	samples := make([]float64, sampleCount)

	for i := range sampleCount {
		bits := binary.LittleEndian.Uint64(data[i*8 : i*8+8])
		samples[i] = math.Float64frombits(bits)
	}

	return samples
}
