// Package phraseprint recognizes a per-user vocabulary of personalized
// spoken phrases. Users register a few labeled example utterances per
// phrase; a query utterance is answered with the closest matching
// phrase and a confidence score.
//
// The pipeline is: decode -> condition (resample, normalize, trim,
// high-pass) -> extract a fixed-dimension embedding (MFCC + energy +
// pitch statistics) -> append to or query the user's personalization
// store via nearest-neighbor vote.
package phraseprint

import (
	"context"
	"errors"
	"fmt"

	"github.com/voxkit/phraseprint/classify"
	"github.com/voxkit/phraseprint/condition"
	"github.com/voxkit/phraseprint/fingerprint"
	"github.com/voxkit/phraseprint/logging"
	"github.com/voxkit/phraseprint/store"
	"github.com/voxkit/phraseprint/transcode"
)

// ErrInvalidAudio is returned when source audio cannot be decoded or
// becomes empty after conditioning. It is recoverable at the file
// level: batch callers skip the file and continue.
var ErrInvalidAudio = errors.New("phraseprint: invalid audio")

// Options configures a Recognizer. Zero values select the documented
// defaults of each component. The conditioning and fingerprint
// parameters are fixed per deployment: changing them invalidates
// comparability with previously stored embeddings.
type Options struct {
	Condition   condition.Config         `json:"condition" yaml:"condition"`
	Fingerprint fingerprint.Config       `json:"fingerprint" yaml:"fingerprint"`
	Decoder     *transcode.DecoderConfig `json:"decoder" yaml:"decoder"`
}

// Recognizer wires the decoder, conditioner, extractor, classifier, and
// a personalization store into the two core operations: add an example
// and predict a phrase.
type Recognizer struct {
	decoder     *transcode.Decoder
	conditioner *condition.Conditioner
	extractor   *fingerprint.Extractor
	store       store.Store
	logger      logging.Logger
}

// NewRecognizer creates a recognizer on top of the given store
func NewRecognizer(s store.Store, opts Options) *Recognizer {
	// The extractor consumes what the conditioner produces, so both
	// must agree on the deployment sample rate.
	if opts.Fingerprint.SampleRate == 0 && opts.Condition.TargetSampleRate != 0 {
		opts.Fingerprint.SampleRate = opts.Condition.TargetSampleRate
	}
	if opts.Condition.TargetSampleRate == 0 && opts.Fingerprint.SampleRate != 0 {
		opts.Condition.TargetSampleRate = opts.Fingerprint.SampleRate
	}

	return &Recognizer{
		decoder:     transcode.NewDecoder(opts.Decoder),
		conditioner: condition.NewConditioner(opts.Condition),
		extractor:   fingerprint.NewExtractor(opts.Fingerprint),
		store:       s,
		logger:      logging.WithFields(logging.Fields{"component": "recognizer"}),
	}
}

// Store returns the underlying personalization store
func (r *Recognizer) Store() store.Store {
	return r.store
}

// Dimension returns the embedding dimension produced by this
// recognizer's configuration
func (r *Recognizer) Dimension() int {
	return r.extractor.Config().Dimension()
}

// EmbedFile decodes, conditions, and extracts the embedding of one
// audio file. Returns ErrInvalidAudio when the file cannot be decoded
// or is empty after conditioning.
func (r *Recognizer) EmbedFile(ctx context.Context, path string) (fingerprint.Embedding, error) {
	audio, err := r.decoder.DecodeFile(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidAudio, path, err)
	}

	samples, rate := r.conditioner.Condition(audio.PCM, audio.SampleRate)

	embedding, err := r.extractor.Extract(samples, rate)
	if err != nil {
		if errors.Is(err, fingerprint.ErrEmptyWaveform) {
			return nil, fmt.Errorf("%w: %s: empty after conditioning", ErrInvalidAudio, path)
		}
		return nil, fmt.Errorf("extract %s: %w", path, err)
	}

	return embedding, nil
}

// AddExample appends a labeled embedding to the user's store
func (r *Recognizer) AddExample(ctx context.Context, userID string, embedding fingerprint.Embedding, label string) error {
	if len(embedding) != r.Dimension() {
		return fmt.Errorf("phraseprint: embedding dimension %d does not match configured dimension %d",
			len(embedding), r.Dimension())
	}
	return r.store.AddExample(ctx, userID, embedding, label)
}

// AddExampleFromFile registers one labeled utterance for the user. No
// record is appended when the audio is invalid.
func (r *Recognizer) AddExampleFromFile(ctx context.Context, userID, path, label string) error {
	embedding, err := r.EmbedFile(ctx, path)
	if err != nil {
		return err
	}
	return r.AddExample(ctx, userID, embedding, label)
}

// Predict classifies an embedding against the user's stored examples.
// A user with no stored examples yields a Prediction with OK false and
// confidence 0; that is not an error.
func (r *Recognizer) Predict(ctx context.Context, userID string, embedding fingerprint.Embedding, k int, metric classify.Metric) (classify.Prediction, error) {
	examples, err := r.store.Examples(ctx, userID)
	if err != nil {
		return classify.Prediction{}, fmt.Errorf("load examples for user %q: %w", userID, err)
	}

	if len(examples) == 0 {
		r.logger.Warn("no personalization data", logging.Fields{"user_id": userID})
		return classify.Prediction{}, nil
	}

	return classify.Predict(embedding, examples, k, metric), nil
}

// PredictFromFile recognizes the phrase spoken in an audio file
func (r *Recognizer) PredictFromFile(ctx context.Context, userID, path string, k int, metric classify.Metric) (classify.Prediction, error) {
	embedding, err := r.EmbedFile(ctx, path)
	if err != nil {
		return classify.Prediction{}, err
	}
	return r.Predict(ctx, userID, embedding, k, metric)
}
