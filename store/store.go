// Package store persists per-user collections of labeled phrase
// embeddings. Two backends are provided: a whole-file JSON store with
// single-writer semantics, and a BadgerDB store whose appends are
// transactional and safe under concurrent writers.
package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrCorrupt is returned when persisted state exists but cannot be
// parsed. It is fatal: a corrupt database is never silently replaced by
// an empty one, since the next save would overwrite the data for good.
var ErrCorrupt = errors.New("store: corrupt database")

// Example is one stored phrase sample: a label and the embedding
// extracted from the user's recording. Immutable once stored.
type Example struct {
	Label    string    `json:"label"`
	Features []float64 `json:"features"`
}

// Database maps user identifiers to their stored examples. Insertion
// order within a user is preserved and observable; the classifier's
// tie-breaking depends on it.
type Database map[string][]Example

// Store is the persistence contract shared by all backends.
type Store interface {
	// Load returns the full database, or an empty one when nothing has
	// been persisted yet. A parse failure returns ErrCorrupt.
	Load(ctx context.Context) (Database, error)

	// Save persists the full database, replacing any prior state.
	Save(ctx context.Context, db Database) error

	// AddExample appends an example to the named user's sequence,
	// creating the user if absent, and persists the change.
	AddExample(ctx context.Context, userID string, features []float64, label string) error

	// Examples returns the named user's stored examples in insertion
	// order. A user with no data yields an empty slice, not an error.
	Examples(ctx context.Context, userID string) ([]Example, error)

	// Close releases backend resources.
	Close() error
}

// validateAppend checks a new embedding against the store's configured
// dimension, falling back to the dimension already present in the
// database when none was configured.
func validateAppend(db Database, want int, features []float64) error {
	if len(features) == 0 {
		return fmt.Errorf("store: cannot add example with no features")
	}
	if want == 0 {
		for _, examples := range db {
			if len(examples) > 0 {
				want = len(examples[0].Features)
				break
			}
		}
	}
	if want > 0 && len(features) != want {
		return fmt.Errorf("store: example dimension %d does not match database dimension %d", len(features), want)
	}
	return nil
}

// validateDimensions checks that every example in the database carries
// the same feature dimension, and that it matches want when want > 0.
// Mixed dimensions mean the database was written under different
// extraction parameters and cannot be used for similarity comparisons.
func validateDimensions(db Database, want int) error {
	dim := want
	for userID, examples := range db {
		for i, ex := range examples {
			if len(ex.Features) == 0 {
				return fmt.Errorf("%w: user %q example %d has no features", ErrCorrupt, userID, i)
			}
			if dim == 0 {
				dim = len(ex.Features)
			}
			if len(ex.Features) != dim {
				return fmt.Errorf("%w: user %q example %d has dimension %d, want %d",
					ErrCorrupt, userID, i, len(ex.Features), dim)
			}
		}
	}
	return nil
}
