package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/voxkit/phraseprint/logging"
)

// FileStore persists the database as a single JSON file. Every mutation
// is a full read-modify-write of the whole file, so it is not safe for
// concurrent writers: two processes appending at once can race and the
// later Save silently discards the earlier one. Use BadgerStore when
// multiple writers are possible.
type FileStore struct {
	path      string
	dimension int
	logger    logging.Logger
}

// NewFileStore creates a JSON file store at the given path. dimension
// is the expected feature dimension; pass 0 to accept whatever
// consistent dimension the file already holds.
func NewFileStore(path string, dimension int) *FileStore {
	return &FileStore{
		path:      path,
		dimension: dimension,
		logger:    logging.WithFields(logging.Fields{"component": "file_store", "path": path}),
	}
}

// Load reads the full database. A missing file yields an empty
// database; an unparseable file yields ErrCorrupt.
func (s *FileStore) Load(_ context.Context) (Database, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Database{}, nil
		}
		return nil, fmt.Errorf("store: read %s: %w", s.path, err)
	}

	var db Database
	if err := json.Unmarshal(data, &db); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
	}

	if err := validateDimensions(db, s.dimension); err != nil {
		return nil, err
	}

	return db, nil
}

// Save writes the full database, replacing any prior state. The write
// goes through a temp file and rename so a crash mid-write cannot leave
// a truncated database behind.
func (s *FileStore) Save(_ context.Context, db Database) error {
	if err := validateDimensions(db, s.dimension); err != nil {
		return err
	}

	data, err := json.Marshal(db)
	if err != nil {
		return fmt.Errorf("store: marshal database: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("store: create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("store: create temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("store: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("store: close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("store: replace %s: %w", s.path, err)
	}

	return nil
}

// AddExample appends an example to the named user's sequence and
// persists the whole database. The embedding dimension must match the
// database's; a mismatched append is rejected rather than persisted,
// since it would make every subsequent Load fail.
func (s *FileStore) AddExample(ctx context.Context, userID string, features []float64, label string) error {
	db, err := s.Load(ctx)
	if err != nil {
		return err
	}

	if err := validateAppend(db, s.dimension, features); err != nil {
		return err
	}

	db[userID] = append(db[userID], Example{Label: label, Features: features})

	if err := s.Save(ctx, db); err != nil {
		return err
	}

	s.logger.Info("added example", logging.Fields{
		"user_id": userID,
		"label":   label,
		"total":   len(db[userID]),
	})

	return nil
}

// Examples returns the named user's stored examples in insertion order
func (s *FileStore) Examples(ctx context.Context, userID string) ([]Example, error) {
	db, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return db[userID], nil
}

// Close is a no-op for the file backend
func (s *FileStore) Close() error {
	return nil
}
