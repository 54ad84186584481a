package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFileStore(t *testing.T, dimension int) *FileStore {
	t.Helper()
	return NewFileStore(filepath.Join(t.TempDir(), "phrases.json"), dimension)
}

func TestFileStoreLoadMissingFile(t *testing.T) {
	s := newTestFileStore(t, 0)

	db, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, db)
}

func TestFileStoreRoundTrip(t *testing.T) {
	s := newTestFileStore(t, 2)

	want := Database{
		"alice": {
			{Label: "hello", Features: []float64{0.1, 0.2}},
			{Label: "bye", Features: []float64{0.3, 0.4}},
		},
		"bob": {
			{Label: "hello", Features: []float64{0.5, 0.6}},
		},
	}

	ctx := context.Background()
	require.NoError(t, s.Save(ctx, want))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFileStoreAddExampleAppends(t *testing.T) {
	s := newTestFileStore(t, 2)
	ctx := context.Background()

	require.NoError(t, s.AddExample(ctx, "alice", []float64{1, 2}, "hello"))
	require.NoError(t, s.AddExample(ctx, "alice", []float64{3, 4}, "bye"))
	require.NoError(t, s.AddExample(ctx, "bob", []float64{5, 6}, "hello"))

	examples, err := s.Examples(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, examples, 2)
	assert.Equal(t, "hello", examples[0].Label)
	assert.Equal(t, []float64{1, 2}, examples[0].Features)
	assert.Equal(t, "bye", examples[1].Label)

	// Other users are untouched by alice's appends.
	examples, err = s.Examples(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, examples, 1)
	assert.Equal(t, []float64{5, 6}, examples[0].Features)
}

func TestFileStoreExamplesUnknownUser(t *testing.T) {
	s := newTestFileStore(t, 0)

	examples, err := s.Examples(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, examples)
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phrases.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s := NewFileStore(path, 0)
	_, err := s.Load(context.Background())
	assert.ErrorIs(t, err, ErrCorrupt)

	// Mutations must not clobber the corrupt file with a fresh database.
	err = s.AddExample(context.Background(), "alice", []float64{1}, "hello")
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestFileStoreDimensionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phrases.json")

	writer := NewFileStore(path, 3)
	ctx := context.Background()
	require.NoError(t, writer.AddExample(ctx, "alice", []float64{1, 2, 3}, "hello"))

	reader := NewFileStore(path, 2)
	_, err := reader.Load(ctx)
	assert.Error(t, err)
}

func TestFileStoreAddExampleRejectsDimensionMismatch(t *testing.T) {
	s := newTestFileStore(t, 3)
	ctx := context.Background()

	require.NoError(t, s.AddExample(ctx, "alice", []float64{1, 2, 3}, "hello"))

	// A mismatched append must be rejected, not persisted: once written
	// it would poison every subsequent Load.
	err := s.AddExample(ctx, "alice", []float64{1, 2}, "bye")
	require.Error(t, err)

	err = s.AddExample(ctx, "bob", nil, "bye")
	require.Error(t, err)

	examples, err := s.Examples(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, examples, 1)
	assert.Equal(t, "hello", examples[0].Label)
}

func TestFileStoreAddExampleInfersDimension(t *testing.T) {
	// Dimension 0 accepts whatever the file already holds; the first
	// append pins it for every user.
	s := newTestFileStore(t, 0)
	ctx := context.Background()

	require.NoError(t, s.AddExample(ctx, "alice", []float64{1, 2}, "hello"))
	require.Error(t, s.AddExample(ctx, "alice", []float64{1, 2, 3}, "bye"))
	require.Error(t, s.AddExample(ctx, "bob", []float64{1}, "hello"))
	require.NoError(t, s.AddExample(ctx, "bob", []float64{3, 4}, "hello"))
}

func TestFileStoreSaveRejectsMixedDimensions(t *testing.T) {
	s := newTestFileStore(t, 0)

	err := s.Save(context.Background(), Database{
		"alice": {
			{Label: "hello", Features: []float64{1, 2}},
			{Label: "bye", Features: []float64{1, 2, 3}},
		},
	})
	assert.Error(t, err)
}

func TestFileStoreSaveCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "phrases.json")
	s := NewFileStore(path, 0)

	require.NoError(t, s.Save(context.Background(), Database{"alice": {{Label: "hi", Features: []float64{1}}}}))

	_, err := os.Stat(path)
	assert.NoError(t, err)
}
