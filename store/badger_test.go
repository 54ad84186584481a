package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBadgerStore(t *testing.T, dimension int) *BadgerStore {
	t.Helper()
	s, err := NewBadgerStore(BadgerOptions{InMemory: true, Dimension: dimension})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBadgerStoreRequiresDir(t *testing.T) {
	_, err := NewBadgerStore(BadgerOptions{})
	assert.Error(t, err)
}

func TestBadgerStoreAddExamplePreservesOrder(t *testing.T) {
	s := newTestBadgerStore(t, 2)
	ctx := context.Background()

	labels := []string{"hello", "bye", "hello", "play music", "bye"}
	for i, label := range labels {
		require.NoError(t, s.AddExample(ctx, "alice", []float64{float64(i), 0}, label))
	}

	examples, err := s.Examples(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, examples, len(labels))
	for i, label := range labels {
		assert.Equal(t, label, examples[i].Label)
		assert.Equal(t, []float64{float64(i), 0}, examples[i].Features)
	}
}

func TestBadgerStoreExamplesUnknownUser(t *testing.T) {
	s := newTestBadgerStore(t, 0)

	examples, err := s.Examples(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, examples)
}

func TestBadgerStoreUsersAreIsolated(t *testing.T) {
	s := newTestBadgerStore(t, 1)
	ctx := context.Background()

	// "al" must not see "alice"'s examples through prefix scans.
	require.NoError(t, s.AddExample(ctx, "alice", []float64{1}, "hello"))
	require.NoError(t, s.AddExample(ctx, "al", []float64{2}, "bye"))

	examples, err := s.Examples(ctx, "al")
	require.NoError(t, err)
	require.Len(t, examples, 1)
	assert.Equal(t, "bye", examples[0].Label)

	examples, err = s.Examples(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, examples, 1)
	assert.Equal(t, "hello", examples[0].Label)
}

func TestBadgerStoreLoadSaveRoundTrip(t *testing.T) {
	s := newTestBadgerStore(t, 2)
	ctx := context.Background()

	want := Database{
		"alice": {
			{Label: "hello", Features: []float64{0.1, 0.2}},
			{Label: "bye", Features: []float64{0.3, 0.4}},
		},
		"bob": {
			{Label: "hello", Features: []float64{0.5, 0.6}},
		},
	}
	require.NoError(t, s.Save(ctx, want))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Appends after a Save continue the user's sequence.
	require.NoError(t, s.AddExample(ctx, "alice", []float64{0.7, 0.8}, "play music"))
	examples, err := s.Examples(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, examples, 3)
	assert.Equal(t, "play music", examples[2].Label)
}

func TestBadgerStoreSaveReplacesContents(t *testing.T) {
	s := newTestBadgerStore(t, 1)
	ctx := context.Background()

	require.NoError(t, s.AddExample(ctx, "alice", []float64{1}, "old"))
	require.NoError(t, s.Save(ctx, Database{"bob": {{Label: "new", Features: []float64{2}}}}))

	db, err := s.Load(ctx)
	require.NoError(t, err)
	assert.NotContains(t, db, "alice")
	require.Contains(t, db, "bob")
	assert.Equal(t, "new", db["bob"][0].Label)
}

func TestBadgerStoreAddExampleRejectsDimensionMismatch(t *testing.T) {
	s := newTestBadgerStore(t, 3)
	ctx := context.Background()

	require.NoError(t, s.AddExample(ctx, "alice", []float64{1, 2, 3}, "hello"))

	// A mismatched append must be rejected, not persisted: once written
	// it would poison every subsequent Load.
	err := s.AddExample(ctx, "alice", []float64{1, 2}, "bye")
	require.Error(t, err)

	err = s.AddExample(ctx, "bob", nil, "bye")
	require.Error(t, err)

	db, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, db["alice"], 1)
	assert.Equal(t, "hello", db["alice"][0].Label)
}

func TestBadgerStoreAddExampleInfersDimension(t *testing.T) {
	// Dimension 0 accepts whatever the store already holds; the first
	// append pins it for every user.
	s := newTestBadgerStore(t, 0)
	ctx := context.Background()

	require.NoError(t, s.AddExample(ctx, "alice", []float64{1, 2}, "hello"))
	require.Error(t, s.AddExample(ctx, "alice", []float64{1, 2, 3}, "bye"))
	require.Error(t, s.AddExample(ctx, "bob", []float64{1}, "hello"))
	require.NoError(t, s.AddExample(ctx, "bob", []float64{3, 4}, "hello"))

	db, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, db["alice"], 1)
	assert.Len(t, db["bob"], 1)
}

func TestBadgerStoreSaveRejectsMixedDimensions(t *testing.T) {
	s := newTestBadgerStore(t, 0)

	err := s.Save(context.Background(), Database{
		"alice": {
			{Label: "hello", Features: []float64{1, 2}},
			{Label: "bye", Features: []float64{1, 2, 3}},
		},
	})
	assert.Error(t, err)
}

func TestBadgerStoreConcurrentAppends(t *testing.T) {
	s := newTestBadgerStore(t, 1)
	ctx := context.Background()

	const n = 20
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			errs <- s.AddExample(ctx, "alice", []float64{float64(i)}, fmt.Sprintf("label-%d", i))
		}(i)
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-errs)
	}

	examples, err := s.Examples(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, examples, n)
}
