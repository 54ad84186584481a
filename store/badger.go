package store

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/voxkit/phraseprint/logging"
)

// Key layout:
//
//	ex:<user>:<seq>  one example per key, seq is 8 bytes big-endian
//	seq:<user>       next sequence number for the user
//
// Big-endian sequence numbers make badger's key order equal insertion
// order, which the classifier's tie-breaking relies on.
const (
	examplePrefix  = "ex:"
	sequencePrefix = "seq:"
)

// BadgerStore persists examples in BadgerDB, one key per example.
// Appends run inside a single transaction, so concurrent writers cannot
// lose each other's updates the way whole-file writers can.
type BadgerStore struct {
	db        *badger.DB
	dimension int
	logger    logging.Logger
}

// BadgerOptions configures the BadgerDB store
type BadgerOptions struct {
	// Dir is the directory for BadgerDB data files. Required unless
	// InMemory is set.
	Dir string

	// InMemory runs BadgerDB without disk persistence. Useful for
	// testing with the real engine.
	InMemory bool

	// Dimension is the expected feature dimension; 0 accepts whatever
	// consistent dimension the store already holds.
	Dimension int
}

// NewBadgerStore opens a BadgerDB-backed store
func NewBadgerStore(opts BadgerOptions) (*BadgerStore, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("store: BadgerOptions.Dir is required for on-disk mode")
	}

	dbOpts := badger.DefaultOptions(opts.Dir).WithLogger(nil)
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("store: open badger at %s: %w", opts.Dir, err)
	}

	return &BadgerStore{
		db:        db,
		dimension: opts.Dimension,
		logger:    logging.WithFields(logging.Fields{"component": "badger_store", "dir": opts.Dir}),
	}, nil
}

func exampleKey(userID string, seq uint64) []byte {
	key := make([]byte, 0, len(examplePrefix)+len(userID)+9)
	key = append(key, examplePrefix...)
	key = append(key, userID...)
	key = append(key, ':')
	return binary.BigEndian.AppendUint64(key, seq)
}

func sequenceKey(userID string) []byte {
	return []byte(sequencePrefix + userID)
}

// AddExample appends an example for the user inside one transaction:
// the dimension check, the sequence counter read, the example write,
// and the counter bump commit together or not at all. A mismatched
// embedding dimension is rejected rather than persisted, since it
// would make every subsequent Load fail.
func (s *BadgerStore) AddExample(_ context.Context, userID string, features []float64, label string) error {
	if len(features) == 0 {
		return fmt.Errorf("store: cannot add example with no features")
	}

	value, err := json.Marshal(Example{Label: label, Features: features})
	if err != nil {
		return fmt.Errorf("store: marshal example: %w", err)
	}

	var total uint64
	for {
		err = s.db.Update(func(txn *badger.Txn) error {
			want := s.dimension
			if want == 0 {
				var err error
				if want, err = storedDimension(txn); err != nil {
					return err
				}
			}
			if want > 0 && len(features) != want {
				return fmt.Errorf("store: example dimension %d does not match database dimension %d", len(features), want)
			}

			seq, err := nextSequence(txn, userID)
			if err != nil {
				return err
			}

			if err := txn.Set(exampleKey(userID, seq), value); err != nil {
				return err
			}

			total = seq + 1
			return txn.Set(sequenceKey(userID), binary.BigEndian.AppendUint64(nil, seq+1))
		})
		// Writers racing on the same user's sequence counter conflict
		// under badger's SSI; retrying replays the read-bump-write.
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("store: add example for user %q: %w", userID, err)
	}

	s.logger.Info("added example", logging.Fields{
		"user_id": userID,
		"label":   label,
		"total":   total,
	})

	return nil
}

func nextSequence(txn *badger.Txn, userID string) (uint64, error) {
	item, err := txn.Get(sequenceKey(userID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var seq uint64
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return fmt.Errorf("%w: sequence counter for user %q has %d bytes", ErrCorrupt, userID, len(val))
		}
		seq = binary.BigEndian.Uint64(val)
		return nil
	})
	return seq, err
}

// storedDimension returns the feature dimension already present in the
// store, or 0 when no example has been written yet
func storedDimension(txn *badger.Txn) (int, error) {
	prefix := []byte(examplePrefix)

	iterOpts := badger.DefaultIteratorOptions
	iterOpts.Prefix = prefix
	iterOpts.PrefetchValues = false
	it := txn.NewIterator(iterOpts)
	defer it.Close()

	it.Seek(prefix)
	if !it.ValidForPrefix(prefix) {
		return 0, nil
	}

	var dim int
	err := it.Item().Value(func(val []byte) error {
		var ex Example
		if err := json.Unmarshal(val, &ex); err != nil {
			return fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		dim = len(ex.Features)
		return nil
	})
	return dim, err
}

// Examples returns the named user's stored examples in insertion order
func (s *BadgerStore) Examples(_ context.Context, userID string) ([]Example, error) {
	prefix := []byte(examplePrefix + userID + ":")

	var examples []Example
	err := s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var ex Example
			err := it.Item().Value(func(val []byte) error {
				if err := json.Unmarshal(val, &ex); err != nil {
					return fmt.Errorf("%w: user %q: %v", ErrCorrupt, userID, err)
				}
				return nil
			})
			if err != nil {
				return err
			}
			examples = append(examples, ex)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return examples, nil
}

// Load reconstructs the full database by scanning all example keys
func (s *BadgerStore) Load(_ context.Context) (Database, error) {
	db := Database{}
	prefix := []byte(examplePrefix)

	err := s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().Key()
			userID, ok := userFromKey(key)
			if !ok {
				return fmt.Errorf("%w: malformed key %q", ErrCorrupt, key)
			}

			var ex Example
			err := it.Item().Value(func(val []byte) error {
				if err := json.Unmarshal(val, &ex); err != nil {
					return fmt.Errorf("%w: user %q: %v", ErrCorrupt, userID, err)
				}
				return nil
			})
			if err != nil {
				return err
			}
			db[userID] = append(db[userID], ex)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := validateDimensions(db, s.dimension); err != nil {
		return nil, err
	}

	return db, nil
}

// userFromKey extracts the user id from an example key. The trailing
// 8 bytes are the sequence number, preceded by a ':' separator.
func userFromKey(key []byte) (string, bool) {
	if !bytes.HasPrefix(key, []byte(examplePrefix)) || len(key) < len(examplePrefix)+9 {
		return "", false
	}
	rest := key[len(examplePrefix) : len(key)-8]
	if rest[len(rest)-1] != ':' {
		return "", false
	}
	return string(rest[:len(rest)-1]), true
}

// Save replaces the full store contents with the given database.
// Existing keys are dropped first; user sequences restart at zero in
// insertion order.
func (s *BadgerStore) Save(ctx context.Context, db Database) error {
	if err := validateDimensions(db, s.dimension); err != nil {
		return err
	}

	if err := s.db.DropPrefix([]byte(examplePrefix), []byte(sequencePrefix)); err != nil {
		return fmt.Errorf("store: drop existing keys: %w", err)
	}

	for userID, examples := range db {
		err := s.db.Update(func(txn *badger.Txn) error {
			for i, ex := range examples {
				value, err := json.Marshal(ex)
				if err != nil {
					return fmt.Errorf("store: marshal example: %w", err)
				}
				if err := txn.Set(exampleKey(userID, uint64(i)), value); err != nil {
					return err
				}
			}
			return txn.Set(sequenceKey(userID), binary.BigEndian.AppendUint64(nil, uint64(len(examples))))
		})
		if err != nil {
			return fmt.Errorf("store: save user %q: %w", userID, err)
		}
	}

	return nil
}

// Close closes the underlying BadgerDB
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
