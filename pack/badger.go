package pack

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/jptmoore/beingdb/encode"
)

// BadgerStore implements Store on top of BadgerDB, opened either for
// compilation (read-write) or for serving (read-only).
type BadgerStore struct {
	db *badger.DB
}

// OpenOptions controls how a pack directory is opened.
type OpenOptions struct {
	ReadOnly bool
}

// Open opens (or creates) a pack directory as a BadgerStore. Options and
// tuning mirror the teacher's BadgerStore constructor, sized down for a
// read-mostly workload rather than a write-heavy one.
func Open(dir string, opts OpenOptions) (*BadgerStore, error) {
	bopts := badger.DefaultOptions(dir)
	bopts.Logger = nil
	bopts.ReadOnly = opts.ReadOnly
	bopts.MemTableSize = 64 << 20
	bopts.BlockCacheSize = 128 << 20
	bopts.IndexCacheSize = 64 << 20
	bopts.DetectConflicts = false
	bopts.ValueThreshold = 1 << 10

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("opening pack at %s: %w", dir, err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Set(predicate, pathArgs string, blob []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(encodeKey(predicate, pathArgs), blob)
	})
}

func (s *BadgerStore) Get(predicate, pathArgs string) (blob []byte, ok bool, err error) {
	err = s.db.View(func(txn *badger.Txn) error {
		item, gerr := txn.Get(encodeKey(predicate, pathArgs))
		if gerr == badger.ErrKeyNotFound {
			return nil
		}
		if gerr != nil {
			return gerr
		}
		ok = true
		return item.Value(func(val []byte) error {
			blob = append([]byte{}, val...)
			return nil
		})
	})
	return blob, ok, err
}

func (s *BadgerStore) List(predicate string, fn func(Entry) error) error {
	prefix := predicatePrefix(predicate)
	return s.db.View(func(txn *badger.Txn) error {
		iopts := badger.DefaultIteratorOptions
		iopts.PrefetchValues = true
		it := txn.NewIterator(iopts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			_, pathArgs := splitKey(item.KeyCopy(nil))
			var entry Entry
			entry.Predicate = predicate
			entry.PathArgs = pathArgs
			if err := item.Value(func(val []byte) error {
				entry.Blob = append([]byte{}, val...)
				return nil
			}); err != nil {
				return err
			}
			if err := fn(entry); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BadgerStore) Predicates() ([]PredicateInfo, error) {
	counts := make(map[string]int64)
	arities := make(map[string]int)

	err := s.db.View(func(txn *badger.Txn) error {
		iopts := badger.DefaultIteratorOptions
		iopts.PrefetchValues = false
		it := txn.NewIterator(iopts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().KeyCopy(nil)
			if len(key) > 0 && key[0] == metaPrefix[0] {
				continue
			}
			predicate, pathArgs := splitKey(key)
			counts[predicate]++
			if _, seen := arities[predicate]; !seen {
				arities[predicate] = len(encode.Decode(pathArgs, nil))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]PredicateInfo, 0, len(counts))
	for name, count := range counts {
		out = append(out, PredicateInfo{Name: name, Arity: arities[name], Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *BadgerStore) SetMeta(key string, value []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(encodeMetaKey(key), value)
	})
}

func (s *BadgerStore) GetMeta(key string) (value []byte, ok bool, err error) {
	err = s.db.View(func(txn *badger.Txn) error {
		item, gerr := txn.Get(encodeMetaKey(key))
		if gerr == badger.ErrKeyNotFound {
			return nil
		}
		if gerr != nil {
			return gerr
		}
		ok = true
		return item.Value(func(val []byte) error {
			value = append([]byte{}, val...)
			return nil
		})
	})
	return value, ok, err
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// compare orders two raw keys bytewise, the order the iterator walks
// them in. Nothing in the package calls it.
func compare(a, b []byte) int {
	return bytes.Compare(a, b)
}
