// Package pack defines the storage contract a compiled pack satisfies
// and a BadgerDB-backed implementation of it. Grounded on the teacher's
// datalog/storage/store.go (Store/Iterator shape) and
// datalog/storage/badger_store.go (BadgerDB wiring), collapsed from the
// five-index EAVT scheme down to the single two-level
// `[predicate_name, encoded_args] -> blob` path spec.md §4.3/§4.4 needs.
package pack

import "bytes"

// keySep separates the predicate-name segment from the encoded-args
// segment inside a flat Badger key. 0x00 cannot appear in a predicate
// name (restricted to [a-z0-9_]+) so the split is unambiguous.
const keySep = 0x00

// Entry is one path/blob pair read back out of a pack.
type Entry struct {
	Predicate string
	PathArgs  string // encoded args path segment, see package encode
	Blob      []byte
}

// Store is the read/write contract a compiled pack exposes. Compile
// uses Set, SetMeta (and Close) to build a pack; the query engine uses
// List and Predicates against a pack opened read-only.
type Store interface {
	// Set writes one fact's encoded path/blob pair.
	Set(predicate, pathArgs string, blob []byte) error

	// Get looks up the blob for an exact (predicate, pathArgs) pair.
	// ok is false when no such key exists.
	Get(predicate, pathArgs string) (blob []byte, ok bool, err error)

	// List streams every entry whose predicate matches, in key order.
	// fn returning an error stops iteration and propagates the error.
	List(predicate string, fn func(Entry) error) error

	// Predicates returns the distinct predicate names present in the
	// pack along with the arity observed for each, sorted by name.
	Predicates() ([]PredicateInfo, error)

	// SetMeta/GetMeta store small out-of-band metadata (compile digests,
	// version stamps) under a namespace disjoint from fact data.
	SetMeta(key string, value []byte) error
	GetMeta(key string) (value []byte, ok bool, err error)

	Close() error
}

// PredicateInfo summarizes one predicate's shape inside a pack.
type PredicateInfo struct {
	Name  string
	Arity int
	Count int64
}

// encodeKey builds the flat on-disk key for a (predicate, pathArgs) pair.
func encodeKey(predicate, pathArgs string) []byte {
	key := make([]byte, 0, len(predicate)+1+len(pathArgs))
	key = append(key, predicate...)
	key = append(key, keySep)
	key = append(key, pathArgs...)
	return key
}

// predicatePrefix builds the key prefix that selects every entry for a
// given predicate.
func predicatePrefix(predicate string) []byte {
	prefix := make([]byte, 0, len(predicate)+1)
	prefix = append(prefix, predicate...)
	prefix = append(prefix, keySep)
	return prefix
}

// splitKey reverses encodeKey.
func splitKey(key []byte) (predicate, pathArgs string) {
	i := bytes.IndexByte(key, keySep)
	if i < 0 {
		return string(key), ""
	}
	return string(key[:i]), string(key[i+1:])
}

// metaPrefix namespaces metadata keys away from fact keys. A predicate
// name can never contain this prefix's leading byte sequence because
// 0x01 cannot appear in [a-z0-9_]+.
var metaPrefix = []byte{0x01, 'm', 'e', 't', 'a', keySep}

func encodeMetaKey(key string) []byte {
	out := make([]byte, 0, len(metaPrefix)+len(key))
	out = append(out, metaPrefix...)
	out = append(out, key...)
	return out
}
