package kv

import (
	"iter"

	"github.com/cobalt-web/cobalt/internal/strutil"
)

type Pair struct {
	Key, Value string
}

// Storage is an associative structure for storing (string, string) pairs.
// It acts as a map but uses linear search instead, which proves to be more
// efficient on a relatively low amount of entries, which headers usually
// are. Lookup is case-insensitive, insertion order is preserved.
type Storage struct {
	pairs []Pair
}

func New() *Storage {
	return new(Storage)
}

// NewPrealloc returns an instance of Storage with pre-allocated underlying
// storage.
func NewPrealloc(n int) *Storage {
	return &Storage{
		pairs: make([]Pair, 0, n),
	}
}

// Add adds a new pair of key and value.
func (s *Storage) Add(key, value string) *Storage {
	s.pairs = append(s.pairs, Pair{
		Key:   key,
		Value: value,
	})
	return s
}

// Set replaces all the values of the key by the single passed one.
func (s *Storage) Set(key, value string) *Storage {
	for i, pair := range s.pairs {
		if strutil.CmpFold(key, pair.Key) {
			s.pairs[i].Value = value
			s.pairs = deleteFollowing(s.pairs, i+1, key)
			return s
		}
	}

	return s.Add(key, value)
}

// Value returns the first value corresponding to the key, otherwise an
// empty string.
func (s *Storage) Value(key string) string {
	value, _ := s.Get(key)
	return value
}

// Get returns a value and a bool indicating whether the key was found.
func (s *Storage) Get(key string) (value string, found bool) {
	for _, pair := range s.pairs {
		if strutil.CmpFold(key, pair.Key) {
			return pair.Value, true
		}
	}

	return "", false
}

// Values returns an iterator over all the values of the key.
func (s *Storage) Values(key string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, pair := range s.pairs {
			if strutil.CmpFold(key, pair.Key) {
				if !yield(pair.Value) {
					break
				}
			}
		}
	}
}

// Pairs returns an iterator over all the stored pairs in insertion order.
func (s *Storage) Pairs() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, pair := range s.pairs {
			if !yield(pair.Key, pair.Value) {
				break
			}
		}
	}
}

// Has indicates whether there's an entry of the key.
func (s *Storage) Has(key string) bool {
	_, found := s.Get(key)
	return found
}

// Len returns a number of stored pairs.
func (s *Storage) Len() int {
	return len(s.pairs)
}

func (s *Storage) Empty() bool {
	return s.Len() == 0
}

// Clone creates a deep copy, which can be stored somewhere safely at cost
// of an allocation.
func (s *Storage) Clone() *Storage {
	pairs := make([]Pair, len(s.pairs))
	copy(pairs, s.pairs)
	return &Storage{pairs: pairs}
}

// Expose exposes the underlying pairs slice.
func (s *Storage) Expose() []Pair {
	return s.pairs
}

// Clear all the entries. The allocated space is retained.
func (s *Storage) Clear() *Storage {
	s.pairs = s.pairs[:0]
	return s
}

func deleteFollowing(pairs []Pair, from int, key string) []Pair {
	for i := from; i < len(pairs); {
		if strutil.CmpFold(key, pairs[i].Key) {
			pairs = append(pairs[:i], pairs[i+1:]...)
			continue
		}

		i++
	}

	return pairs
}
