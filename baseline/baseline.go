// Package baseline persists fingerprint records between audit runs.
// A baseline is built once from a trusted tree, saved, and later used
// as the reference side of a comparison.
package baseline

import (
	"sort"
	"sync"

	"github.com/assetharvest/grfkit/fingerprint"
)

// Store is a mutable collection of baseline records that also serves
// lookups during comparison.
type Store interface {
	fingerprint.Lookup

	// Replace swaps the full record set atomically.
	Replace(records []fingerprint.Record) error

	// Records returns every record sorted by path.
	Records() []fingerprint.Record

	// Len returns the number of records.
	Len() int
}

// MemoryStore is an in-memory Store. The zero value is ready to use.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]fingerprint.Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Get(path string) (fingerprint.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[fingerprint.NormalizePath(path)]
	return r, ok
}

func (s *MemoryStore) Replace(records []fingerprint.Record) error {
	m := make(map[string]fingerprint.Record, len(records))
	for _, r := range records {
		r.Path = fingerprint.NormalizePath(r.Path)
		m[r.Path] = r
	}
	s.mu.Lock()
	s.records = m
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Records() []fingerprint.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]fingerprint.Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
