// Package memstore implements a peer's in-memory key/value store (C2).
package memstore

import (
	"sort"
	"sync"

	"github.com/Snider/Fabric/internal/ferr"
)

// Store is a concurrent-safe key/value mapping scoped to a single peer.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// New returns an empty Store.
func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

// Set inserts or overwrites key (last-write-wins under this store's lock).
func (s *Store) Set(key string, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

// Get returns the value for key, or UNKNOWN_KEY if absent.
func (s *Store) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, ferr.UnknownKey(key)
	}
	return v, nil
}

// Has reports whether key is currently stored, used by the quota ledger to
// tell an overwrite from a fresh insert.
func (s *Store) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[key]
	return ok
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

// List returns all keys, sorted, for deterministic responses.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Count returns the number of stored keys, used by the quota ledger.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
