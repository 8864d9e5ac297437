// Package filestore implements a peer's local named blob store (C3): files
// the peer owns and serves directly, as opposed to files it merely stores
// on behalf of another peer (see internal/ownedstore).
package filestore

import (
	"sort"
	"sync"

	"github.com/Snider/Fabric/internal/ferr"
)

// Store is a concurrent-safe name -> bytes mapping.
type Store struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// New returns an empty Store.
func New() *Store {
	return &Store{files: make(map[string][]byte)}
}

// Put stores data under name, replacing any existing content.
func (s *Store) Put(name string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.files[name] = cp
}

// Get returns the bytes stored under name, or UNKNOWN_FILE if absent.
func (s *Store) Get(name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.files[name]
	if !ok {
		return nil, ferr.UnknownFile(name)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// Delete removes name. Deleting an absent file is not an error.
func (s *Store) Delete(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, name)
}

// List returns all stored filenames, sorted.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.files))
	for n := range s.files {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// TotalBytes returns the cumulative size of all stored files.
func (s *Store) TotalBytes() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total int64
	for _, data := range s.files {
		total += int64(len(data))
	}
	return total
}
