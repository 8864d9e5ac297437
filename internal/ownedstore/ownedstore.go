// Package ownedstore implements a storage peer's blob store for files held
// on behalf of another peer (C4) — as opposed to internal/filestore, which
// holds files the peer owns itself. Entries are keyed by the owner's
// stable identity (a short prefix plus the full id) and the filename, so
// two owners can store a file of the same name without colliding. The
// owner's address is recorded but is not part of the key.
package ownedstore

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Snider/Fabric/internal/ferr"
)

// Key identifies a stored blob by owner and filename. Lookups are keyed by
// OwnerID, not OwnerAddress: identity is the stable part of an owner (§3),
// and an owner's address can change across restarts (§9 migration), so the
// address must never be load-bearing for locating an already-stored blob.
type Key struct {
	OwnerAddress string // host:port at upload time; informational only
	OwnerID      string // full stable identity — the actual lookup key
	Filename     string
}

// subdir is the storage naming scheme: a short prefix of the owner's
// identity, the full identity, and the filename. OwnerAddress deliberately does not
// participate so a GET_OWNED_FILE after the owner has migrated addresses
// still resolves to the same stored blob.
func (k Key) subdir() string {
	prefix := k.OwnerID
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return fmt.Sprintf("%s/%s/%s", prefix, k.OwnerID, k.Filename)
}

type entry struct {
	key       Key
	ciphertext []byte
}

// Store is a concurrent-safe owned-blob store.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// New returns an empty Store.
func New() *Store {
	return &Store{entries: make(map[string]entry)}
}

// Put stores ciphertext under k, replacing any previous content for the
// same owner+filename.
func (s *Store) Put(k Key, ciphertext []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(ciphertext))
	copy(cp, ciphertext)
	s.entries[k.subdir()] = entry{key: k, ciphertext: cp}
}

// Get returns the stored ciphertext for k, or UNKNOWN_FILE if absent.
func (s *Store) Get(k Key) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[k.subdir()]
	if !ok {
		return nil, ferr.UnknownFile(k.Filename)
	}
	cp := make([]byte, len(e.ciphertext))
	copy(cp, e.ciphertext)
	return cp, nil
}

// Delete removes the entry for k. Deleting an absent entry is not an error.
func (s *Store) Delete(k Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, k.subdir())
}

// Has reports whether a blob is stored for k.
func (s *Store) Has(k Key) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[k.subdir()]
	return ok
}

// List returns every key currently held, sorted by owner then filename.
func (s *Store) List() []Key {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]Key, 0, len(s.entries))
	for _, e := range s.entries {
		keys = append(keys, e.key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].OwnerID != keys[j].OwnerID {
			return keys[i].OwnerID < keys[j].OwnerID
		}
		return keys[i].Filename < keys[j].Filename
	})
	return keys
}
