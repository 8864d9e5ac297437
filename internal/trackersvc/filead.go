package trackersvc

import (
	"sort"
	"sync"
)

// FileAdTable maps filename to the set of peer identities currently
// advertising that they hold it for public discovery.
type FileAdTable struct {
	mu        sync.RWMutex
	advertisers map[string]map[string]struct{}
}

// NewFileAdTable returns an empty FileAdTable.
func NewFileAdTable() *FileAdTable {
	return &FileAdTable{advertisers: make(map[string]map[string]struct{})}
}

// Register records identity as advertising filename.
func (f *FileAdTable) Register(filename, identity string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	set, ok := f.advertisers[filename]
	if !ok {
		set = make(map[string]struct{})
		f.advertisers[filename] = set
	}
	set[identity] = struct{}{}
}

// Unregister removes identity from filename's advertiser set.
func (f *FileAdTable) Unregister(filename, identity string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	set, ok := f.advertisers[filename]
	if !ok {
		return
	}
	delete(set, identity)
	if len(set) == 0 {
		delete(f.advertisers, filename)
	}
}

// RemovePeer drops identity from every file's advertiser set (used by the
// janitor on peer eviction).
func (f *FileAdTable) RemovePeer(identity string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for filename, set := range f.advertisers {
		delete(set, identity)
		if len(set) == 0 {
			delete(f.advertisers, filename)
		}
	}
}

// Find returns the sorted identities advertising filename.
func (f *FileAdTable) Find(filename string) []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	set, ok := f.advertisers[filename]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
