package fabcache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultTTL and DefaultCapacity match the spec's stated defaults.
const (
	DefaultTTL      = 3600 * time.Second
	DefaultCapacity = 100
)

// Entry is a cached successful result plus its insertion time. Result
// holds the already-JSON-encoded response payload, kept opaque here so
// the cache has no dependency on the task's result type.
type Entry struct {
	Fingerprint Fingerprint
	Result      []byte
	CreatedAt   time.Time
}

// Cache is a TTL + LRU cache of successful task results, keyed by
// Fingerprint. Only successful results are ever stored (§4.9): failures
// and timeouts are never cached.
type Cache struct {
	mu    sync.Mutex
	ttl   time.Duration
	lru   *lru.Cache[Fingerprint, Entry]
	hits  int64
	misses int64
}

// New returns a Cache with the given capacity and TTL (zero values fall
// back to the spec defaults).
func New(capacity int, ttl time.Duration) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	l, _ := lru.New[Fingerprint, Entry](capacity) // capacity > 0, never errors
	return &Cache{ttl: ttl, lru: l}
}

// Get returns the cached result for fp if present and not expired. Reading
// an expired entry evicts it and counts as a miss.
func (c *Cache) Get(fp Fingerprint) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lru.Get(fp)
	if !ok {
		c.misses++
		return nil, false
	}
	if time.Since(e.CreatedAt) > c.ttl {
		c.lru.Remove(fp)
		c.misses++
		return nil, false
	}
	c.hits++
	return e.Result, true
}

// Put stores a successful result for fp, possibly evicting the LRU entry.
func (c *Cache) Put(fp Fingerprint, result []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(fp, Entry{Fingerprint: fp, Result: result, CreatedAt: time.Now()})
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits    int64
	Misses  int64
	Entries int
}

// Snapshot returns the current cache statistics.
func (c *Cache) Snapshot() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Hits: c.hits, Misses: c.misses, Entries: c.lru.Len()}
}
