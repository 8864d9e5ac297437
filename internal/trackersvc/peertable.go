package trackersvc

import (
	"sort"
	"sync"
	"time"

	"github.com/Snider/Fabric/internal/ferr"
)

// DefaultPeerTimeout is the default staleness threshold for PeerRecord
// eviction and REQUEST_BEST_PEER eligibility.
const DefaultPeerTimeout = 30 * time.Second

// PeerRecord is the tracker's view of one peer.
type PeerRecord struct {
	Identity       string
	Address        string
	Load           float64
	LastHeartbeat  time.Time
	RegisteredAt   time.Time
}

// PeerTable is the tracker's peer directory, keyed by stable identity.
type PeerTable struct {
	mu      sync.RWMutex
	peers   map[string]*PeerRecord
	timeout time.Duration
}

// NewPeerTable returns an empty PeerTable with the given staleness timeout
// (0 uses DefaultPeerTimeout).
func NewPeerTable(timeout time.Duration) *PeerTable {
	if timeout <= 0 {
		timeout = DefaultPeerTimeout
	}
	return &PeerTable{peers: make(map[string]*PeerRecord), timeout: timeout}
}

// Register upserts a PeerRecord, returning the peer's previous address (if
// any) so callers can detect an address change.
func (t *PeerTable) Register(identity, address string, load float64, now time.Time) (previousAddress string, changed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, existed := t.peers[identity]
	if !existed {
		t.peers[identity] = &PeerRecord{
			Identity: identity, Address: address, Load: load,
			LastHeartbeat: now, RegisteredAt: now,
		}
		return "", true
	}
	previousAddress = p.Address
	changed = p.Address != address
	p.Address = address
	p.Load = load
	p.LastHeartbeat = now
	return previousAddress, changed
}

// Unregister removes a peer outright.
func (t *PeerTable) Unregister(identity string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.peers, identity)
}

// UpdateLoad sets a known peer's load and heartbeat timestamp.
func (t *PeerTable) UpdateLoad(identity string, load float64, now time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.peers[identity]
	if !ok {
		return ferr.BadRequest("unknown peer identity: " + identity)
	}
	p.Load = load
	p.LastHeartbeat = now
	return nil
}

// BestPeer returns the live peer (heartbeat age < timeout) with minimum
// load, optionally excluding one identity. Ties break by earliest
// registration.
func (t *PeerTable) BestPeer(excludeIdentity string, now time.Time) (*PeerRecord, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var best *PeerRecord
	for id, p := range t.peers {
		if id == excludeIdentity {
			continue
		}
		if now.Sub(p.LastHeartbeat) >= t.timeout {
			continue
		}
		if best == nil ||
			p.Load < best.Load ||
			(p.Load == best.Load && p.RegisteredAt.Before(best.RegisteredAt)) {
			best = p
		}
	}
	if best == nil {
		return nil, false
	}
	cp := *best
	return &cp, true
}

// EvictStale removes every PeerRecord whose heartbeat has aged past the
// timeout, returning their identities for FileAdvertisement cleanup.
func (t *PeerTable) EvictStale(now time.Time) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var evicted []string
	for id, p := range t.peers {
		if now.Sub(p.LastHeartbeat) >= t.timeout {
			evicted = append(evicted, id)
			delete(t.peers, id)
		}
	}
	sort.Strings(evicted)
	return evicted
}

// Get returns a snapshot of one peer record.
func (t *PeerTable) Get(identity string) (PeerRecord, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.peers[identity]
	if !ok {
		return PeerRecord{}, false
	}
	return *p, true
}

// Count returns the number of registered peers.
func (t *PeerTable) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.peers)
}
