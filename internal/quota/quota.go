// Package quota implements the peer's admission-time quota ledger (C10):
// a sliding-window submission counter plus cumulative key and storage
// byte counters, checked against configured limits.
package quota

import (
	"sync"
	"time"

	"github.com/Snider/Fabric/internal/ferr"
)

// DefaultWindow is the sliding window duration used for the CPU submission
// count, per the spec's stated default.
const DefaultWindow = 3600 * time.Second

// Limits are the configured ceilings enforced at admission. A zero limit
// means unlimited for that dimension.
type Limits struct {
	MaxCPUTasks    int
	MaxMemoryKeys  int
	MaxStorageBytes int64
	Window         time.Duration
}

// DefaultLimits returns generous defaults suitable for a single peer
// with no configured quota.
func DefaultLimits() Limits {
	return Limits{Window: DefaultWindow}
}

// Ledger tracks a single peer's consumption against Limits.
type Ledger struct {
	mu     sync.Mutex
	limits Limits

	submissions []time.Time // sliding window of CPU submission timestamps

	memoryKeys   int
	storageBytes int64
}

// New returns a Ledger enforcing the given limits.
func New(limits Limits) *Ledger {
	if limits.Window <= 0 {
		limits.Window = DefaultWindow
	}
	return &Ledger{limits: limits}
}

// pruneLocked drops submission timestamps that have aged out of the window.
func (l *Ledger) pruneLocked(now time.Time) {
	cutoff := now.Add(-l.limits.Window)
	i := 0
	for ; i < len(l.submissions); i++ {
		if l.submissions[i].After(cutoff) {
			break
		}
	}
	l.submissions = l.submissions[i:]
}

// AdmitCPUTask checks and, if admitted, records one CPU task submission
// against the sliding window. Returns QUOTA_EXCEEDED if max_cpu_tasks
// submissions already occurred within the window.
func (l *Ledger) AdmitCPUTask(now time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.pruneLocked(now)
	if l.limits.MaxCPUTasks > 0 && len(l.submissions) >= l.limits.MaxCPUTasks {
		return ferr.QuotaExceeded("max_cpu_tasks")
	}
	l.submissions = append(l.submissions, now)
	return nil
}

// AdmitKey checks whether adding delta keys would exceed max_memory_keys.
// On success the counter is updated; delta may be negative on deletion.
func (l *Ledger) AdmitKey(delta int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.memoryKeys + delta
	if delta > 0 && l.limits.MaxMemoryKeys > 0 && next > l.limits.MaxMemoryKeys {
		return ferr.QuotaExceeded("max_memory_keys")
	}
	if next < 0 {
		next = 0
	}
	l.memoryKeys = next
	return nil
}

// AdmitStorageBytes checks whether adding delta bytes would exceed
// max_storage_bytes. On success the counter is updated; delta may be
// negative on deletion.
func (l *Ledger) AdmitStorageBytes(delta int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.storageBytes + delta
	if delta > 0 && l.limits.MaxStorageBytes > 0 && next > l.limits.MaxStorageBytes {
		return ferr.QuotaExceeded("max_storage_bytes")
	}
	if next < 0 {
		next = 0
	}
	l.storageBytes = next
	return nil
}

// Snapshot is a point-in-time view of ledger consumption, for status
// reporting.
type Snapshot struct {
	CPUTasksInWindow int
	MemoryKeys       int
	StorageBytes     int64
	Limits           Limits
}

// Snapshot reports current consumption, pruning the window as of now.
func (l *Ledger) Snapshot(now time.Time) Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pruneLocked(now)
	return Snapshot{
		CPUTasksInWindow: len(l.submissions),
		MemoryKeys:       l.memoryKeys,
		StorageBytes:     l.storageBytes,
		Limits:           l.limits,
	}
}
