// Package allocator implements the peer's contiguous-block memory
// allocator (C7): a virtual arena carved into owner-tagged blocks under a
// selectable placement discipline, with eager coalescing on deallocation.
package allocator

import (
	"sort"
	"sync"

	"github.com/Snider/Fabric/internal/ferr"
)

// Discipline selects how ALLOCATE scans the free list.
type Discipline int

const (
	FirstFit Discipline = iota
	BestFit
	WorstFit
	NextFit
)

// DefaultArenaBytes is the default total arena size (1 MiB).
const DefaultArenaBytes = 1 << 20

const noOwner uint64 = 0

type block struct {
	offset int64
	size   int64
	owner  uint64 // 0 means free
}

// Allocator manages one arena of totalBytes under the given discipline.
type Allocator struct {
	mu         sync.Mutex
	discipline Discipline
	total      int64
	blocks     []*block // kept sorted by offset
	nextFitIdx int
}

// New returns an Allocator over a fresh arena of totalBytes, all free.
func New(totalBytes int64, discipline Discipline) *Allocator {
	if totalBytes <= 0 {
		totalBytes = DefaultArenaBytes
	}
	return &Allocator{
		discipline: discipline,
		total:      totalBytes,
		blocks:     []*block{{offset: 0, size: totalBytes, owner: noOwner}},
	}
}

// Allocate reserves size bytes for pid and returns the starting offset.
// Returns OUT_OF_MEMORY if no free block is large enough.
func (a *Allocator) Allocate(pid uint64, size int64) (int64, error) {
	if size <= 0 {
		return 0, ferr.BadRequest("allocation size must be positive")
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	idx := a.pickLocked(size)
	if idx < 0 {
		return 0, ferr.OutOfMemory()
	}

	b := a.blocks[idx]
	offset := b.offset
	if b.size == size {
		b.owner = pid
	} else {
		a.blocks = append(a.blocks, nil)
		copy(a.blocks[idx+2:], a.blocks[idx+1:])
		a.blocks[idx+1] = &block{offset: b.offset + size, size: b.size - size, owner: noOwner}
		b.size = size
		b.owner = pid
	}
	a.nextFitIdx = idx
	return offset, nil
}

func (a *Allocator) pickLocked(size int64) int {
	switch a.discipline {
	case BestFit:
		best := -1
		for i, b := range a.blocks {
			if b.owner == noOwner && b.size >= size {
				if best == -1 || b.size < a.blocks[best].size {
					best = i
				}
			}
		}
		return best
	case WorstFit:
		worst := -1
		for i, b := range a.blocks {
			if b.owner == noOwner && b.size >= size {
				if worst == -1 || b.size > a.blocks[worst].size {
					worst = i
				}
			}
		}
		return worst
	case NextFit:
		n := len(a.blocks)
		for i := 0; i < n; i++ {
			idx := (a.nextFitIdx + i) % n
			if a.blocks[idx].owner == noOwner && a.blocks[idx].size >= size {
				return idx
			}
		}
		return -1
	default: // FirstFit
		for i, b := range a.blocks {
			if b.owner == noOwner && b.size >= size {
				return i
			}
		}
		return -1
	}
}

// Deallocate releases every block owned by pid and coalesces adjacent
// free blocks.
func (a *Allocator) Deallocate(pid uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, b := range a.blocks {
		if b.owner == pid {
			b.owner = noOwner
		}
	}
	a.coalesceLocked()
}

func (a *Allocator) coalesceLocked() {
	sort.Slice(a.blocks, func(i, j int) bool { return a.blocks[i].offset < a.blocks[j].offset })
	merged := a.blocks[:0:0]
	for _, b := range a.blocks {
		if n := len(merged); n > 0 && merged[n-1].owner == noOwner && b.owner == noOwner {
			merged[n-1].size += b.size
			continue
		}
		merged = append(merged, b)
	}
	a.blocks = merged
	a.nextFitIdx = 0
}

// FragmentationReport is returned by FRAG_INFO.
type FragmentationReport struct {
	FreeBytes          int64
	LargestFreeBlock   int64
	FragmentedPercent  float64 // percent of free bytes not in the largest free block
}

// Fragmentation reports the current fragmentation state of the arena.
func (a *Allocator) Fragmentation() FragmentationReport {
	a.mu.Lock()
	defer a.mu.Unlock()

	var free, largest int64
	for _, b := range a.blocks {
		if b.owner == noOwner {
			free += b.size
			if b.size > largest {
				largest = b.size
			}
		}
	}
	report := FragmentationReport{FreeBytes: free, LargestFreeBlock: largest}
	if free > 0 {
		report.FragmentedPercent = float64(free-largest) / float64(free) * 100
	}
	return report
}
