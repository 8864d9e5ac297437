// Package arbiter implements the peer's resource arbiter (C6): banker's
// algorithm safety checking on admission, plus wait-for-graph cycle
// detection for deadlock reporting. No analog of this subsystem exists in
// the corpus this module was grown from; it follows the same
// mutex-guarded-struct-with-snapshot-methods idiom used throughout the
// rest of the peer's subsystems.
package arbiter

import (
	"sort"
	"sync"

	"github.com/Snider/Fabric/internal/ferr"
)

type resource struct {
	kind  string
	total int64
}

type process struct {
	maxNeed   map[string]int64
	allocated map[string]int64
	// pendingOn is set while a REQUEST is waiting on units of a resource;
	// used to build the wait-for graph.
	pendingOn map[string]struct{} // resource names this process is waiting on
}

// Arbiter tracks resources, per-process max-need/allocation, and performs
// the safety check required before granting any REQUEST.
type Arbiter struct {
	mu        sync.Mutex
	resources map[string]*resource
	processes map[uint64]*process
}

// New returns an Arbiter with no registered resources or processes.
func New() *Arbiter {
	return &Arbiter{
		resources: make(map[string]*resource),
		processes: make(map[uint64]*process),
	}
}

// RegisterResource declares a resource with totalUnits available.
func (a *Arbiter) RegisterResource(name, kind string, totalUnits int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resources[name] = &resource{kind: kind, total: totalUnits}
}

// RegisterProcess declares pid's maximum need per resource name.
func (a *Arbiter) RegisterProcess(pid uint64, maxNeed map[string]int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	need := make(map[string]int64, len(maxNeed))
	for k, v := range maxNeed {
		need[k] = v
	}
	a.processes[pid] = &process{
		maxNeed:   need,
		allocated: make(map[string]int64),
		pendingOn: make(map[string]struct{}),
	}
}

func (a *Arbiter) availableLocked(name string) int64 {
	r := a.resources[name]
	var allocated int64
	for _, p := range a.processes {
		allocated += p.allocated[name]
	}
	return r.total - allocated
}

// Request asks for units more of resource name on behalf of pid.
// Zero-unit requests are no-ops. Returns EXCEEDS_NEED, EXCEEDS_AVAILABLE,
// or UNSAFE on rejection; on success the allocation has already been made.
func (a *Arbiter) Request(pid uint64, name string, units int64) error {
	if units == 0 {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.resources[name]; !ok {
		return ferr.UnknownResource(name)
	}
	p, ok := a.processes[pid]
	if !ok {
		return ferr.UnknownPID(pid)
	}

	if p.allocated[name]+units > p.maxNeed[name] {
		return ferr.ExceedsNeed()
	}
	if units > a.availableLocked(name) {
		return ferr.ExceedsAvailable()
	}

	// Tentatively grant, then verify safety.
	p.allocated[name] += units
	if !a.isSafeLocked() {
		p.allocated[name] -= units
		return ferr.Unsafe()
	}
	delete(p.pendingOn, name)
	return nil
}

// Release returns units of resource name from pid's allocation. No safety
// check is required for release.
func (a *Arbiter) Release(pid uint64, name string, units int64) error {
	if units == 0 {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.resources[name]; !ok {
		return ferr.UnknownResource(name)
	}
	p, ok := a.processes[pid]
	if !ok {
		return ferr.UnknownPID(pid)
	}
	if units > p.allocated[name] {
		units = p.allocated[name]
	}
	p.allocated[name] -= units
	return nil
}

// isSafeLocked implements the classic banker's safety algorithm: there
// must exist an ordering of all registered processes such that each can,
// in turn, acquire its remaining need from the then-available pool.
func (a *Arbiter) isSafeLocked() bool {
	available := make(map[string]int64, len(a.resources))
	for name, r := range a.resources {
		available[name] = r.total
	}
	for _, p := range a.processes {
		for name, units := range p.allocated {
			available[name] -= units
		}
	}

	finished := make(map[uint64]bool, len(a.processes))
	remaining := len(a.processes)

	for remaining > 0 {
		progressed := false
		for pid, p := range a.processes {
			if finished[pid] {
				continue
			}
			if !canFinish(p, available) {
				continue
			}
			for name, units := range p.allocated {
				available[name] += units
			}
			finished[pid] = true
			remaining--
			progressed = true
		}
		if !progressed {
			return false
		}
	}
	return true
}

func canFinish(p *process, available map[string]int64) bool {
	for name, maxNeed := range p.maxNeed {
		need := maxNeed - p.allocated[name]
		if need > available[name] {
			return false
		}
	}
	return true
}

// MarkWaiting records that pid's next request is blocked on resource name
// having insufficient available units — used only to build the wait-for
// graph for CHECK_DEADLOCK. Callers mark/clear this around a Request call
// that returned EXCEEDS_AVAILABLE.
func (a *Arbiter) MarkWaiting(pid uint64, name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if p, ok := a.processes[pid]; ok {
		p.pendingOn[name] = struct{}{}
	}
}

// ClearWaiting clears a previously recorded wait.
func (a *Arbiter) ClearWaiting(pid uint64, name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if p, ok := a.processes[pid]; ok {
		delete(p.pendingOn, name)
	}
}

// CheckDeadlock builds the wait-for graph (edge pid_a -> pid_b if pid_a is
// waiting on a resource that has no free units and of which pid_b holds at
// least one unit) and returns the pids participating in any cycle, via
// depth-first cycle detection. Result is sorted and deduplicated.
func (a *Arbiter) CheckDeadlock() []uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	edges := make(map[uint64]map[uint64]struct{})
	for pid := range a.processes {
		edges[pid] = make(map[uint64]struct{})
	}
	for pidA, p := range a.processes {
		for name := range p.pendingOn {
			if a.availableLocked(name) > 0 {
				continue
			}
			for pidB, other := range a.processes {
				if pidB == pidA {
					continue
				}
				if other.allocated[name] > 0 {
					edges[pidA][pidB] = struct{}{}
				}
			}
		}
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[uint64]int)
	inCycle := make(map[uint64]bool)

	var stack []uint64
	var visit func(pid uint64)
	visit = func(pid uint64) {
		color[pid] = gray
		stack = append(stack, pid)
		neighbors := make([]uint64, 0, len(edges[pid]))
		for n := range edges[pid] {
			neighbors = append(neighbors, n)
		}
		sort.Slice(neighbors, func(i, j int) bool { return neighbors[i] < neighbors[j] })
		for _, n := range neighbors {
			switch color[n] {
			case white:
				visit(n)
			case gray:
				// Found a cycle: everything on the stack from n's first
				// occurrence onward is a cycle member.
				start := -1
				for i, s := range stack {
					if s == n {
						start = i
						break
					}
				}
				if start >= 0 {
					for _, s := range stack[start:] {
						inCycle[s] = true
					}
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[pid] = black
	}

	pids := make([]uint64, 0, len(a.processes))
	for pid := range a.processes {
		pids = append(pids, pid)
	}
	sort.Slice(pids, func(i, j int) bool { return pids[i] < pids[j] })
	for _, pid := range pids {
		if color[pid] == white {
			visit(pid)
		}
	}

	out := make([]uint64, 0, len(inCycle))
	for pid := range inCycle {
		out = append(out, pid)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
