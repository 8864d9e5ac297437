// Package proctable implements the peer's process table (C5): pids,
// states, and the parent/child tree used by the scheduler to track one
// running task per process and to cascade termination.
package proctable

import (
	"sort"
	"sync"

	"github.com/Snider/Fabric/internal/ferr"
)

// State is a process's lifecycle state.
type State string

const (
	StateNew        State = "NEW"
	StateReady      State = "READY"
	StateRunning    State = "RUNNING"
	StateWaiting    State = "WAITING"
	StateTerminated State = "TERMINATED"
	StateZombie     State = "ZOMBIE"
)

// Process is one entry in the table.
type Process struct {
	PID      uint64
	Parent   uint64 // 0 if none
	HasGroup bool
	Group    uint64
	State    State
	TaskRef  string // the owning Task's task_id

	children map[uint64]struct{}
}

// snapshot is an immutable copy safe to hand to callers.
func (p *Process) snapshot() Process {
	cp := *p
	cp.children = nil
	return cp
}

// Table is the concurrent-safe process table for one peer.
type Table struct {
	mu      sync.Mutex
	nextPID uint64
	procs   map[uint64]*Process
}

// New returns an empty Table.
func New() *Table {
	return &Table{procs: make(map[uint64]*Process)}
}

// Create inserts a fresh process and returns its pid. parent/group of 0
// mean "none" (pid 0 is never issued).
func (t *Table) Create(taskRef string, parent uint64, group uint64, hasGroup bool) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if parent != 0 {
		p, ok := t.procs[parent]
		if !ok {
			return 0, ferr.UnknownPID(parent)
		}
		if p.State == StateTerminated {
			return 0, ferr.BadRequest("cannot create a child of a terminated process")
		}
	}

	t.nextPID++
	pid := t.nextPID
	t.procs[pid] = &Process{
		PID: pid, Parent: parent, Group: group, HasGroup: hasGroup,
		State: StateReady, TaskRef: taskRef, children: make(map[uint64]struct{}),
	}
	if parent != 0 {
		t.procs[parent].children[pid] = struct{}{}
	}
	return pid, nil
}

// SetState transitions pid to state.
func (t *Table) SetState(pid uint64, state State) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.procs[pid]
	if !ok {
		return ferr.UnknownPID(pid)
	}
	p.State = state
	return nil
}

// Get returns a snapshot of pid's record.
func (t *Table) Get(pid uint64) (Process, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.procs[pid]
	if !ok {
		return Process{}, ferr.UnknownPID(pid)
	}
	return p.snapshot(), nil
}

// Terminate performs post-order termination of pid's subtree: every
// descendant is marked TERMINATED before pid itself.
func (t *Table) Terminate(pid uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.procs[pid]; !ok {
		return ferr.UnknownPID(pid)
	}
	t.terminateLocked(pid)
	return nil
}

func (t *Table) terminateLocked(pid uint64) {
	p, ok := t.procs[pid]
	if !ok || p.State == StateTerminated {
		return
	}
	children := make([]uint64, 0, len(p.children))
	for c := range p.children {
		children = append(children, c)
	}
	sort.Slice(children, func(i, j int) bool { return children[i] < children[j] })
	for _, c := range children {
		t.terminateLocked(c)
	}
	p.State = StateTerminated
}

// TerminateGroup terminates every root process (no live parent, or parent
// outside the group) among pids carrying group. A process is a group root
// if its parent is 0 or its parent does not belong to the same group.
func (t *Table) TerminateGroup(group uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var roots []uint64
	for pid, p := range t.procs {
		if !p.HasGroup || p.Group != group {
			continue
		}
		if p.Parent == 0 {
			roots = append(roots, pid)
			continue
		}
		parent, ok := t.procs[p.Parent]
		if !ok || !parent.HasGroup || parent.Group != group {
			roots = append(roots, pid)
		}
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i] < roots[j] })
	for _, pid := range roots {
		t.terminateLocked(pid)
	}
	return nil
}

// Tree returns a snapshot of every process, suitable for PROCESS_TREE
// responses; callers reconstruct parent/child edges from Parent fields.
func (t *Table) Tree() []Process {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Process, 0, len(t.procs))
	for _, p := range t.procs {
		out = append(out, p.snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PID < out[j].PID })
	return out
}
