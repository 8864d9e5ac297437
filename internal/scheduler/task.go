// Package scheduler implements the peer's task scheduler (C11): one of
// four dispatch disciplines (FCFS, SJF, Priority, Round-Robin) driving a
// single non-preemptive dispatch worker.
package scheduler

import (
	"context"
	"time"
)

// Status is a task's lifecycle state.
type Status string

const (
	StatusQueued    Status = "QUEUED"
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
	StatusTimedOut  Status = "TIMED_OUT"
)

// Executor runs one task's user callable to completion or ctx cancellation.
type Executor func(ctx context.Context, t *Task) (result []byte, err error)

// Task is one scheduled unit of work. Fields mirror the spec's task record;
// once Status leaves QUEUED, Cancel is a no-op (enforced by the scheduler,
// not by Task itself).
type Task struct {
	ID                string
	Priority          int // higher runs first
	EstimatedRuntime  time.Duration
	Quantum           time.Duration // Round-Robin accounting only; never preempts
	Timeout           time.Duration
	MaxRetries        int
	RetriesLeft       int
	EnqueuedAt        time.Time // monotonic-clock ordering key
	Run               Executor

	seq uint64 // tie-break order assigned at enqueue

	Status   Status
	Result   []byte
	Err      error
	Started  time.Time
	Finished time.Time
	cancelled bool
	doneCh    chan struct{}
}

// Done returns a channel closed once the task reaches a terminal state.
// Callers that need a synchronous result (the wire protocol's one
// request, one response per connection) submit the task and then
// receive from Done before reading Status/Result/Err.
func (t *Task) Done() <-chan struct{} { return t.doneCh }

// Waited returns how long the task sat in the queue before dispatch.
func (t *Task) Waited() time.Duration {
	if t.Started.IsZero() {
		return 0
	}
	return t.Started.Sub(t.EnqueuedAt)
}

// Turnaround returns total time from enqueue to completion.
func (t *Task) Turnaround() time.Duration {
	if t.Finished.IsZero() {
		return 0
	}
	return t.Finished.Sub(t.EnqueuedAt)
}

// resetForRetry clears one run's terminal state so the task can be
// resubmitted as a fresh enqueue (§4.9's "re-enqueue on failure if
// retries_left > 0").
func (t *Task) resetForRetry() {
	t.Status = ""
	t.Result = nil
	t.Err = nil
	t.Started = time.Time{}
	t.Finished = time.Time{}
	t.EnqueuedAt = time.Time{}
	t.cancelled = false
	t.doneCh = nil
}
