package scheduler

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/Snider/Fabric/internal/fablog"
	"github.com/Snider/Fabric/internal/ferr"
)

// taskResult carries an Executor's return values across the goroutine
// boundary dispatch runs it on.
type taskResult struct {
	result []byte
	err    error
}

// Discipline selects the dequeue ordering.
type Discipline int

const (
	FCFS Discipline = iota
	SJF
	Priority
	RoundRobin
)

func (d Discipline) String() string {
	switch d {
	case FCFS:
		return "FCFS"
	case SJF:
		return "SJF"
	case Priority:
		return "PRIORITY"
	case RoundRobin:
		return "ROUND_ROBIN"
	default:
		return "UNKNOWN"
	}
}

// Scheduler runs exactly one dispatch worker, draining its queue in the
// configured discipline's order and invoking each task's Executor to
// completion (no preemption: Round-Robin's quantum is accounting only).
type Scheduler struct {
	mu         sync.Mutex
	log        *fablog.Logger
	discipline Discipline

	fifo     []*Task // FCFS, RoundRobin
	sjfQueue sjfHeap
	prioQueue prioHeap
	byID     map[string]*Task
	seq      uint64

	wake chan struct{}
	done chan struct{}

	stats runningStats
}

type runningStats struct {
	completed       int64
	failed          int64
	cancelled       int64
	timedOut        int64
	totalWait       time.Duration
	totalTurnaround time.Duration
}

// New returns a Scheduler using the given discipline.
func New(d Discipline, log *fablog.Logger) *Scheduler {
	if log == nil {
		log = fablog.GetGlobal()
	}
	return &Scheduler{
		discipline: d,
		log:        log.WithComponent(fablog.ComponentScheduler),
		byID:       make(map[string]*Task),
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

// Submit enqueues a task for dispatch in discipline order.
func (s *Scheduler) Submit(t *Task) {
	s.mu.Lock()
	if t.EnqueuedAt.IsZero() {
		t.EnqueuedAt = time.Now()
	}
	t.seq = s.seq
	s.seq++
	t.Status = StatusQueued
	if t.doneCh == nil {
		t.doneCh = make(chan struct{})
	}
	s.byID[t.ID] = t

	switch s.discipline {
	case SJF:
		heap.Push(&s.sjfQueue, t)
	case Priority:
		heap.Push(&s.prioQueue, t)
	default: // FCFS, RoundRobin
		s.fifo = append(s.fifo, t)
	}
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Resubmit resets t's terminal state and re-enqueues it, used by the
// caller-side retry loop when a dispatched task fails and retries remain.
func (s *Scheduler) Resubmit(t *Task) {
	t.resetForRetry()
	s.Submit(t)
}

// Cancel marks a still-queued task cancelled. Once dispatched, Cancel is
// recorded but does not interrupt the running executor (no preemption).
func (s *Scheduler) Cancel(taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byID[taskID]
	if !ok {
		return ferr.Internal("unknown task: " + taskID)
	}
	t.cancelled = true
	return nil
}

// nextLocked pops the next task per discipline, skipping any already
// cancelled while still queued. Returns nil if the queue is empty.
func (s *Scheduler) nextLocked() *Task {
	for {
		var t *Task
		switch s.discipline {
		case SJF:
			if s.sjfQueue.Len() == 0 {
				return nil
			}
			t = heap.Pop(&s.sjfQueue).(*Task)
		case Priority:
			if s.prioQueue.Len() == 0 {
				return nil
			}
			t = heap.Pop(&s.prioQueue).(*Task)
		default:
			if len(s.fifo) == 0 {
				return nil
			}
			t = s.fifo[0]
			s.fifo = s.fifo[1:]
		}
		if t.cancelled {
			t.Status = StatusCancelled
			t.Finished = time.Now()
			s.stats.cancelled++
			delete(s.byID, t.ID)
			close(t.doneCh)
			continue
		}
		return t
	}
}

// Run drains the queue until ctx is cancelled, dispatching one task at a
// time (the spec's single scheduler dispatch worker).
func (s *Scheduler) Run(ctx context.Context) {
	defer close(s.done)
	for {
		s.mu.Lock()
		t := s.nextLocked()
		s.mu.Unlock()

		if t == nil {
			select {
			case <-ctx.Done():
				return
			case <-s.wake:
				continue
			}
		}

		s.dispatch(ctx, t)

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func (s *Scheduler) dispatch(ctx context.Context, t *Task) {
	t.Status = StatusRunning
	t.Started = time.Now()

	runCtx := ctx
	var cancel context.CancelFunc
	if t.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	// Run the callable on its own goroutine rather than inline: §5 requires
	// that it execute "on a thread that can be abandoned", since a callable
	// that ignores runCtx must not be able to wedge the single dispatch
	// worker past its deadline. A late result from an abandoned goroutine
	// still has somewhere to land (the buffered channel) so the goroutine
	// itself never leaks.
	resultCh := make(chan taskResult, 1)
	go func() {
		result, err := t.Run(runCtx, t)
		resultCh <- taskResult{result, err}
	}()

	var result []byte
	var err error
	select {
	case r := <-resultCh:
		result, err = r.result, r.err
	case <-runCtx.Done():
		err = runCtx.Err()
	}
	t.Finished = time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, t.ID)

	switch {
	case runCtx.Err() == context.DeadlineExceeded:
		t.Status = StatusTimedOut
		t.Err = ferr.TimedOut()
		s.stats.timedOut++
	case err != nil:
		t.Status = StatusFailed
		t.Err = err
		s.stats.failed++
	default:
		t.Status = StatusCompleted
		t.Result = result
		s.stats.completed++
	}
	s.stats.totalWait += t.Waited()
	s.stats.totalTurnaround += t.Turnaround()

	s.log.Debug("task dispatched", fablog.Fields{
		"task_id": t.ID, "status": string(t.Status), "discipline": s.discipline.String(),
	})
	close(t.doneCh)
}

// Stop wakes an idle Run and blocks until Run has returned. Run returns
// only once its context is cancelled, so Stop does not end Run by itself;
// with a live context it blocks until that context is cancelled.
func (s *Scheduler) Stop() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
	<-s.done
}

// Stats is a point-in-time snapshot of scheduler-wide statistics.
type Stats struct {
	Discipline        string
	QueueLength       int
	Completed         int64
	Failed            int64
	Cancelled         int64
	TimedOut          int64
	AverageWait       time.Duration
	AverageTurnaround time.Duration
}

// Snapshot reports the scheduler's current statistics.
func (s *Scheduler) Snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	qlen := len(s.fifo) + s.sjfQueue.Len() + s.prioQueue.Len()
	total := s.stats.completed + s.stats.failed + s.stats.timedOut
	st := Stats{
		Discipline:  s.discipline.String(),
		QueueLength: qlen,
		Completed:   s.stats.completed,
		Failed:      s.stats.failed,
		Cancelled:   s.stats.cancelled,
		TimedOut:    s.stats.timedOut,
	}
	if total > 0 {
		st.AverageWait = s.stats.totalWait / time.Duration(total)
		st.AverageTurnaround = s.stats.totalTurnaround / time.Duration(total)
	}
	return st
}
