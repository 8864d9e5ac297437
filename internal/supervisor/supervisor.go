// Package supervisor runs named background workers (heartbeat senders,
// the tracker janitor, scheduler dispatch loops) with panic recovery and
// clean cancellation, so a single misbehaving worker cannot take down the
// process it runs inside of.
package supervisor

import (
	"context"
	"sync"

	"github.com/Snider/Fabric/internal/fablog"
)

// Task is a function run under supervision until ctx is cancelled.
// A Task that returns is considered finished; a Task is expected to loop
// internally (e.g. on a time.Ticker) and only return once ctx.Done() fires.
type Task func(ctx context.Context)

// Supervisor owns a set of named background tasks and their lifecycle.
type Supervisor struct {
	log *fablog.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	names   []string
	tasks   []Task
}

// New creates a Supervisor that logs via log (or the global logger if nil).
func New(log *fablog.Logger) *Supervisor {
	if log == nil {
		log = fablog.GetGlobal()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{log: log, ctx: ctx, cancel: cancel}
}

// Register adds a task to run once Start is called. Registering after
// Start has no effect on already-started tasks but the new task is still
// started immediately if the supervisor is already running.
func (s *Supervisor) Register(name string, task Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names = append(s.names, name)
	s.tasks = append(s.tasks, task)
	if s.started {
		s.run(name, task)
	}
}

// Start launches every registered task exactly once.
func (s *Supervisor) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	names, tasks := s.names, s.tasks
	s.mu.Unlock()

	for i, name := range names {
		s.run(name, tasks[i])
	}
}

func (s *Supervisor) run(name string, task Task) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("supervised task panicked", fablog.Fields{"task": name, "panic": r})
			}
		}()
		task(s.ctx)
	}()
	s.log.Info("started supervised task", fablog.Fields{"task": name})
}

// Stop cancels every task's context and waits for all of them to return.
func (s *Supervisor) Stop() {
	s.cancel()
	s.wg.Wait()
	s.log.Info("supervisor stopped")
}
