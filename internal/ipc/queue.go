// Package ipc implements the peer's IPC primitives (C8): bounded message
// queues and counting semaphores, exposed through the peer's IPC wire
// operations.
package ipc

import (
	"context"
	"sync"
	"time"

	"github.com/Snider/Fabric/internal/ferr"
)

// Message is one entry in a queue.
type Message struct {
	To   string // pid string, or "*" for broadcast
	Body []byte
}

// Queue is a named, bounded FIFO of Messages addressed to a pid or to "*".
type Queue struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond
	capacity int
	items    []Message
	closed   bool
}

// NewQueue returns a Queue with the given bounded capacity.
func NewQueue(capacity int) *Queue {
	q := &Queue{capacity: capacity}
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)
	return q
}

// Send enqueues msg, blocking while the queue is full. Returns an error if
// the queue is closed while waiting.
func (q *Queue) Send(ctx context.Context, msg Message) error {
	q.mu.Lock()
	for len(q.items) >= q.capacity && !q.closed {
		if !waitWithContext(ctx, q.notFull, &q.mu) {
			q.mu.Unlock()
			return ctx.Err()
		}
	}
	if q.closed {
		q.mu.Unlock()
		return ferr.BadRequest("queue is closed")
	}
	q.items = append(q.items, msg)
	q.mu.Unlock()
	q.notEmpty.Broadcast()
	return nil
}

// Receive returns the oldest message addressed to pid or to "*", blocking
// up to timeout (0 means no wait: return immediately if nothing is ready).
func (q *Queue) Receive(ctx context.Context, pid string, timeout time.Duration) (Message, error) {
	deadline := time.Now().Add(timeout)
	q.mu.Lock()
	for {
		if idx := q.findForLocked(pid); idx >= 0 {
			msg := q.items[idx]
			q.items = append(q.items[:idx], q.items[idx+1:]...)
			q.mu.Unlock()
			q.notFull.Broadcast()
			return msg, nil
		}
		if timeout <= 0 {
			q.mu.Unlock()
			return Message{}, ferr.New(ferr.CodeTimedOut, "no message available")
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			q.mu.Unlock()
			return Message{}, ferr.New(ferr.CodeTimedOut, "receive timed out")
		}
		if !waitWithTimeout(ctx, q.notEmpty, &q.mu, remaining) {
			q.mu.Unlock()
			return Message{}, ferr.New(ferr.CodeTimedOut, "receive timed out")
		}
	}
}

func (q *Queue) findForLocked(pid string) int {
	for i, m := range q.items {
		if m.To == pid || m.To == "*" {
			return i
		}
	}
	return -1
}

// Close marks the queue closed, waking all waiters.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}

// waitWithContext waits on cond, honoring ctx cancellation. Returns false
// if ctx was cancelled; in that case the lock is re-acquired before return.
func waitWithContext(ctx context.Context, cond *sync.Cond, mu *sync.Mutex) bool {
	if ctx == nil || ctx.Done() == nil {
		cond.Wait()
		return true
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			mu.Lock()
			cond.Broadcast()
			mu.Unlock()
		case <-done:
		}
	}()
	cond.Wait()
	close(done)
	return ctx.Err() == nil
}

func waitWithTimeout(ctx context.Context, cond *sync.Cond, mu *sync.Mutex, d time.Duration) bool {
	timedCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return waitWithContext(timedCtx, cond, mu)
}
