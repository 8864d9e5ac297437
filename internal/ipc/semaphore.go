package ipc

import "sync"

// Semaphore is a counting semaphore with a FIFO waiter list and no
// priority inheritance: Wait decrements and parks the caller if the count
// goes negative; Signal increments and releases the oldest waiter, if any.
type Semaphore struct {
	mu      sync.Mutex
	count   int
	waiters []chan struct{}
}

// NewSemaphore returns a Semaphore initialized to count.
func NewSemaphore(count int) *Semaphore {
	return &Semaphore{count: count}
}

// Wait decrements the semaphore, blocking the caller if it becomes negative.
func (s *Semaphore) Wait() {
	s.mu.Lock()
	s.count--
	if s.count >= 0 {
		s.mu.Unlock()
		return
	}
	ch := make(chan struct{})
	s.waiters = append(s.waiters, ch)
	s.mu.Unlock()
	<-ch
}

// Signal increments the semaphore and wakes the head of the waiter list,
// if any are parked.
func (s *Semaphore) Signal() {
	s.mu.Lock()
	s.count++
	var wake chan struct{}
	if len(s.waiters) > 0 {
		wake = s.waiters[0]
		s.waiters = s.waiters[1:]
	}
	s.mu.Unlock()
	if wake != nil {
		close(wake)
	}
}

// Count returns the current counter value (may be negative while waiters
// are parked), for status reporting.
func (s *Semaphore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// WaiterCount returns the number of parked waiters.
func (s *Semaphore) WaiterCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.waiters)
}
