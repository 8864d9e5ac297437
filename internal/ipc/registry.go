package ipc

import (
	"sort"
	"sync"

	"github.com/Snider/Fabric/internal/ferr"
)

// Registry holds every named queue and semaphore created on a peer.
type Registry struct {
	mu    sync.RWMutex
	queue map[string]*Queue
	sem   map[string]*Semaphore
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{queue: make(map[string]*Queue), sem: make(map[string]*Semaphore)}
}

// CreateQueue creates (or replaces) a named queue with the given capacity.
func (r *Registry) CreateQueue(name string, capacity int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queue[name] = NewQueue(capacity)
}

// Queue returns the named queue, or UNKNOWN_RESOURCE if it was never created.
func (r *Registry) Queue(name string) (*Queue, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.queue[name]
	if !ok {
		return nil, ferr.UnknownResource(name)
	}
	return q, nil
}

// CreateSemaphore creates (or replaces) a named semaphore with initial count.
func (r *Registry) CreateSemaphore(name string, initial int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sem[name] = NewSemaphore(initial)
}

// Semaphore returns the named semaphore, or UNKNOWN_RESOURCE if absent.
func (r *Registry) Semaphore(name string) (*Semaphore, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sem[name]
	if !ok {
		return nil, ferr.UnknownResource(name)
	}
	return s, nil
}

// Names returns the sorted names of every queue and semaphore, for status.
func (r *Registry) Names() (queues []string, semaphores []string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for n := range r.queue {
		queues = append(queues, n)
	}
	for n := range r.sem {
		semaphores = append(semaphores, n)
	}
	sort.Strings(queues)
	sort.Strings(semaphores)
	return queues, semaphores
}
