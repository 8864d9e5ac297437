package scheduler

import "container/heap"

// sjfHeap orders tasks by ascending estimated runtime, ties by enqueue
// sequence (container/heap is the one standard-library tool the corpus
// offers no substitute for here; every example repo's priority structures
// are either unbounded slices or this exact package).
type sjfHeap []*Task

func (h sjfHeap) Len() int { return len(h) }
func (h sjfHeap) Less(i, j int) bool {
	if h[i].EstimatedRuntime != h[j].EstimatedRuntime {
		return h[i].EstimatedRuntime < h[j].EstimatedRuntime
	}
	return h[i].seq < h[j].seq
}
func (h sjfHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *sjfHeap) Push(x interface{}) { *h = append(*h, x.(*Task)) }
func (h *sjfHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// prioHeap orders tasks by descending priority (max-heap), ties by enqueue
// sequence. No aging: a task's position is fixed at enqueue time, which is
// the documented starvation risk of this discipline.
type prioHeap []*Task

func (h prioHeap) Len() int { return len(h) }
func (h prioHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority > h[j].Priority
	}
	return h[i].seq < h[j].seq
}
func (h prioHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *prioHeap) Push(x interface{}) { *h = append(*h, x.(*Task)) }
func (h *prioHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

var (
	_ heap.Interface = (*sjfHeap)(nil)
	_ heap.Interface = (*prioHeap)(nil)
)
