package containers

import "container/heap"

// PriorityQueue is a heap-ordered queue. The less function decides which of
// two items pops first; the queue itself is ordering-agnostic so callers own
// the tie-break rules.
type PriorityQueue[T any] struct {
	items *pqHeap[T]
}

func NewPriorityQueue[T any](less func(a, b T) bool) *PriorityQueue[T] {
	pq := &PriorityQueue[T]{
		items: &pqHeap[T]{less: less},
	}
	heap.Init(pq.items)
	return pq
}

// Push adds an item to the queue.
func (pq *PriorityQueue[T]) Push(item T) {
	heap.Push(pq.items, item)
}

// Pop removes and returns the item that sorts first, or false if empty.
func (pq *PriorityQueue[T]) Pop() (T, bool) {
	var zero T
	if pq.items.Len() == 0 {
		return zero, false
	}
	return heap.Pop(pq.items).(T), true
}

// Peek returns the item that would pop next without removing it.
func (pq *PriorityQueue[T]) Peek() (T, bool) {
	var zero T
	if pq.items.Len() == 0 {
		return zero, false
	}
	return pq.items.data[0], true
}

// Len returns the number of queued items.
func (pq *PriorityQueue[T]) Len() int {
	return pq.items.Len()
}

type pqHeap[T any] struct {
	data []T
	less func(a, b T) bool
}

func (h *pqHeap[T]) Len() int           { return len(h.data) }
func (h *pqHeap[T]) Less(i, j int) bool { return h.less(h.data[i], h.data[j]) }
func (h *pqHeap[T]) Swap(i, j int)      { h.data[i], h.data[j] = h.data[j], h.data[i] }

func (h *pqHeap[T]) Push(x any) {
	h.data = append(h.data, x.(T))
}

func (h *pqHeap[T]) Pop() any {
	old := h.data
	n := len(old)
	item := old[n-1]
	var zero T
	old[n-1] = zero // avoid holding references
	h.data = old[:n-1]
	return item
}
