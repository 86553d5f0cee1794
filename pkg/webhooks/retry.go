package webhooks

import (
	"container/heap"
	"sync"
	"time"
)

// Scheduler holds deliveries waiting on a retry timer, ordered by
// RetryAt in a min-heap, plus an overflow list for deliveries that
// could not be placed on the active queue. A periodic driver in the
// engine promotes ready entries back onto the queue.
type Scheduler struct {
	mu       sync.Mutex
	pending  retryHeap
	overflow []*Delivery
}

// NewScheduler creates an empty retry scheduler.
func NewScheduler() *Scheduler {
	s := &Scheduler{}
	heap.Init(&s.pending)
	return s
}

// Schedule parks a delivery until its RetryAt timestamp.
func (s *Scheduler) Schedule(d *Delivery) {
	s.mu.Lock()
	defer s.mu.Unlock()
	heap.Push(&s.pending, d)
}

// Defer parks a delivery for immediate promotion on the next driver
// tick. Used as queue overflow so emission never blocks.
func (s *Scheduler) Defer(d *Delivery) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overflow = append(s.overflow, d)
}

// Due removes and returns every delivery ready to run at the given
// time: all overflow entries plus scheduled retries with RetryAt <= now.
func (s *Scheduler) Due(now time.Time) []*Delivery {
	s.mu.Lock()
	defer s.mu.Unlock()

	ready := s.overflow
	s.overflow = nil

	for s.pending.Len() > 0 {
		next := s.pending[0]
		if next.RetryAt != nil && next.RetryAt.After(now) {
			break
		}
		ready = append(ready, heap.Pop(&s.pending).(*Delivery))
	}
	return ready
}

// Len returns the number of deliveries held by the scheduler.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending.Len() + len(s.overflow)
}

type retryHeap []*Delivery

func (h retryHeap) Len() int { return len(h) }

func (h retryHeap) Less(i, j int) bool {
	// Deliveries without a retry timestamp sort first.
	switch {
	case h[i].RetryAt == nil:
		return true
	case h[j].RetryAt == nil:
		return false
	default:
		return h[i].RetryAt.Before(*h[j].RetryAt)
	}
}

func (h retryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *retryHeap) Push(x any) { *h = append(*h, x.(*Delivery)) }

func (h *retryHeap) Pop() any {
	old := *h
	n := len(old)
	d := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return d
}
