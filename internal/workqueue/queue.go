// Package workqueue produces the ordered, finite sequence of request
// descriptors a run executes.
package workqueue

import (
	"sync"

	"github.com/torosent/volley/internal/request"
)

// Queue hands out descriptors 1..N exactly once across any number of callers.
// It is lazy: a descriptor is only built when pulled.
type Queue struct {
	mu        sync.Mutex
	total     uint64
	next      uint64
	cancelled bool
	tmpl      Template
}

// New creates a queue of total descriptors rendered from tmpl.
func New(total uint64, tmpl Template) *Queue {
	return &Queue{total: total, next: 1, tmpl: tmpl}
}

// Next returns the next descriptor, or false once the queue is exhausted or cancelled.
func (q *Queue) Next() (request.Descriptor, bool) {
	q.mu.Lock()
	if q.cancelled || q.next > q.total {
		q.mu.Unlock()
		return request.Descriptor{}, false
	}
	seq := q.next
	q.next++
	q.mu.Unlock()

	return q.tmpl.Build(seq), true
}

// Cancel stops the queue. Subsequent Next calls return false for all callers.
func (q *Queue) Cancel() {
	q.mu.Lock()
	q.cancelled = true
	q.mu.Unlock()
}

// Cancelled reports whether Cancel was called.
func (q *Queue) Cancelled() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.cancelled
}

// Issued returns how many descriptors have been handed out.
func (q *Queue) Issued() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.next - 1
}

// Total returns N.
func (q *Queue) Total() uint64 {
	return q.total
}

// Range is an inclusive span of sequence numbers; it is empty when
// First > Last.
type Range struct {
	First, Last uint64
}

// Len returns how many sequence numbers r covers.
func (r Range) Len() uint64 {
	if r.First > r.Last {
		return 0
	}
	return r.Last - r.First + 1
}

// Unissued returns the span of sequence numbers that were never handed out.
// It is only meaningful once the queue has been cancelled or exhausted.
func (q *Queue) Unissued() Range {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Range{First: q.next, Last: q.total}
}
