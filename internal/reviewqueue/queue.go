package reviewqueue

import (
	"context"
	"fmt"
	"sync"

	"github.com/anchorgrid/anchorsched/internal/core"
)

// Payload is whatever the caller wants attached to a pending review (e.g. a
// preview image reference plus the anchor id). The queue treats it opaquely.
type Payload any

type item struct {
	payload Payload
	done    chan result
}

type result struct {
	decision core.ReviewDecision
	err      error
}

// Queue is a single-active-at-a-time FIFO review gate. The zero value is not
// usable; construct with New.
type Queue struct {
	mu        sync.Mutex
	pending   []*item
	active    *item
	cancelled bool
	cancelErr error
}

// New returns an empty, open Queue.
func New() *Queue {
	return &Queue{}
}

// Enqueue adds payload to the queue and blocks until it is resolved via
// ResolveActive, the queue is cancelled, or ctx is done. A newly enqueued
// item becomes active immediately if no item is currently active.
func (q *Queue) Enqueue(ctx context.Context, payload Payload) (core.ReviewDecision, error) {
	q.mu.Lock()
	if q.cancelled {
		err := q.cancelErr
		q.mu.Unlock()
		return 0, err
	}

	it := &item{payload: payload, done: make(chan result, 1)}
	if q.active == nil {
		q.active = it
	} else {
		q.pending = append(q.pending, it)
	}
	q.mu.Unlock()

	select {
	case r := <-it.done:
		return r.decision, r.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// ResolveActive settles the currently active item with decision and
// promotes the next pending item (if any) to active. It returns an error if
// no item is currently active.
func (q *Queue) ResolveActive(decision core.ReviewDecision) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.active == nil {
		return fmt.Errorf("reviewqueue: no active item to resolve")
	}
	done := q.active.done
	done <- result{decision: decision}

	if len(q.pending) > 0 {
		q.active = q.pending[0]
		q.pending = q.pending[1:]
	} else {
		q.active = nil
	}
	return nil
}

// CancelAll rejects the active item and every pending item with reason, and
// causes every subsequent Enqueue call to fail immediately. Idempotent.
func (q *Queue) CancelAll(reason error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.cancelled {
		return
	}
	q.cancelled = true
	q.cancelErr = reason

	if q.active != nil {
		q.active.done <- result{err: reason}
		q.active = nil
	}
	for _, it := range q.pending {
		it.done <- result{err: reason}
	}
	q.pending = nil
}

// ActiveLen reports the number of items waiting (active + pending),
// primarily for tests and progress reporting.
func (q *Queue) ActiveLen() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.pending)
	if q.active != nil {
		n++
	}
	return n
}
