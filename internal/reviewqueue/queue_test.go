package reviewqueue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/anchorgrid/anchorsched/internal/core"
)

func TestQueue_FIFOResolveOrder(t *testing.T) {
	q := New()

	var wg sync.WaitGroup
	results := make([]core.ReviewDecision, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d, err := q.Enqueue(context.Background(), i)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			results[i] = d
		}(i)

		// Wait for item i to be enqueued before starting the next one, so
		// the enqueue order is 0, 1, 2.
		deadline := time.Now().Add(time.Second)
		for q.ActiveLen() != i+1 && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
	}
	if q.ActiveLen() != 3 {
		t.Fatalf("expected all 3 items enqueued, got %d", q.ActiveLen())
	}

	decisions := []core.ReviewDecision{core.ReviewAccept, core.ReviewReject, core.ReviewAccept}
	for i, d := range decisions {
		if err := q.ResolveActive(d); err != nil {
			t.Fatalf("ResolveActive #%d: %v", i, err)
		}
	}
	wg.Wait()

	for i, d := range results {
		if d != decisions[i] {
			t.Errorf("result[%d] = %v, want %v", i, d, decisions[i])
		}
	}
}

func TestQueue_OnlyOneActiveAtATime(t *testing.T) {
	q := New()
	go func() { _, _ = q.Enqueue(context.Background(), "a") }()
	go func() { _, _ = q.Enqueue(context.Background(), "b") }()

	deadline := time.Now().Add(time.Second)
	for q.ActiveLen() != 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	q.mu.Lock()
	activeSet := q.active != nil
	pendingCount := len(q.pending)
	q.mu.Unlock()
	if !activeSet || pendingCount != 1 {
		t.Fatalf("expected exactly one active and one pending, active=%v pending=%d", activeSet, pendingCount)
	}
}

func TestQueue_ResolveActive_NoneActive(t *testing.T) {
	q := New()
	if err := q.ResolveActive(core.ReviewAccept); err == nil {
		t.Fatalf("expected error resolving with no active item")
	}
}

func TestQueue_CancelAllRejectsEverything(t *testing.T) {
	q := New()
	reason := errors.New("run cancelled")

	errCh := make(chan error, 2)
	go func() {
		_, err := q.Enqueue(context.Background(), "a")
		errCh <- err
	}()
	go func() {
		_, err := q.Enqueue(context.Background(), "b")
		errCh <- err
	}()

	deadline := time.Now().Add(time.Second)
	for q.ActiveLen() != 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	q.CancelAll(reason)

	for i := 0; i < 2; i++ {
		if err := <-errCh; !errors.Is(err, reason) {
			t.Errorf("expected reason error, got %v", err)
		}
	}

	if _, err := q.Enqueue(context.Background(), "c"); !errors.Is(err, reason) {
		t.Fatalf("expected Enqueue to fail immediately after cancellation, got %v", err)
	}
}

func TestQueue_CancelAllIdempotent(t *testing.T) {
	q := New()
	q.CancelAll(errors.New("first"))
	q.CancelAll(errors.New("second"))
	_, err := q.Enqueue(context.Background(), "x")
	if err.Error() != "first" {
		t.Fatalf("expected first cancellation reason to stick, got %v", err)
	}
}
