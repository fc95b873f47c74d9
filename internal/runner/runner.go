package runner

import (
	"context"
	"time"

	"github.com/anchorgrid/anchorsched/internal/core"
)

const (
	baseBackoff = 500 * time.Millisecond
	maxBackoff  = 15 * time.Second
)

// Clock abstracts time so tests can exercise backoff without real sleeps.
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// realClock sleeps for real, honoring ctx cancellation.
type realClock struct{}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Runner drives one anchor's execute_anchor attempts with retry and
// exponential backoff.
type Runner struct {
	Execute           core.ExecuteAnchorFunc
	MaxGenerateRetries int
	Clock             Clock
}

// New returns a Runner wrapping execute, retrying up to maxGenerateRetries
// additional times beyond the first attempt.
func New(execute core.ExecuteAnchorFunc, maxGenerateRetries int) *Runner {
	return &Runner{Execute: execute, MaxGenerateRetries: maxGenerateRetries, Clock: realClock{}}
}

// Run attempts to execute anchor up to MaxGenerateRetries+1 times. It
// returns the final outcome and attempt count, or core.ErrCancelled if ctx
// was cancelled before a terminal outcome was reached.
func (r *Runner) Run(ctx context.Context, anchor core.Anchor) (core.ExecuteOutcome, int, error) {
	if r.Execute == nil {
		return core.ExecuteOutcome{}, 0, core.Invalidf("no execute_anchor collaborator configured")
	}
	clock := r.Clock
	if clock == nil {
		clock = realClock{}
	}

	var lastErr error
	attempts := r.MaxGenerateRetries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return core.ExecuteOutcome{}, attempt - 1, core.ErrCancelled
		}

		outcome, err := r.Execute(ctx, anchor, attempt)
		if err == nil {
			return outcome, attempt, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return core.ExecuteOutcome{}, attempt, core.ErrCancelled
		}

		if attempt == attempts {
			break
		}

		delay := backoffFor(attempt, outcome.RetryAfterSeconds)
		if sleepErr := clock.Sleep(ctx, delay); sleepErr != nil {
			return core.ExecuteOutcome{}, attempt, core.ErrCancelled
		}
	}
	return core.ExecuteOutcome{}, attempts, lastErr
}

// Backoff computes the delay before the next attempt, for any caller that
// needs the same retry-after-or-exponential schedule the Runner uses (the
// Parent Worker Pool's job retries follow the identical shape).
func Backoff(attempt int, retryAfterSeconds *float64) time.Duration {
	return backoffFor(attempt, retryAfterSeconds)
}

// backoffFor computes the delay before the next attempt. An explicit
// retryAfterSeconds hint from the collaborator takes priority over the
// default exponential schedule.
func backoffFor(attempt int, retryAfterSeconds *float64) time.Duration {
	if retryAfterSeconds != nil && *retryAfterSeconds >= 0 {
		return time.Duration(*retryAfterSeconds * float64(time.Second))
	}
	d := baseBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}
