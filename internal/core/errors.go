package core

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput means a start_batch_run input failed validation
	// before any goroutine was started.
	ErrInvalidInput = errors.New("invalid batch run input")

	// ErrUnknownAnchor means an operation referenced an anchor id the plan
	// does not contain; an invariant violation, never expected in normal
	// operation.
	ErrUnknownAnchor = errors.New("unknown anchor")

	// ErrCancelled is returned by the Runner and the Review Queue when a
	// cancellation signal fired before the operation settled. It is not
	// recorded as an anchor failure.
	ErrCancelled = errors.New("cancelled")

	// ErrParentRefreshFatal wraps the last parent refresh error once a
	// parent job has exhausted its retries. A run observing this error
	// transitions to FAILED.
	ErrParentRefreshFatal = errors.New("parent refresh failed permanently")
)

// RunError wraps a run-level failure with the sentinel Kind it belongs to,
// following the same Kind+Msg shape used across the scheduler packages.
type RunError struct {
	Kind error
	Msg  string
}

func (e *RunError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *RunError) Unwrap() error { return e.Kind }

// Invalidf builds an ErrInvalidInput-kinded error with a formatted message.
func Invalidf(format string, args ...any) error {
	return &RunError{Kind: ErrInvalidInput, Msg: fmt.Sprintf(format, args...)}
}

// UnknownAnchorf builds an ErrUnknownAnchor-kinded error with a formatted
// message.
func UnknownAnchorf(format string, args ...any) error {
	return &RunError{Kind: ErrUnknownAnchor, Msg: fmt.Sprintf(format, args...)}
}

// ParentFatalf wraps the last parent refresh error as a fatal, run-failing
// error.
func ParentFatalf(cause error) error {
	return &RunError{Kind: ErrParentRefreshFatal, Msg: cause.Error()}
}
