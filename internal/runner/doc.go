// Package runner implements the Anchor Runner: retry with exponential
// backoff (honoring an explicit retry_after hint when the collaborator
// supplies one), and cooperative cancellation, layered on top of a pluggable
// ExecuteAnchorFunc collaborator.
package runner
