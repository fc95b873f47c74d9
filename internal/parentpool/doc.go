// Package parentpool implements the Parent Worker Pool: a bounded group of
// workers that drain ParentRefreshJobs, cascading each one upward through
// the zoom pyramid with retry and backoff, treating exhausted retries as a
// fatal, run-cancelling error.
//
// The worker-group shape (bounded concurrency, a shared cancellable
// context, first-error-wins) is grounded on the depth-staged dispatch loop
// used elsewhere for parallel execution, generalized from a fixed-depth
// wave to an open-ended drain loop and expressed with
// golang.org/x/sync/errgroup rather than a hand-rolled WaitGroup/done-channel
// pair.
package parentpool
