// Package batchrun implements the Run Lifecycle State Machine and the
// State & Progress Emitter: it ties the Planner, Anchor Scheduler, Anchor
// Runner, Review Queue, Dirty-Parent Aggregator, and Parent Worker Pool
// together behind a single owner goroutine and exposes the external
// start_batch_run(input) -> handle surface.
//
// All state mutation happens on the owner goroutine; anchor execution,
// parent refresh, and review waits run in separate goroutines that only
// ever report completions back over a channel, mirroring the
// mutex-guarded, deep-copy-on-read owner pattern used elsewhere in this
// codebase, generalized from a fixed-depth dispatch loop to the anchor
// scheduler's readiness/overlap computation.
package batchrun
