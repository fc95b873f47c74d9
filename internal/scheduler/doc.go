// Package scheduler implements the Anchor Scheduler: the state machine that
// advances anchors through their status lifecycle while respecting
// dependency order, the overlap-safety rule, and a parallelism cap.
//
// The scheduler does not execute anything itself - it only decides, given a
// Plan and the current status of every anchor, which anchors may start next,
// and how a failure propagates to blocked descendants. The owning caller
// (internal/batchrun) drives actual execution and feeds completions back in.
package scheduler
