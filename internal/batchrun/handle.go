package batchrun

import (
	"context"

	"github.com/google/uuid"

	"github.com/anchorgrid/anchorsched/internal/core"
	"github.com/anchorgrid/anchorsched/internal/planner"
)

// Handle is the caller-facing reference to a running (or finished) batch
// run. All of its methods are safe to call from any goroutine.
type Handle struct {
	doneCh chan struct{}
	o      *owner
}

// Done reports when the run has reached a terminal status.
func (h *Handle) Done() <-chan struct{} { return h.doneCh }

// Cancel requests cooperative cancellation. It is safe to call multiple
// times and safe to call after the run has already finished.
func (h *Handle) Cancel() { h.o.cancel() }

// State returns a deep-copied, point-in-time snapshot of the run.
func (h *Handle) State() core.BatchRunState { return h.o.snapshot() }

// Result blocks until the run reaches a terminal status, then returns the
// final snapshot and the fatal error that caused a FAILED status, if any.
func (h *Handle) Result() (core.BatchRunState, error) {
	<-h.doneCh
	h.o.mu.Lock()
	err := h.o.resultErr
	h.o.mu.Unlock()
	return h.o.snapshot(), err
}

// Start validates input, builds the dependency plan rooted at the origin,
// and launches the owner goroutine that drives the run to completion. It
// returns immediately; use the returned Handle to observe progress,
// request cancellation, or wait for the final result.
func Start(ctx context.Context, in Input) (*Handle, error) {
	r, err := resolveInput(in)
	if err != nil {
		return nil, err
	}

	plan := planner.Build(planner.Input{
		OriginX:  r.originX,
		OriginY:  r.originY,
		Layers:   r.layers,
		MapWidth: r.mapWidth,
		MapHeight: r.mapHeight,
	})

	anchorsInit := make(map[string]core.Anchor, len(plan.Anchors))
	for id, a := range plan.Anchors {
		anchorsInit[id] = a.Clone()
	}

	o := &owner{
		r:    r,
		plan: plan,
		state: core.BatchRunState{
			RunID:       uuid.NewString(),
			Status:      core.RunRunning,
			OriginX:     r.originX,
			OriginY:     r.originY,
			Layers:      r.layers,
			MaxParallel: r.maxParallel,
			Anchors:     anchorsInit,
			Bounds:      plan.Bounds,
		},
	}

	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	doneCh := make(chan struct{})
	go o.run(runCtx, doneCh)

	return &Handle{doneCh: doneCh, o: o}, nil
}
