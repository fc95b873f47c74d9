package batchrun

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/anchorgrid/anchorsched/internal/aggregator"
	"github.com/anchorgrid/anchorsched/internal/core"
	"github.com/anchorgrid/anchorsched/internal/parentpool"
	"github.com/anchorgrid/anchorsched/internal/reviewqueue"
	"github.com/anchorgrid/anchorsched/internal/runner"
	"github.com/anchorgrid/anchorsched/internal/scheduler"
)

type anchorResult struct {
	id       string
	outcome  core.ExecuteOutcome
	attempts int
	err      error
}

// owner is the single writer of run state. Every field below it is only
// ever touched from the goroutine running (*owner).run; state and resultErr
// are the exceptions, guarded by mu so Handle.State/Result may read them from
// any goroutine.
type owner struct {
	r    resolved
	plan *core.Plan

	mu        sync.Mutex
	state     core.BatchRunState
	resultErr error

	ctx    context.Context
	cancel context.CancelFunc
	sched  *scheduler.Scheduler
	agg    *aggregator.Aggregator
	review *reviewqueue.Queue

	inFlight       map[string]bool
	anchorWave     map[string]int // wave_barrier only: anchor id -> wave index
	pendingInWave  map[int]int    // wave_barrier only: wave index -> anchors still outstanding
	waveHasSuccess map[int]bool
	waveIndex      int

	anchorDoneCh    chan anchorResult
	parentJobsCh    chan core.ParentRefreshJob
	parentResultsCh chan core.ParentRefreshJob

	cancelRequested bool
	generationDone  bool
	fatalErr        error
}

func (o *owner) snapshot() core.BatchRunState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.Clone()
}

// recomputeAndEmit refreshes the derived progress counters and the anchors
// map from the live plan, then hands an independent snapshot to the
// observer.
func (o *owner) recomputeAndEmit() {
	o.mu.Lock()

	anchorsCopy := make(map[string]core.Anchor, len(o.plan.Anchors))
	var gp core.GenerateProgress
	for _, id := range o.plan.Order {
		a := o.plan.Anchors[id]
		anchorsCopy[id] = a.Clone()
		switch a.Status {
		case core.AnchorPending:
			gp.Pending++
		case core.AnchorRunning:
			gp.Running++
		case core.AnchorSuccess:
			gp.Success++
		case core.AnchorFailed:
			gp.Failed++
		case core.AnchorBlocked:
			gp.Blocked++
		}
	}
	o.state.Anchors = anchorsCopy

	for _, w := range o.state.Waves {
		if w.FinishedAt != 0 {
			gp.WavesCompleted++
		}
	}
	o.state.Generate = gp

	var pp core.ParentProgress
	var minRunning *int
	for _, j := range o.state.ParentJobs {
		switch j.Status {
		case core.ParentJobQueued:
			pp.Queued++
		case core.ParentJobRunning:
			pp.Running++
			z := j.CurrentZ
			if minRunning == nil || z < *minRunning {
				minRunning = &z
			}
		case core.ParentJobSuccess:
			pp.Success++
		case core.ParentJobFailed:
			pp.Failed++
		}
	}
	pp.CurrentLevelZ = minRunning
	o.state.Parent = pp

	snap := o.state.Clone()
	observer := o.r.onState
	o.mu.Unlock()

	if observer != nil {
		observer(snap)
	}
}

// markFatal records the run's first fatal error and cancels the shared
// context, aborting every in-flight collaborator call the same way an
// external signal does - a fatal parent refresh failure is not allowed to
// leave execute_anchor goroutines blocked forever on ctx.Done().
func (o *owner) markFatal(err error) {
	if o.fatalErr != nil {
		return
	}
	o.fatalErr = err
	o.cancel()
}

func nowMillis() int64 { return time.Now().UnixMilli() }

func footprint(a core.Anchor, mapWidth, mapHeight int) []core.TileCoord {
	out := make([]core.TileCoord, 0, 9)
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			x, y := a.X+dx, a.Y+dy
			if x < 0 || x >= mapWidth || y < 0 || y >= mapHeight {
				continue
			}
			out = append(out, core.TileCoord{X: x, Y: y})
		}
	}
	return out
}

func (o *owner) findWaveSliceIndex(waveIdx int) int {
	for i := range o.state.Waves {
		if o.state.Waves[i].Index == waveIdx {
			return i
		}
	}
	return -1
}

// run drives the batch run to completion. It is the only goroutine that
// mutates o.plan or any of the scheduling bookkeeping fields.
func (o *owner) run(ctx context.Context, doneCh chan<- struct{}) {
	defer close(doneCh)
	o.ctx = ctx

	o.recomputeAndEmit()

	o.r.logger.Info().Str("run_id", o.state.RunID).Int("anchor_count", len(o.plan.Order)).Msg("batch run started")

	if o.plan.IsEmpty() {
		o.mu.Lock()
		o.state.Status = core.RunCompleted
		o.mu.Unlock()
		o.recomputeAndEmit()
		o.r.logger.Info().Str("run_id", o.state.RunID).Msg("batch run finished: empty plan")
		return
	}

	o.sched = scheduler.New(o.plan)
	o.agg = aggregator.New(aggregator.Config{
		DebounceMs:    o.r.parentDebounceMs,
		WaveBatchSize: o.r.parentWaveBatchSize,
		LeafBatchSize: o.r.parentLeafBatchSize,
		CascadeDepth:  o.r.parentCascadeDepth,
		LeafZ:         o.r.z,
	})
	o.review = reviewqueue.New()
	o.inFlight = make(map[string]bool)
	o.anchorWave = make(map[string]int)
	o.pendingInWave = make(map[int]int)
	o.waveHasSuccess = make(map[int]bool)

	buf := len(o.plan.Order) + 4
	o.anchorDoneCh = make(chan anchorResult, buf)
	o.parentJobsCh = make(chan core.ParentRefreshJob, buf)
	o.parentResultsCh = make(chan core.ParentRefreshJob, buf)

	pool := parentpool.New(o.r.refreshParentLevel, o.r.parentJobRetries, o.r.parentWorkerConcurrency)
	poolErrCh := make(chan error, 1)
	go func() { poolErrCh <- pool.Run(ctx, o.parentJobsCh, o.parentResultsCh) }()

	if o.r.executeAnchor == nil {
		o.markFatal(core.Invalidf("no execute_anchor collaborator configured"))
	} else {
		o.dispatch()
	}

	poolDone := false
	for !(o.generationDone && poolDone) {
		select {
		case <-ctx.Done():
			if !o.cancelRequested {
				o.cancelRequested = true
				o.review.CancelAll(core.ErrCancelled)
			}
			o.finishGenerationIfReady()

		case res := <-o.anchorDoneCh:
			o.handleAnchorDone(res)
			o.finishGenerationIfReady()
			o.dispatch()

		case res := <-o.parentResultsCh:
			o.handleParentResult(res)

		case err := <-poolErrCh:
			poolDone = true
			if err != nil && !errors.Is(err, context.Canceled) {
				o.markFatal(err)
			}
		}
	}

	o.mu.Lock()
	switch {
	case o.fatalErr != nil:
		o.state.Status = core.RunFailed
		o.state.Err = o.fatalErr.Error()
	case o.cancelRequested:
		o.state.Status = core.RunCancelled
	default:
		o.state.Status = core.RunCompleted
	}
	o.resultErr = o.fatalErr
	o.mu.Unlock()
	o.recomputeAndEmit()

	o.r.logger.Info().Str("run_id", o.state.RunID).Str("status", o.state.Status.String()).Msg("batch run finished")
}

// dispatch admits as many ready, non-conflicting anchors as the scheduling
// mode and parallelism cap allow.
func (o *owner) dispatch() {
	if o.cancelRequested || o.generationDone {
		return
	}
	ready := o.sched.Ready()
	if len(ready) == 0 {
		return
	}

	var toStart []string
	if o.r.schedulingMode == core.RollingFill {
		slots := o.r.maxParallel - len(o.inFlight)
		if slots <= 0 {
			return
		}
		toStart = o.sched.SelectWave(ready, slots)
	} else {
		if len(o.inFlight) > 0 {
			return
		}
		toStart = o.sched.SelectWave(ready, o.r.maxParallel)
	}
	if len(toStart) == 0 {
		return
	}

	now := nowMillis()
	if o.r.schedulingMode == core.WaveBarrier {
		o.waveIndex++
		idx := o.waveIndex
		o.mu.Lock()
		o.state.Waves = append(o.state.Waves, core.Wave{
			Index:     idx,
			TaskIDs:   append([]string(nil), toStart...),
			StartedAt: now,
		})
		o.mu.Unlock()
		o.pendingInWave[idx] = len(toStart)
		for _, id := range toStart {
			o.anchorWave[id] = idx
		}
	}

	for _, id := range toStart {
		o.inFlight[id] = true
		_ = scheduler.Transition(o.plan, id, core.AnchorPending, core.AnchorRunning)
		o.plan.Anchors[id].StartedAt = now
		anchorCopy := o.plan.Anchors[id].Clone()
		go o.runAnchor(o.ctx, anchorCopy)
	}
	o.recomputeAndEmit()
}

// runAnchor executes one anchor to a terminal outcome (including any review
// cycles) and reports the result back to the owner loop. Review rejections
// loop internally and do not consume the Runner's retry budget - the
// Runner and the review ladder are orthogonal retry counters.
func (o *owner) runAnchor(ctx context.Context, anchor core.Anchor) {
	variant := o.r.modelVariant

	execute := func(ctx context.Context, a core.Anchor, attempt int) (core.ExecuteOutcome, error) {
		if !o.r.reviewEnabled {
			return o.r.executeAnchor(ctx, a, attempt)
		}
		for {
			a.ModelVariant = string(variant)
			outcome, err := o.r.executeAnchor(ctx, a, attempt)
			if err != nil {
				return outcome, err
			}
			decision, rvErr := o.review.Enqueue(ctx, a.ID)
			if rvErr != nil {
				return outcome, rvErr
			}
			if decision == core.ReviewAccept {
				outcome.ModelVariant = variant
				return outcome, nil
			}
			variant = core.EscalateModelVariant(variant)
		}
	}

	rn := runner.New(execute, o.r.maxGenerateRetries)
	outcome, attempts, err := rn.Run(ctx, anchor)
	o.anchorDoneCh <- anchorResult{id: anchor.ID, outcome: outcome, attempts: attempts, err: err}
}

func (o *owner) handleAnchorDone(res anchorResult) {
	delete(o.inFlight, res.id)
	a := o.plan.Anchors[res.id]
	now := nowMillis()
	a.Attempt = res.attempts
	a.FinishedAt = now

	if errors.Is(res.err, core.ErrCancelled) {
		return
	}

	if res.err != nil {
		blocked, err := scheduler.PropagateFailure(o.plan, res.id)
		if err != nil {
			o.markFatal(err)
		}
		a.Error = res.err.Error()
		o.recordWaveOutcome(res.id, now, false, blocked)
		o.r.logger.Warn().Str("anchor_id", res.id).Int("attempts", res.attempts).Err(res.err).Msg("anchor failed")
	} else {
		if err := scheduler.Transition(o.plan, res.id, core.AnchorRunning, core.AnchorSuccess); err != nil {
			o.markFatal(err)
		}
		if res.outcome.ModelVariant != "" {
			a.ModelVariant = string(res.outcome.ModelVariant)
		}
		o.agg.Mark(footprint(*a, o.r.mapWidth, o.r.mapHeight), time.UnixMilli(now))
		o.recordWaveOutcome(res.id, now, true, nil)
	}

	o.maybeFlushParent(now)
	o.recomputeAndEmit()
}

func (o *owner) recordWaveOutcome(id string, now int64, success bool, blocked []string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.r.schedulingMode == core.WaveBarrier {
		idx := o.anchorWave[id]
		i := o.findWaveSliceIndex(idx)
		if i < 0 {
			return
		}
		if success {
			o.state.Waves[i].SuccessIDs = append(o.state.Waves[i].SuccessIDs, id)
			o.waveHasSuccess[idx] = true
		} else {
			o.state.Waves[i].FailedIDs = append(o.state.Waves[i].FailedIDs, id)
		}
		o.state.Waves[i].NewlyBlocked = append(o.state.Waves[i].NewlyBlocked, blocked...)

		o.pendingInWave[idx]--
		if o.pendingInWave[idx] <= 0 {
			o.state.Waves[i].FinishedAt = now
			if o.waveHasSuccess[idx] {
				o.agg.OnWaveCompleted()
			}
		}
		return
	}

	// rolling_fill: one wave record per completion.
	o.waveIndex++
	idx := o.waveIndex
	a := o.plan.Anchors[id]
	w := core.Wave{Index: idx, TaskIDs: []string{id}, StartedAt: a.StartedAt, FinishedAt: now}
	if success {
		w.SuccessIDs = []string{id}
		o.agg.OnWaveCompleted()
	} else {
		w.FailedIDs = []string{id}
	}
	w.NewlyBlocked = append([]string(nil), blocked...)
	o.state.Waves = append(o.state.Waves, w)
}

func (o *owner) maybeFlushParent(nowMs int64) {
	if o.agg.ShouldFlush(time.UnixMilli(nowMs)) {
		if job := o.agg.Flush(o.r.z); job != nil {
			o.enqueueParentJob(*job)
		}
	}
}

func (o *owner) enqueueParentJob(job core.ParentRefreshJob) {
	o.mu.Lock()
	o.state.ParentJobs = append(o.state.ParentJobs, job.Clone())
	o.mu.Unlock()
	o.parentJobsCh <- job
}

func (o *owner) handleParentResult(res core.ParentRefreshJob) {
	o.mu.Lock()
	for i := range o.state.ParentJobs {
		if o.state.ParentJobs[i].ID == res.ID {
			o.state.ParentJobs[i] = res.Clone()
			break
		}
	}
	o.mu.Unlock()
	if res.Status == core.ParentJobFailed && o.fatalErr == nil {
		o.r.logger.Error().Int("job_id", res.ID).Str("err", res.Err).Msg("parent refresh job failed permanently")
		o.markFatal(core.ParentFatalf(errors.New(res.Err)))
	}
	o.recomputeAndEmit()
}

// finishGenerationIfReady transitions out of the generation phase once no
// anchor goroutine remains outstanding and either every anchor has reached
// a terminal status, or the run was cancelled. It performs the mandatory
// final aggregator flush and, unless cancelled, the catch-up job, then
// closes the parent job queue so the worker pool can drain and exit.
func (o *owner) finishGenerationIfReady() {
	if o.generationDone {
		return
	}
	if len(o.inFlight) > 0 {
		return
	}
	if !o.cancelRequested && !o.sched.Done() {
		// Safety net, unreachable under eager propagation: a PENDING anchor
		// whose dependency is FAILED or BLOCKED can never start, so force it
		// to BLOCKED rather than leave the run waiting forever.
		for stuck := o.sched.StuckPending(); len(stuck) > 0; stuck = o.sched.StuckPending() {
			for _, id := range stuck {
				_ = scheduler.Transition(o.plan, id, core.AnchorPending, core.AnchorBlocked)
				o.r.logger.Warn().Str("anchor_id", id).Msg("forcing stuck PENDING anchor to BLOCKED")
			}
		}
		if !o.sched.Done() {
			return
		}
	}
	o.generationDone = true

	o.mu.Lock()
	o.state.Status = core.RunCompleting
	o.mu.Unlock()

	if job := o.agg.Flush(o.r.z); job != nil {
		o.enqueueParentJob(*job)
	}
	if !o.cancelRequested {
		if job, ok := o.agg.CatchUp(o.r.z); ok {
			o.enqueueParentJob(*job)
		}
	}
	close(o.parentJobsCh)
	o.recomputeAndEmit()
}
