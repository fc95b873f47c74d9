package parentpool

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/anchorgrid/anchorsched/internal/core"
	"github.com/anchorgrid/anchorsched/internal/runner"
)

// Pool runs ParentRefreshJobs with bounded concurrency.
type Pool struct {
	Refresh     core.RefreshParentLevelFunc
	Retries     int
	Concurrency int
	Clock       runner.Clock
}

// New returns a Pool configured with the given collaborator, per-job retry
// budget, and worker concurrency.
func New(refresh core.RefreshParentLevelFunc, retries, concurrency int) *Pool {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Pool{Refresh: refresh, Retries: retries, Concurrency: concurrency}
}

// Run drains jobs from the jobs channel (closed by the caller once no more
// jobs will be queued) with up to Concurrency workers, sending each
// finished job (SUCCESS or FAILED) to results. It returns
// core.ErrParentRefreshFatal-wrapped error as soon as one job exhausts its
// retries - at that point the shared context is cancelled and every other
// in-flight job is aborted.
//
// Run returns once every worker has exited; the caller must drain results
// until Run returns to avoid a worker blocking on a full channel.
func (p *Pool) Run(ctx context.Context, jobs <-chan core.ParentRefreshJob, results chan<- core.ParentRefreshJob) error {
	if p.Refresh == nil {
		return core.Invalidf("no refresh_parent_level collaborator configured")
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < p.Concurrency; i++ {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case job, ok := <-jobs:
					if !ok {
						return nil
					}
					finished := p.runJob(gctx, job)
					if err := gctx.Err(); err != nil {
						// Cancelled mid-job: not a retry exhaustion, so not fatal.
						return err
					}
					select {
					case results <- finished:
					case <-gctx.Done():
						return gctx.Err()
					}
					if finished.Status == core.ParentJobFailed {
						return core.ParentFatalf(errors.New(finished.Err))
					}
				}
			}
		})
	}
	return g.Wait()
}

// runJob cascades one job upward through the pyramid, retrying the whole
// cascade up to Retries+1 times on failure.
func (p *Pool) runJob(ctx context.Context, job core.ParentRefreshJob) core.ParentRefreshJob {
	job.Status = core.ParentJobRunning
	clock := p.Clock
	if clock == nil {
		clock = realClock{}
	}

	attempts := p.Retries + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		job.Attempt = attempt

		childZ := job.ChildZ
		childTiles := job.Leaves
		level := 0
		var err error
		for childZ > 0 && len(childTiles) > 0 && level < job.MaxLevels {
			if ctxErr := ctx.Err(); ctxErr != nil {
				err = ctxErr
				break
			}
			job.CurrentZ = childZ
			var parents []core.TileCoord
			parents, err = p.Refresh(ctx, childZ, childTiles)
			if err != nil {
				break
			}
			childTiles = parents
			childZ--
			level++
		}

		if err == nil {
			job.Status = core.ParentJobSuccess
			job.Err = ""
			return job
		}
		lastErr = err

		if attempt == attempts {
			break
		}
		if sleepErr := clock.Sleep(ctx, runner.Backoff(attempt, nil)); sleepErr != nil {
			job.Status = core.ParentJobFailed
			job.Err = sleepErr.Error()
			return job
		}
	}

	job.Status = core.ParentJobFailed
	if lastErr != nil {
		job.Err = lastErr.Error()
	}
	return job
}

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
