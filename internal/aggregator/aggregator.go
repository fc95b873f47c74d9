package aggregator

import (
	"sort"
	"time"

	"github.com/anchorgrid/anchorsched/internal/core"
)

// Config holds the three flush-policy thresholds plus the cascade
// parameters needed to size a catch-up job.
type Config struct {
	DebounceMs     int
	WaveBatchSize  int
	LeafBatchSize  int
	CascadeDepth   int
	LeafZ          int
}

// Aggregator tracks leaf tiles touched since the last flush and decides,
// under the configured OR-combined policies, when a ParentRefreshJob should
// be emitted. It is not safe for concurrent use; the owning caller
// (batchrun) is the single writer.
type Aggregator struct {
	cfg Config

	dirty       map[core.TileCoord]struct{}
	firstMarkAt time.Time
	wavesSince  int

	touched map[core.TileCoord]struct{}

	catchUpEmitted bool
	nextJobID      int
}

// New returns an Aggregator configured with cfg.
func New(cfg Config) *Aggregator {
	return &Aggregator{
		cfg:     cfg,
		dirty:   make(map[core.TileCoord]struct{}),
		touched: make(map[core.TileCoord]struct{}),
	}
}

// Mark records tiles as dirty as of now. Call once per successful anchor
// with its clipped 3x3 footprint.
func (a *Aggregator) Mark(tiles []core.TileCoord, now time.Time) {
	if len(a.dirty) == 0 && len(tiles) > 0 {
		a.firstMarkAt = now
	}
	for _, t := range tiles {
		a.dirty[t] = struct{}{}
		a.touched[t] = struct{}{}
	}
}

// OnWaveCompleted increments the wave-batch counter. Call once per
// completed wave that produced at least one success.
func (a *Aggregator) OnWaveCompleted() {
	a.wavesSince++
}

// ShouldFlush reports whether any of the three flush policies fires at the
// given instant: debounce elapsed, wave-batch size reached, or leaf-batch
// size reached.
func (a *Aggregator) ShouldFlush(now time.Time) bool {
	if len(a.dirty) == 0 {
		return false
	}
	if a.cfg.WaveBatchSize > 0 && a.wavesSince >= a.cfg.WaveBatchSize {
		return true
	}
	if a.cfg.LeafBatchSize > 0 && len(a.dirty) >= a.cfg.LeafBatchSize {
		return true
	}
	if a.cfg.DebounceMs > 0 && !a.firstMarkAt.IsZero() {
		if now.Sub(a.firstMarkAt) >= time.Duration(a.cfg.DebounceMs)*time.Millisecond {
			return true
		}
	}
	return false
}

// Flush produces a ParentRefreshJob over the current dirty set and resets
// the aggregator's per-batch state (dirty set and wave counter). It returns
// nil if there is nothing dirty. The job's leaf list is sorted for
// deterministic output.
func (a *Aggregator) Flush(childZ int) *core.ParentRefreshJob {
	if len(a.dirty) == 0 {
		return nil
	}
	leaves := sortedLeaves(a.dirty)
	a.dirty = make(map[core.TileCoord]struct{})
	a.wavesSince = 0

	a.nextJobID++
	return &core.ParentRefreshJob{
		ID:        a.nextJobID,
		ChildZ:    childZ,
		MaxLevels: a.cfg.CascadeDepth,
		Leaves:    leaves,
		Status:    core.ParentJobQueued,
	}
}

// SkipCatchUp reports whether the final catch-up job is unnecessary because
// every regular flush already cascades all the way to the root level.
func (a *Aggregator) SkipCatchUp() bool {
	return a.cfg.CascadeDepth >= a.cfg.LeafZ
}

// CatchUp produces the final unconditional job over the cumulative touched
// set, cascading every remaining zoom level. It is a no-op (returns nil,
// false) if SkipCatchUp is true, the catch-up was already emitted, or
// nothing was ever touched.
func (a *Aggregator) CatchUp(childZ int) (*core.ParentRefreshJob, bool) {
	if a.catchUpEmitted || a.SkipCatchUp() || len(a.touched) == 0 {
		return nil, false
	}
	a.catchUpEmitted = true
	a.nextJobID++
	return &core.ParentRefreshJob{
		ID:        a.nextJobID,
		ChildZ:    childZ,
		MaxLevels: a.cfg.LeafZ,
		Leaves:    sortedLeaves(a.touched),
		Status:    core.ParentJobQueued,
	}, true
}

func sortedLeaves(set map[core.TileCoord]struct{}) []core.TileCoord {
	out := make([]core.TileCoord, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].X != out[j].X {
			return out[i].X < out[j].X
		}
		return out[i].Y < out[j].Y
	})
	return out
}
