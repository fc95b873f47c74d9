package scheduler

import "github.com/anchorgrid/anchorsched/internal/core"

// Scheduler holds a reference to an immutable Plan and computes readiness
// and overlap-safe selections against the plan's anchors. It performs no
// locking of its own; the caller (batchrun's owner loop) is the single
// writer of anchor status.
type Scheduler struct {
	plan *core.Plan
}

// New returns a Scheduler bound to plan.
func New(plan *core.Plan) *Scheduler {
	return &Scheduler{plan: plan}
}

// Ready returns, in ascending priority order, the ids of every anchor that
// is PENDING with every dependency SUCCESS.
func (s *Scheduler) Ready() []string {
	ready := make([]string, 0)
	for _, id := range s.plan.Order {
		a := s.plan.Anchors[id]
		if a.Status != core.AnchorPending {
			continue
		}
		if a.DependsOn != "" && s.plan.Anchors[a.DependsOn].Status != core.AnchorSuccess {
			continue
		}
		ready = append(ready, id)
	}
	return ready
}

// SelectWave greedily picks up to maxParallel ready anchors (in priority
// order) that do not conflict with each other or with any anchor already
// running, per the overlap-safety rule (§3 "Overlap rule").
func (s *Scheduler) SelectWave(ready []string, maxParallel int) []string {
	if maxParallel <= 0 {
		return nil
	}
	running := make([]core.Anchor, 0)
	for _, id := range s.plan.Order {
		a := s.plan.Anchors[id]
		if a.Status == core.AnchorRunning {
			running = append(running, *a)
		}
	}

	selected := make([]core.Anchor, 0, maxParallel)
	picked := make([]string, 0, maxParallel)
	for _, id := range ready {
		if len(picked) >= maxParallel {
			break
		}
		cand := *s.plan.Anchors[id]
		if conflicts(cand, running) || conflicts(cand, selected) {
			continue
		}
		selected = append(selected, cand)
		picked = append(picked, id)
	}
	return picked
}

func conflicts(cand core.Anchor, against []core.Anchor) bool {
	for _, a := range against {
		if cand.Overlaps(a) {
			return true
		}
	}
	return false
}

// Done reports whether every anchor in the plan has reached a terminal
// status.
func (s *Scheduler) Done() bool {
	for _, id := range s.plan.Order {
		if !core.IsTerminal(s.plan.Anchors[id].Status) {
			return false
		}
	}
	return true
}

// StuckPending returns ids of anchors that are still PENDING but have no
// path to readiness (a dependency is FAILED or BLOCKED). This should be
// unreachable given correct failure propagation; it exists as a safety net
// invoked once generation has otherwise stalled (see Transition/
// PropagateFailure in state_machine.go, and the "Design Notes" open
// question on eager vs. safety-net blocking).
func (s *Scheduler) StuckPending() []string {
	var stuck []string
	for _, id := range s.plan.Order {
		a := s.plan.Anchors[id]
		if a.Status != core.AnchorPending {
			continue
		}
		if a.DependsOn == "" {
			continue
		}
		depStatus := s.plan.Anchors[a.DependsOn].Status
		if depStatus == core.AnchorFailed || depStatus == core.AnchorBlocked {
			stuck = append(stuck, id)
		}
	}
	return stuck
}
