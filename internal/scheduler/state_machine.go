package scheduler

import (
	"fmt"

	"github.com/anchorgrid/anchorsched/internal/core"
)

// Transition performs an atomic validated transition for a single anchor.
//
// The caller supplies the expected prior status (from) to make races
// observable. The plan is mutated if and only if the transition is valid.
func Transition(plan *core.Plan, id string, from, to core.AnchorStatus) error {
	a, ok := plan.Anchors[id]
	if !ok {
		return core.UnknownAnchorf("transition: %q", id)
	}
	if a.Status != from {
		return fmt.Errorf("invalid transition for %q: expected %s, got %s", id, from, a.Status)
	}
	if !isAllowedTransition(from, to) {
		return fmt.Errorf("disallowed transition for %q: %s -> %s", id, from, to)
	}
	a.Status = to
	return nil
}

func isAllowedTransition(from, to core.AnchorStatus) bool {
	switch from {
	case core.AnchorPending:
		return to == core.AnchorRunning || to == core.AnchorBlocked
	case core.AnchorRunning:
		return to == core.AnchorSuccess || to == core.AnchorFailed
	default:
		return false
	}
}

// PropagateFailure transitions id to FAILED (from RUNNING) and transitively
// marks every still-PENDING descendant as BLOCKED, via breadth-first
// traversal of the dependency tree's reverse edges (Dependents).
//
// Determinism: the set marked BLOCKED is defined purely by reachability, and
// traversal visits each anchor's Dependents in the sorted order the planner
// assigned them, so the returned slice is deterministic for a given plan.
//
// Safety: if a downstream anchor is already RUNNING, this is treated as an
// invariant violation - it indicates a readiness (dependency-order) bug upstream, since a
// RUNNING descendant implies its dependency (the failing anchor) had already
// reached SUCCESS when it was admitted, contradicting the fact that it is
// now failing for the first time.
func PropagateFailure(plan *core.Plan, id string) ([]string, error) {
	a, ok := plan.Anchors[id]
	if !ok {
		return nil, core.UnknownAnchorf("propagate failure: %q", id)
	}
	if a.Status != core.AnchorRunning {
		return nil, fmt.Errorf("cannot fail %q from status %s", id, a.Status)
	}
	a.Status = core.AnchorFailed

	visited := map[string]bool{id: true}
	queue := append([]string(nil), a.Dependents...)
	var newlyBlocked []string

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if visited[cur] {
			continue
		}
		visited[cur] = true

		node := plan.Anchors[cur]
		switch node.Status {
		case core.AnchorPending:
			node.Status = core.AnchorBlocked
			node.BlockedBy = id
			newlyBlocked = append(newlyBlocked, cur)
		case core.AnchorRunning:
			return nil, fmt.Errorf("invariant violation: downstream anchor %q is RUNNING during failure propagation", cur)
		default:
			// Terminal already (SUCCESS/FAILED/BLOCKED): leave unchanged.
		}

		queue = append(queue, node.Dependents...)
	}

	return newlyBlocked, nil
}
