package scheduler

import (
	"reflect"
	"testing"

	"github.com/anchorgrid/anchorsched/internal/core"
	"github.com/anchorgrid/anchorsched/internal/planner"
)

func TestScheduler_Ready_OnlyOrigin(t *testing.T) {
	plan := planner.Build(planner.Input{OriginX: 20, OriginY: 20, Layers: 2, MapWidth: 64, MapHeight: 64})
	s := New(plan)
	ready := s.Ready()
	if len(ready) != 1 || ready[0] != "u:0,v:0" {
		t.Fatalf("expected only origin ready initially, got %v", ready)
	}
}

func TestScheduler_Ready_AfterOriginSucceeds(t *testing.T) {
	plan := planner.Build(planner.Input{OriginX: 20, OriginY: 20, Layers: 1, MapWidth: 64, MapHeight: 64})
	plan.Anchors["u:0,v:0"].Status = core.AnchorSuccess
	s := New(plan)
	ready := s.Ready()
	if len(ready) != 8 {
		t.Fatalf("expected all 8 ring-1 anchors ready, got %d: %v", len(ready), ready)
	}
}

func TestScheduler_SelectWave_RespectsOverlap(t *testing.T) {
	plan := planner.Build(planner.Input{OriginX: 20, OriginY: 20, Layers: 1, MapWidth: 64, MapHeight: 64})
	plan.Anchors["u:0,v:0"].Status = core.AnchorSuccess
	s := New(plan)
	ready := s.Ready()
	picked := s.SelectWave(ready, 8)

	for i := 0; i < len(picked); i++ {
		for j := i + 1; j < len(picked); j++ {
			a, b := plan.Anchors[picked[i]], plan.Anchors[picked[j]]
			if a.Overlaps(*b) {
				t.Fatalf("selected wave contains overlapping anchors %q and %q", picked[i], picked[j])
			}
		}
	}
}

func TestScheduler_SelectWave_CapsAtMaxParallel(t *testing.T) {
	plan := planner.Build(planner.Input{OriginX: 20, OriginY: 20, Layers: 1, MapWidth: 64, MapHeight: 64})
	plan.Anchors["u:0,v:0"].Status = core.AnchorSuccess
	s := New(plan)
	picked := s.SelectWave(s.Ready(), 2)
	if len(picked) != 2 {
		t.Fatalf("expected exactly 2 picked, got %d: %v", len(picked), picked)
	}
}

func TestTransition_AllowedAndDisallowed(t *testing.T) {
	plan := planner.Build(planner.Input{OriginX: 20, OriginY: 20, Layers: 0, MapWidth: 64, MapHeight: 64})
	if err := Transition(plan, "u:0,v:0", core.AnchorPending, core.AnchorRunning); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Transition(plan, "u:0,v:0", core.AnchorPending, core.AnchorRunning); err == nil {
		t.Fatalf("expected error transitioning from stale 'from' state")
	}
	if err := Transition(plan, "u:0,v:0", core.AnchorRunning, core.AnchorBlocked); err == nil {
		t.Fatalf("expected error for disallowed transition RUNNING->BLOCKED")
	}
}

func TestPropagateFailure_BlocksDescendants(t *testing.T) {
	plan := planner.Build(planner.Input{OriginX: 20, OriginY: 20, Layers: 2, MapWidth: 64, MapHeight: 64})
	plan.Anchors["u:0,v:0"].Status = core.AnchorSuccess
	plan.Anchors["u:1,v:0"].Status = core.AnchorRunning

	blocked, err := PropagateFailure(plan, "u:1,v:0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// u:2,v:-1, u:2,v:0 and u:2,v:1 all depend on u:1,v:0 (one step toward
	// the origin on both axes).
	want := []string{"u:2,v:-1", "u:2,v:0", "u:2,v:1"}
	if !reflect.DeepEqual(blocked, want) {
		t.Fatalf("blocked = %v, want %v", blocked, want)
	}
	if plan.Anchors["u:1,v:0"].Status != core.AnchorFailed {
		t.Fatalf("expected u:1,v:0 FAILED")
	}
	if plan.Anchors["u:2,v:0"].Status != core.AnchorBlocked {
		t.Fatalf("expected u:2,v:0 BLOCKED")
	}
	if plan.Anchors["u:2,v:0"].BlockedBy != "u:1,v:0" {
		t.Fatalf("expected BlockedBy = u:1,v:0, got %q", plan.Anchors["u:2,v:0"].BlockedBy)
	}
	// Unrelated subtree must be untouched.
	if plan.Anchors["u:0,v:1"].Status != core.AnchorPending {
		t.Fatalf("expected unrelated subtree u:0,v:1 to remain PENDING")
	}
}

func TestPropagateFailure_RunningDescendantIsInvariantViolation(t *testing.T) {
	plan := planner.Build(planner.Input{OriginX: 20, OriginY: 20, Layers: 2, MapWidth: 64, MapHeight: 64})
	plan.Anchors["u:0,v:0"].Status = core.AnchorSuccess
	plan.Anchors["u:1,v:0"].Status = core.AnchorRunning
	plan.Anchors["u:2,v:0"].Status = core.AnchorRunning // should never happen in practice

	if _, err := PropagateFailure(plan, "u:1,v:0"); err == nil {
		t.Fatalf("expected invariant violation error")
	}
}

func TestScheduler_Done(t *testing.T) {
	plan := planner.Build(planner.Input{OriginX: 20, OriginY: 20, Layers: 0, MapWidth: 64, MapHeight: 64})
	s := New(plan)
	if s.Done() {
		t.Fatalf("expected not done while origin is PENDING")
	}
	plan.Anchors["u:0,v:0"].Status = core.AnchorSuccess
	if !s.Done() {
		t.Fatalf("expected done once origin anchor reaches terminal status")
	}
}
