package planner

import (
	"reflect"
	"testing"
)

func TestBuild_OriginOnly(t *testing.T) {
	p := Build(Input{OriginX: 20, OriginY: 20, Layers: 0, MapWidth: 64, MapHeight: 64})
	if len(p.Order) != 1 {
		t.Fatalf("expected exactly 1 anchor, got %d", len(p.Order))
	}
	if p.Order[0] != "u:0,v:0" {
		t.Fatalf("expected origin anchor first, got %q", p.Order[0])
	}
	a := p.Anchors["u:0,v:0"]
	if a.DependsOn != "" {
		t.Fatalf("origin anchor must have no dependency, got %q", a.DependsOn)
	}
}

func TestBuild_PriorityOrder_OriginFirst(t *testing.T) {
	p := Build(Input{OriginX: 20, OriginY: 20, Layers: 2, MapWidth: 64, MapHeight: 64})
	if p.Order[0] != "u:0,v:0" {
		t.Fatalf("expected origin first in priority order, got %q", p.Order[0])
	}
	// Axis neighbors at distance 1 must precede any interior anchor.
	distOneAxis := map[string]bool{"u:1,v:0": true, "u:-1,v:0": true, "u:0,v:1": true, "u:0,v:-1": true}
	sawInterior := false
	for _, id := range p.Order[1:] {
		a := p.Anchors[id]
		if a.Priority.Distance == 1 && !distOneAxis[id] {
			t.Fatalf("unexpected non-axis anchor at distance 1: %q", id)
		}
		if a.U != 0 && a.V != 0 {
			sawInterior = true
		} else if distOneAxis[id] && sawInterior {
			t.Fatalf("axis neighbor %q ordered after an interior anchor", id)
		}
	}
}

func TestBuild_DependencyIsOneStepTowardOrigin(t *testing.T) {
	p := Build(Input{OriginX: 20, OriginY: 20, Layers: 2, MapWidth: 64, MapHeight: 64})
	a := p.Anchors["u:2,v:1"]
	if a == nil {
		t.Fatalf("expected anchor u:2,v:1 to exist")
	}
	if a.DependsOn != "u:1,v:0" {
		t.Fatalf("expected dep u:1,v:0 (moved one step toward origin on both axes), got %q", a.DependsOn)
	}
}

func TestBuild_DependentsReverseEdges(t *testing.T) {
	p := Build(Input{OriginX: 20, OriginY: 20, Layers: 1, MapWidth: 64, MapHeight: 64})
	origin := p.Anchors["u:0,v:0"]
	want := []string{"u:-1,v:-1", "u:-1,v:0", "u:-1,v:1", "u:0,v:-1", "u:0,v:1", "u:1,v:-1", "u:1,v:0", "u:1,v:1"}
	if !reflect.DeepEqual(origin.Dependents, want) {
		t.Fatalf("origin dependents = %v, want %v", origin.Dependents, want)
	}
}

func TestBuild_DropsOutOfBoundsAnchorsAndDanglingDeps(t *testing.T) {
	// Origin near the map edge: some offsets fall off-map and must be
	// dropped, and any anchor whose dependency fell off-map must have an
	// empty DependsOn rather than dangling.
	p := Build(Input{OriginX: 1, OriginY: 1, Layers: 2, MapWidth: 64, MapHeight: 64})
	for id, a := range p.Anchors {
		if a.X < 0 || a.X >= 64 || a.Y < 0 || a.Y >= 64 {
			t.Fatalf("anchor %q at (%d, %d) lies outside the map", id, a.X, a.Y)
		}
		if a.DependsOn != "" {
			if _, ok := p.Anchors[a.DependsOn]; !ok {
				t.Fatalf("anchor %q has dangling dependency %q", id, a.DependsOn)
			}
		}
	}
}

func TestBuild_PlanHashDeterministic(t *testing.T) {
	in := Input{OriginX: 20, OriginY: 20, Layers: 2, MapWidth: 64, MapHeight: 64}
	p1 := Build(in)
	p2 := Build(in)
	if p1.PlanHash == "" {
		t.Fatalf("expected non-empty plan hash")
	}
	if p1.PlanHash != p2.PlanHash {
		t.Fatalf("plan hash not deterministic: %q vs %q", p1.PlanHash, p2.PlanHash)
	}
}

func TestBuild_PlanHashDiffersOnDifferentInput(t *testing.T) {
	p1 := Build(Input{OriginX: 20, OriginY: 20, Layers: 2, MapWidth: 64, MapHeight: 64})
	p2 := Build(Input{OriginX: 21, OriginY: 20, Layers: 2, MapWidth: 64, MapHeight: 64})
	if p1.PlanHash == p2.PlanHash {
		t.Fatalf("expected different plan hashes for different origins")
	}
}

func TestBuild_EmptyPlanWhenOriginOutOfBounds(t *testing.T) {
	p := Build(Input{OriginX: -1, OriginY: -1, Layers: 0, MapWidth: 64, MapHeight: 64})
	if !p.IsEmpty() {
		t.Fatalf("expected empty plan for out-of-bounds origin")
	}
}
