package planner

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/anchorgrid/anchorsched/internal/core"
)

// Input is the set of parameters a plan is built from. Validation of ranges
// (layers clamp, etc.) happens one layer up, in batchrun; Build accepts
// already-validated values.
type Input struct {
	OriginX, OriginY int
	Layers           int
	MapWidth         int
	MapHeight        int
}

// Build constructs the anchor plan for the given input. The result is
// deterministic: identical input always yields an identical anchor set,
// priority order, and PlanHash.
func Build(in Input) *core.Plan {
	type raw struct {
		u, v, x, y int
	}

	candidates := make(map[[2]int]raw)
	for u := -in.Layers; u <= in.Layers; u++ {
		for v := -in.Layers; v <= in.Layers; v++ {
			x := in.OriginX + 2*u
			y := in.OriginY + 2*v
			if x < 0 || x >= in.MapWidth || y < 0 || y >= in.MapHeight {
				continue
			}
			candidates[[2]int{u, v}] = raw{u: u, v: v, x: x, y: y}
		}
	}

	anchors := make(map[string]*core.Anchor, len(candidates))
	for _, r := range candidates {
		id := core.AnchorID(r.u, r.v)
		anchors[id] = &core.Anchor{
			ID:       id,
			U:        r.u,
			V:        r.v,
			X:        r.x,
			Y:        r.y,
			Priority: priorityOf(r.u, r.v),
			Status:   core.AnchorPending,
		}
	}

	// Wire dependency edges: dep = (u - sign(u), v - sign(v)), dropped if
	// the dependency anchor isn't present in the plan (off-map or
	// clipped).
	for _, a := range anchors {
		du, dv := a.U-sign(a.U), a.V-sign(a.V)
		if du == 0 && dv == 0 && a.U == 0 && a.V == 0 {
			continue // origin has no dependency
		}
		depID := core.AnchorID(du, dv)
		dep, ok := anchors[depID]
		if !ok {
			continue
		}
		a.DependsOn = depID
		dep.Dependents = append(dep.Dependents, a.ID)
	}

	order := make([]string, 0, len(anchors))
	for id := range anchors {
		order = append(order, id)
	}
	sort.Slice(order, func(i, j int) bool {
		return less(anchors[order[i]], anchors[order[j]])
	})

	// Sort each anchor's Dependents for deterministic BFS propagation
	// order downstream in the scheduler.
	for _, a := range anchors {
		if len(a.Dependents) > 1 {
			sort.Strings(a.Dependents)
		}
	}

	plan := &core.Plan{
		OriginX:  in.OriginX,
		OriginY:  in.OriginY,
		Layers:   in.Layers,
		MapWidth: in.MapWidth,
		MapHeight: in.MapHeight,
		Anchors:  anchors,
		Order:    order,
		Bounds:   bounds(anchors, in.MapWidth, in.MapHeight),
	}
	plan.PlanHash = computePlanHash(plan)
	return plan
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	default:
		return 0
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func priorityOf(u, v int) core.Priority {
	distance := abs(u) + abs(v)
	switch {
	case u == 0 && v == 0:
		return core.Priority{Distance: distance, Bucket: core.BucketOrigin, QuadrantOrder: 4}
	case v == 0:
		return core.Priority{Distance: distance, Bucket: core.BucketAxisX, QuadrantOrder: 4}
	case u == 0:
		return core.Priority{Distance: distance, Bucket: core.BucketAxisY, QuadrantOrder: 4}
	default:
		return core.Priority{Distance: distance, Bucket: core.BucketInterior, QuadrantOrder: quadrantOrder(u, v)}
	}
}

// quadrantOrder ranks interior anchors NE, NW, SE, SW - assuming +u is east
// and +v is north.
func quadrantOrder(u, v int) int {
	switch {
	case u > 0 && v > 0:
		return 0 // NE
	case u < 0 && v > 0:
		return 1 // NW
	case u > 0 && v < 0:
		return 2 // SE
	default:
		return 3 // SW
	}
}

// less implements the total order from SPEC_FULL.md §4.1.
func less(a, b *core.Anchor) bool {
	if a.Priority.Distance != b.Priority.Distance {
		return a.Priority.Distance < b.Priority.Distance
	}
	if a.Priority.Bucket != b.Priority.Bucket {
		return a.Priority.Bucket < b.Priority.Bucket
	}
	switch a.Priority.Bucket {
	case core.BucketAxisX:
		if abs(a.U) != abs(b.U) {
			return abs(a.U) < abs(b.U)
		}
		if a.U != b.U {
			return a.U > b.U // positive before negative at same magnitude
		}
	case core.BucketAxisY:
		if abs(a.V) != abs(b.V) {
			return abs(a.V) < abs(b.V)
		}
		if a.V != b.V {
			return a.V > b.V
		}
	case core.BucketInterior:
		if a.Priority.QuadrantOrder != b.Priority.QuadrantOrder {
			return a.Priority.QuadrantOrder < b.Priority.QuadrantOrder
		}
		ringA, ringB := maxInt(abs(a.U), abs(a.V)), maxInt(abs(b.U), abs(b.V))
		if ringA != ringB {
			return ringA < ringB
		}
		if abs(a.U) != abs(b.U) {
			return abs(a.U) < abs(b.U)
		}
	}
	if a.V != b.V {
		return a.V < b.V
	}
	if a.U != b.U {
		return a.U < b.U
	}
	return a.ID < b.ID
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func bounds(anchors map[string]*core.Anchor, mapWidth, mapHeight int) core.Bounds {
	if len(anchors) == 0 {
		return core.Bounds{}
	}
	first := true
	var b core.Bounds
	for _, a := range anchors {
		minX, minY := maxInt(a.X-1, 0), maxInt(a.Y-1, 0)
		maxX, maxY := a.X+1, a.Y+1
		if maxX > mapWidth-1 {
			maxX = mapWidth - 1
		}
		if maxY > mapHeight-1 {
			maxY = mapHeight - 1
		}
		if first {
			b = core.Bounds{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}
			first = false
			continue
		}
		if minX < b.MinX {
			b.MinX = minX
		}
		if minY < b.MinY {
			b.MinY = minY
		}
		if maxX > b.MaxX {
			b.MaxX = maxX
		}
		if maxY > b.MaxY {
			b.MaxY = maxY
		}
	}
	return b
}

// computePlanHash digests the canonical anchor set in priority order, so the
// result is independent of the intermediate map's iteration order. The
// length-prefixed field encoding mirrors the graph-hashing discipline used
// elsewhere in this codebase for content-addressed identity.
func computePlanHash(plan *core.Plan) string {
	h := sha256.New()

	writeField := func(s string) {
		length := uint64(len(s))
		var lengthBytes [8]byte
		for i := 0; i < 8; i++ {
			lengthBytes[7-i] = byte(length >> (8 * i))
		}
		h.Write(lengthBytes[:])
		h.Write([]byte(s))
	}

	writeField(fmt.Sprintf("%d,%d,%d,%d,%d", plan.OriginX, plan.OriginY, plan.Layers, plan.MapWidth, plan.MapHeight))
	for _, id := range plan.Order {
		a := plan.Anchors[id]
		writeField(fmt.Sprintf("%s|%d,%d|%d,%d|%s", a.ID, a.U, a.V, a.X, a.Y, a.DependsOn))
	}

	return hex.EncodeToString(h.Sum(nil))
}
