// Package planner builds an anchor Plan from a batch run's origin, fan-out
// radius, and map bounds.
//
// It is a pure function in the sense that the same input always produces an
// identical Plan, including an identical PlanHash - the anchor-set analogue
// of the teacher's canonicalized, content-hashed dependency graph.
package planner
