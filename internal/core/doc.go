// Package core defines the domain model shared by every stage of the batch
// anchor scheduler: the 2D grid types, the anchor and run state machines, the
// collaborator interfaces the scheduler drives, and the error taxonomy.
//
// # Design Principles
//
// All structures in this package adhere to the following constraints:
//
//  1. No implied fields that could affect determinism (e.g., wall-clock-only
//     identity) of the priority order or plan hash.
//  2. All fields are explicit and observable in a snapshot.
//  3. Anchor identity is a pure function of its grid offset.
//
// # Core Types
//
// Anchor: one 3x3 edit centered at a leaf tile, with dependency edges and a
// deterministic priority. BatchRunState: the full externally visible
// snapshot of a run. ParentRefreshJob: a unit of pyramid rebuild work.
package core
