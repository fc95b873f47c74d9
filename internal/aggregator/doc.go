// Package aggregator implements the Dirty-Parent Aggregator: it tracks leaf
// tiles touched since the last flush and decides, under three OR-combined
// flush policies plus a final catch-up, when to emit a ParentRefreshJob.
//
// Conceptually grounded on a generic batching-job pattern (accumulate until
// a size or time threshold, then hand the batch to a processor), adapted
// from batching opaque jobs for a single processor call into batching a
// deduplicated leaf-tile set across three independent flush conditions.
package aggregator
