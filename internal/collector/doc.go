// Package collector implements the multi-source pool collection engine.
//
// The collector:
//   - Queries sources one at a time (per-provider rate limits are shared)
//   - Fans symbols out concurrently within a source, bounded by a
//     global semaphore
//   - Applies a per-attempt timeout and a fixed-delay retry budget
//   - Filters records and upserts survivors into the pool cache
//   - Accumulates atomic statistics, never raises an error
//
// Runner drives CollectAll on a fixed cadence and hands each cycle's
// cache snapshot to an optional persistence sink.
package collector
