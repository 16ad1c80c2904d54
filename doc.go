// Package tsmetrics provides an in-process, time-windowed metrics
// aggregation core: a fixed-size ring of count/sum buckets recycled over a
// sliding duration, a multi-level wrapper that keeps several such rings at
// different durations with a write coalescer, and a value-sharded
// histogram that estimates percentiles by linear interpolation.
//
// # Architecture
//
// Three layers over a shared accumulator, leaves first:
//
//   - [Bucket] is a {sum, count} accumulator.
//   - [BucketedRing] divides one fixed [Duration] into N buckets and
//     recycles them in place as time moves forward; it answers count/sum/
//     avg/rate queries over the whole window or an arbitrary sub-range.
//   - [MultiLevelSeries] fans one logical write out to several
//     [BucketedRing] values of different durations (e.g. 10s/1m/10m),
//     coalescing writes that land on the same [TimePoint].
//   - [ValueHistogram] shards samples by value range into many
//     [MultiLevelSeries], and estimates percentiles by locating the shard
//     that holds the requested percentile and interpolating inside it.
//
// # Concurrency
//
// None of these types are safe for concurrent use on their own; each is
// designed for single-writer, single-reader, synchronous access. Callers
// that need concurrent access must hold a lock (one per [BucketedRing], or one per
// [MultiLevelSeries] that also covers its write-coalescing cache) around
// the read-modify-write sequences described in each type's docs. There is
// no I/O and no background goroutine anywhere in this package.
//
// # What this package is not
//
// It is not a distributed metrics system, not a persisted time-series
// database, not an exporter, and has no tag/label model beyond an opaque
// name a caller may choose to associate with a histogram externally (see
// the example reportsink package for one way to do that). The global
// named-metric registry and periodic reporter that would normally drive
// [MultiLevelSeries.Update] on a schedule, and render a JSON report, are
// intentionally external collaborators, not part of this package.
package tsmetrics
