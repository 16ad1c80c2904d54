package tsmetrics

import "math"

// ValueHistogram shards observations by value into a fixed set of
// equal-width buckets, each backed by its own [MultiLevelSeries], so a
// caller gets both time-windowed aggregates (count/sum/avg/rate) and
// percentile estimates over the same data. Two extra buckets beyond the
// configured [min, max) range absorb outliers: bucket 0 for values below
// min, and the last bucket for values at or above max, so a bucket index
// is always valid and no sample is dropped for its value.
//
// Not safe for concurrent use; see package docs.
type ValueHistogram[V Numeric] struct {
	min, max   V
	bucketSize V
	buckets    []*MultiLevelSeries[V]
}

// NewValueHistogram builds a histogram covering [min, max) in buckets of
// width bucketSize, plus the underflow (index 0) and overflow (last
// index) buckets, each backed by its own [MultiLevelSeries] built from
// levels (every shard has the same level layout). Panics if
// bucketSize <= 0 or max <= min, or if levels is empty.
func NewValueHistogram[V Numeric](min, max, bucketSize V, levels ...LevelSpec) *ValueHistogram[V] {
	if bucketSize <= 0 {
		panic("tsmetrics: value histogram: bucketSize must be > 0")
	}
	if max <= min {
		panic("tsmetrics: value histogram: max must be > min")
	}
	if max-min < bucketSize {
		panic("tsmetrics: value histogram: max-min must be >= bucketSize")
	}
	numMidBuckets := int(math.Ceil((toFloat64(max) - toFloat64(min)) / toFloat64(bucketSize)))
	if numMidBuckets < 1 {
		numMidBuckets = 1
	}
	n := numMidBuckets + 2 // underflow + overflow

	h := &ValueHistogram[V]{
		min:        min,
		max:        max,
		bucketSize: bucketSize,
		buckets:    make([]*MultiLevelSeries[V], n),
	}
	for i := range h.buckets {
		h.buckets[i] = NewMultiLevelSeries[V](levels...)
	}
	return h
}

// NumBuckets returns the total number of buckets, including the
// underflow and overflow buckets.
func (h *ValueHistogram[V]) NumBuckets() int { return len(h.buckets) }

// NumLevels returns the number of levels each bucket's series holds.
func (h *ValueHistogram[V]) NumLevels() int { return h.buckets[0].NumLevels() }

func (h *ValueHistogram[V]) lastIdx() int { return len(h.buckets) - 1 }

// getBucketIdx returns the index of the bucket v falls into: 0 for
// v < min, the last index for v >= max, otherwise an integer-floored
// offset into the regular buckets.
func (h *ValueHistogram[V]) getBucketIdx(v V) int {
	if v < h.min {
		return 0
	}
	if v >= h.max {
		return h.lastIdx()
	}
	offset := int((toFloat64(v) - toFloat64(h.min)) / toFloat64(h.bucketSize))
	idx := offset + 1
	if idx >= h.lastIdx() {
		idx = h.lastIdx() - 1
	}
	return idx
}

// getBucketMin returns the inclusive lower bound of bucket i.
func (h *ValueHistogram[V]) getBucketMin(i int) V {
	switch {
	case i == 0:
		return minValue[V]()
	case i == h.lastIdx():
		return h.max
	default:
		return h.min + V(float64(i-1)*toFloat64(h.bucketSize))
	}
}

// getBucketMax returns the exclusive upper bound of bucket i. The
// final regular bucket's upper bound is clamped to the configured max.
func (h *ValueHistogram[V]) getBucketMax(i int) V {
	switch {
	case i == 0:
		return h.min
	case i == h.lastIdx():
		return maxValue[V]()
	default:
		upper := h.min + V(float64(i)*toFloat64(h.bucketSize))
		if i == h.lastIdx()-1 && upper > h.max {
			upper = h.max
		}
		return upper
	}
}

// BucketMin is the exported form of getBucketMin.
func (h *ValueHistogram[V]) BucketMin(i int) V { return h.getBucketMin(i) }

// BucketMax is the exported form of getBucketMax.
func (h *ValueHistogram[V]) BucketMax(i int) V { return h.getBucketMax(i) }

// AddValue records one observation of v at time now, routing it to the
// bucket whose range contains v.
func (h *ValueHistogram[V]) AddValue(now TimePoint, v V) {
	h.AddValueTimes(now, v, 1)
}

// AddValueTimes records n samples of value v (summed as v*n) at time
// now, reducing to a single pre-aggregated write to v's bucket
// (one [MultiLevelSeries.AddValueAggregated] call).
func (h *ValueHistogram[V]) AddValueTimes(now TimePoint, v V, times uint64) {
	if times == 0 {
		return
	}
	h.buckets[h.getBucketIdx(v)].AddValueAggregated(now, v*V(times), times)
}

// Update flushes every bucket's write cache as of now; see
// [MultiLevelSeries.Update].
func (h *ValueHistogram[V]) Update(now TimePoint) {
	for _, b := range h.buckets {
		b.Update(now)
	}
}

// Clear resets every bucket to empty.
func (h *ValueHistogram[V]) Clear() {
	for _, b := range h.buckets {
		b.Clear()
	}
}

// shardCount returns the sample count of shard i at the level matching
// duration d (see [MultiLevelSeries.LevelByDuration] for the fallback
// behavior when d matches nothing).
func (h *ValueHistogram[V]) shardCount(i int, d Duration) uint64 {
	lvl, _ := h.buckets[i].LevelByDuration(d)
	return lvl.Count()
}

func (h *ValueHistogram[V]) shardSum(i int, d Duration) V {
	lvl, _ := h.buckets[i].LevelByDuration(d)
	return lvl.Sum()
}

// shardCountIdx is shardCount addressed by level index rather than
// duration.
func (h *ValueHistogram[V]) shardCountIdx(i, level int) uint64 {
	return h.buckets[i].Level(level).Count()
}

func (h *ValueHistogram[V]) shardSumIdx(i, level int) V {
	return h.buckets[i].Level(level).Sum()
}

// Count returns the total sample count across every shard, at the level
// matching duration d (the last level, if no level has that exact
// duration).
func (h *ValueHistogram[V]) Count(d Duration) uint64 {
	var total uint64
	for i := range h.buckets {
		total += h.shardCount(i, d)
	}
	return total
}

// Sum returns the total value sum across every shard, at the level
// matching duration d.
func (h *ValueHistogram[V]) Sum(d Duration) V {
	var total V
	for i := range h.buckets {
		total += h.shardSum(i, d)
	}
	return total
}

// Avg returns Sum(d)/Count(d), or 0 if the count is 0.
func (h *ValueHistogram[V]) Avg(d Duration) float64 {
	count := h.Count(d)
	if count == 0 {
		return 0
	}
	return toFloat64(h.Sum(d)) / float64(count)
}

// Rate returns Sum(d) divided by the longest elapsed window among
// shards at level d, in value per perInterval ticks.
func (h *ValueHistogram[V]) Rate(d Duration, perInterval Duration) float64 {
	var sum float64
	var elapsed Duration
	for i := range h.buckets {
		lvl, _ := h.buckets[i].LevelByDuration(d)
		sum += toFloat64(lvl.Sum())
		if e := lvl.Elapsed(); e > elapsed {
			elapsed = e
		}
	}
	if elapsed <= 0 {
		return 0
	}
	return sum / (float64(elapsed) / float64(perInterval))
}

// CountRate returns Count(d) divided by the longest elapsed window among
// shards at level d, in samples per perInterval ticks.
func (h *ValueHistogram[V]) CountRate(d Duration, perInterval Duration) float64 {
	count := h.Count(d)
	var elapsed Duration
	for i := range h.buckets {
		lvl, _ := h.buckets[i].LevelByDuration(d)
		if e := lvl.Elapsed(); e > elapsed {
			elapsed = e
		}
	}
	if elapsed <= 0 {
		return 0
	}
	return float64(count) / (float64(elapsed) / float64(perInterval))
}

// CountByLevel returns the total sample count across every shard, at the
// level index idx (0 being the shortest duration, by construction
// convention).
func (h *ValueHistogram[V]) CountByLevel(idx int) uint64 {
	var total uint64
	for i := range h.buckets {
		total += h.shardCountIdx(i, idx)
	}
	return total
}

// SumByLevel returns the total value sum across every shard, at the
// level index idx.
func (h *ValueHistogram[V]) SumByLevel(idx int) V {
	var total V
	for i := range h.buckets {
		total += h.shardSumIdx(i, idx)
	}
	return total
}

// AvgByLevel returns SumByLevel(idx)/CountByLevel(idx), or 0 if the
// count is 0.
func (h *ValueHistogram[V]) AvgByLevel(idx int) float64 {
	count := h.CountByLevel(idx)
	if count == 0 {
		return 0
	}
	return toFloat64(h.SumByLevel(idx)) / float64(count)
}

// RateByLevel returns SumByLevel(idx) divided by the longest elapsed
// window among shards at level idx, in value per perInterval ticks.
func (h *ValueHistogram[V]) RateByLevel(idx int, perInterval Duration) float64 {
	var sum float64
	var elapsed Duration
	for i := range h.buckets {
		lvl := h.buckets[i].Level(idx)
		sum += toFloat64(lvl.Sum())
		if e := lvl.Elapsed(); e > elapsed {
			elapsed = e
		}
	}
	if elapsed <= 0 {
		return 0
	}
	return sum / (float64(elapsed) / float64(perInterval))
}

// CountRateByLevel returns CountByLevel(idx) divided by the longest
// elapsed window among shards at level idx, in samples per perInterval
// ticks.
func (h *ValueHistogram[V]) CountRateByLevel(idx int, perInterval Duration) float64 {
	count := h.CountByLevel(idx)
	var elapsed Duration
	for i := range h.buckets {
		if e := h.buckets[i].Level(idx).Elapsed(); e > elapsed {
			elapsed = e
		}
	}
	if elapsed <= 0 {
		return 0
	}
	return float64(count) / (float64(elapsed) / float64(perInterval))
}

// CountRange returns the total sample count across every shard over the
// window [start, end).
func (h *ValueHistogram[V]) CountRange(start, end TimePoint) float64 {
	var total float64
	for i := range h.buckets {
		total += h.buckets[i].shortestCoveringLevel(start).CountRange(start, end)
	}
	return total
}

// SumRange returns the total value sum across every shard over the
// window [start, end).
func (h *ValueHistogram[V]) SumRange(start, end TimePoint) V {
	var total float64
	for i := range h.buckets {
		total += toFloat64(h.buckets[i].shortestCoveringLevel(start).SumRange(start, end))
	}
	return V(total)
}

// AvgRange returns SumRange(start,end)/CountRange(start,end), or 0 if
// the count is 0.
func (h *ValueHistogram[V]) AvgRange(start, end TimePoint) float64 {
	count := h.CountRange(start, end)
	if count == 0 {
		return 0
	}
	return toFloat64(h.SumRange(start, end)) / count
}

// elapsedRange returns the longest retained portion of [start, end)
// among the shards' covering levels, mirroring how the level-keyed rates
// use the longest elapsed window.
func (h *ValueHistogram[V]) elapsedRange(start, end TimePoint) Duration {
	var elapsed Duration
	for i := range h.buckets {
		if e := h.buckets[i].shortestCoveringLevel(start).ElapsedRange(start, end); e > elapsed {
			elapsed = e
		}
	}
	return elapsed
}

// RateRange returns SumRange(start,end) divided by the retained portion
// of the window, in value per perInterval ticks.
func (h *ValueHistogram[V]) RateRange(start, end TimePoint, perInterval Duration) float64 {
	elapsed := h.elapsedRange(start, end)
	if elapsed <= 0 {
		return 0
	}
	return toFloat64(h.SumRange(start, end)) / (float64(elapsed) / float64(perInterval))
}

// CountRateRange returns CountRange(start,end) divided by the retained
// portion of the window, in samples per perInterval ticks.
func (h *ValueHistogram[V]) CountRateRange(start, end TimePoint, perInterval Duration) float64 {
	elapsed := h.elapsedRange(start, end)
	if elapsed <= 0 {
		return 0
	}
	return h.CountRange(start, end) / (float64(elapsed) / float64(perInterval))
}

// percentileLocate implements the "locate" half of percentile estimation: given a
// per-shard (count, sum) accessor, it walks shards in increasing index,
// skipping empty ones, tracking the cumulative fraction of the total
// each non-empty shard's count represents, and returns the index of the
// first shard whose cumulative fraction reaches pct (as a [0,1]
// fraction), along with the [lowPct, highPct) bounds that shard spans.
// ok is false iff there is no data at all (total count 0).
func (h *ValueHistogram[V]) percentileLocate(frac float64, shardCount func(int) uint64) (shardIdx int, lowPct, highPct float64, ok bool) {
	var total uint64
	for i := range h.buckets {
		total += shardCount(i)
	}
	if total == 0 {
		return 0, 0, 0, false
	}

	var cumulative uint64
	shardIdx = h.lastIdx()
	prevPct := 0.0
	found := false
	for i := range h.buckets {
		c := shardCount(i)
		if c == 0 {
			continue
		}
		cumulative += c
		curPct := float64(cumulative) / float64(total)
		if curPct >= frac {
			shardIdx = i
			lowPct = prevPct
			highPct = curPct
			found = true
			break
		}
		prevPct = curPct
	}
	if !found {
		lowPct = prevPct
		highPct = prevPct
	}
	return shardIdx, lowPct, highPct, true
}

// percentileInterpolate implements the "interpolate" half of percentile
// estimation, given the shard located by percentileLocate and its
// [count, sum].
func (h *ValueHistogram[V]) percentileInterpolate(frac float64, shardIdx int, lowPct, highPct float64, count uint64, sum V) V {
	var avg float64
	if count > 0 {
		avg = toFloat64(sum) / float64(count)
	}

	if lowPct == highPct {
		return V(avg)
	}

	var low, high float64
	switch {
	case shardIdx == 0:
		high = toFloat64(h.min)
		low = clampMin(high-2*(high-avg), toFloat64(minValue[V]()))
	case shardIdx == h.lastIdx():
		low = toFloat64(h.max)
		high = clampMax(low+2*(avg-low), toFloat64(maxValue[V]()))
	default:
		low = toFloat64(h.getBucketMin(shardIdx))
		high = toFloat64(h.getBucketMax(shardIdx))
	}

	medianPct := (lowPct + highPct) / 2

	var result float64
	if frac < medianPct {
		if medianPct == lowPct {
			result = low
		} else {
			result = low + (avg-low)*(frac-lowPct)/(medianPct-lowPct)
		}
	} else {
		if highPct == medianPct {
			result = avg
		} else {
			result = avg + (high-avg)*(frac-medianPct)/(highPct-medianPct)
		}
	}
	return V(result)
}

// Percentile estimates the value at percentile pct (0-100) of the
// distribution at level d, per the two-step locate-then-interpolate
// algorithm. Returns the value-type zero if there is no data at all,
// never an error.
func (h *ValueHistogram[V]) Percentile(pct float64, d Duration) V {
	frac := pct / 100
	shardIdx, lowPct, highPct, ok := h.percentileLocate(frac, func(i int) uint64 { return h.shardCount(i, d) })
	if !ok {
		var zero V
		return zero
	}
	return h.percentileInterpolate(frac, shardIdx, lowPct, highPct, h.shardCount(shardIdx, d), h.shardSum(shardIdx, d))
}

// PercentileByLevel is the level-index form of [ValueHistogram.Percentile].
func (h *ValueHistogram[V]) PercentileByLevel(pct float64, level int) V {
	frac := pct / 100
	shardIdx, lowPct, highPct, ok := h.percentileLocate(frac, func(i int) uint64 { return h.shardCountIdx(i, level) })
	if !ok {
		var zero V
		return zero
	}
	return h.percentileInterpolate(frac, shardIdx, lowPct, highPct, h.shardCountIdx(shardIdx, level), h.shardSumIdx(shardIdx, level))
}

// PercentileRange is the time-window form of [ValueHistogram.Percentile],
// estimating the percentile over [start, end) instead of a whole level.
func (h *ValueHistogram[V]) PercentileRange(pct float64, start, end TimePoint) V {
	frac := pct / 100
	shardCount := func(i int) uint64 {
		return uint64(h.buckets[i].shortestCoveringLevel(start).CountRange(start, end))
	}
	shardSum := func(i int) V {
		return h.buckets[i].shortestCoveringLevel(start).SumRange(start, end)
	}
	shardIdx, lowPct, highPct, ok := h.percentileLocate(frac, shardCount)
	if !ok {
		var zero V
		return zero
	}
	return h.percentileInterpolate(frac, shardIdx, lowPct, highPct, shardCount(shardIdx), shardSum(shardIdx))
}

// PercentileBucketIdx returns the index of the value-bucket that the
// given percentile falls into at level d, without interpolating inside
// it — the "locate" half of percentile estimation exposed on its own. Returns the
// last (overflow) bucket index if there is no data at all.
func (h *ValueHistogram[V]) PercentileBucketIdx(pct float64, d Duration) int {
	shardIdx, _, _, ok := h.percentileLocate(pct/100, func(i int) uint64 { return h.shardCount(i, d) })
	if !ok {
		return h.lastIdx()
	}
	return shardIdx
}

// PercentileBucketIdxByLevel is the level-index form of
// [ValueHistogram.PercentileBucketIdx].
func (h *ValueHistogram[V]) PercentileBucketIdxByLevel(pct float64, level int) int {
	shardIdx, _, _, ok := h.percentileLocate(pct/100, func(i int) uint64 { return h.shardCountIdx(i, level) })
	if !ok {
		return h.lastIdx()
	}
	return shardIdx
}

// PercentileBucketIdxRange is the time-window form of
// [ValueHistogram.PercentileBucketIdx].
func (h *ValueHistogram[V]) PercentileBucketIdxRange(pct float64, start, end TimePoint) int {
	shardCount := func(i int) uint64 {
		return uint64(h.buckets[i].shortestCoveringLevel(start).CountRange(start, end))
	}
	shardIdx, _, _, ok := h.percentileLocate(pct/100, shardCount)
	if !ok {
		return h.lastIdx()
	}
	return shardIdx
}
