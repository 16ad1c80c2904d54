package tsmetrics

import (
	"math"
	"time"
)

// Numeric is the value type a [Bucket], [BucketedRing], [MultiLevelSeries]
// or [ValueHistogram] accumulates: a signed 64-bit integer or a double
// (or any type derived from them), supporting addition, subtraction, and
// conversion to float64.
type Numeric interface {
	~int64 | ~float64
}

// toFloat64 converts a sample value to a double for averaging and rate
// computation.
func toFloat64[V Numeric](v V) float64 {
	return float64(v)
}

// isIntegral reports whether V's underlying type is ~int64, by checking
// whether conversion truncates a fractional part. Avoids a reflect-based
// type switch, which would not match named types derived from
// int64/float64 the way a value-level truncation check does. The
// conversions go through variables since a constant conversion would
// have to be representable in every type of the constraint.
func isIntegral[V Numeric]() bool {
	half := 0.5
	var zero V
	return V(half) == zero
}

// minValue and maxValue return the representable bounds of V, used to
// clamp the two open-ended percentile-interpolation buckets.
func minValue[V Numeric]() V {
	if isIntegral[V]() {
		n := int64(math.MinInt64)
		return V(n)
	}
	f := -math.MaxFloat64
	return V(f)
}

func maxValue[V Numeric]() V {
	if isIntegral[V]() {
		n := int64(math.MaxInt64)
		return V(n)
	}
	f := math.MaxFloat64
	return V(f)
}

// TimePoint is a point in time expressed as a tick count since some
// reference instant chosen by the caller (e.g. a monotonic clock epoch).
// The canonical tick is a nanosecond ([time.Duration]'s unit), but nothing
// in this package assumes that; only that mod/div on ticks is exact.
type TimePoint int64

// Duration is a signed span of ticks, same unit as [TimePoint].
type Duration int64

// monoEpoch is the reference instant for [Now].
var monoEpoch = time.Now()

// Now returns the current time as a [TimePoint], using the nanosecond tick
// convention (time.Duration's unit) against the Go monotonic clock, counted
// from package initialization.
func Now() TimePoint {
	return TimePoint(time.Since(monoEpoch))
}

// Add returns t advanced by d ticks.
func (t TimePoint) Add(d Duration) TimePoint {
	return t + TimePoint(d)
}

// Sub returns the signed number of ticks between t and u (t - u).
func (t TimePoint) Sub(u TimePoint) Duration {
	return Duration(t - u)
}
