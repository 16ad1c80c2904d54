package tsmetrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBucketedRing_Panics(t *testing.T) {
	assert.Panics(t, func() { NewBucketedRing[int64](0, 10) })
	assert.Panics(t, func() { NewBucketedRing[int64](10, 0) })
	assert.Panics(t, func() { NewBucketedRing[int64](10, -1) })
}

func TestNewBucketedRing_ClampsBucketsToDuration(t *testing.T) {
	r := NewBucketedRing[int64](100, 10)
	assert.Equal(t, 10, r.NumBuckets())
}

func TestBucketedRing_EmptyInitially(t *testing.T) {
	r := NewBucketedRing[int64](10, 10)
	assert.True(t, r.IsEmpty())
	assert.Equal(t, uint64(0), r.Count())
	assert.Equal(t, int64(0), r.Sum())
	assert.Equal(t, 0.0, r.Avg())
}

// TestBucketedRing_SlotWidthDistribution mirrors the D=28,N=10 illustration:
// slot widths should form the multiset {3,3,3,3,2,3,3,3,3,2}, summing to 28.
func TestBucketedRing_SlotWidthDistribution(t *testing.T) {
	r := NewBucketedRing[int64](10, 28)
	var widths []int64
	var total int64
	for i := 0; i < 10; i++ {
		start, next := r.slotBounds(i, 0)
		w := int64(next - start)
		widths = append(widths, w)
		total += w
	}
	assert.Equal(t, int64(28), total)
	assert.Equal(t, []int64{3, 3, 3, 3, 2, 3, 3, 3, 3, 2}, widths)
}

func TestBucketedRing_BasicWindow(t *testing.T) {
	// At T0 add 10000, at T0+10s add 1,2,3: the first sample falls
	// outside the live 10s window by the time of the later writes.
	const T0 = TimePoint(1_000_000)
	r := NewBucketedRing[float64](10, 10)

	require.True(t, r.AddValue(T0, 10000))
	require.True(t, r.AddValue(T0+10, 1))
	require.True(t, r.AddValue(T0+10, 2))
	require.True(t, r.AddValue(T0+10, 3))

	assert.Equal(t, uint64(3), r.Count())
	assert.Equal(t, 6.0, r.Sum())
	assert.Equal(t, 2.0, r.Avg())
	assert.InDelta(t, 0.6, r.Rate(1), 1e-9)
	assert.InDelta(t, 0.3, r.CountRate(1), 1e-9)
}

func TestBucketedRing_ForwardJumpBeyondDuration(t *testing.T) {
	const T0 = TimePoint(1000)
	r := NewBucketedRing[int64](10, 10)
	require.True(t, r.AddValue(T0, 42))
	require.True(t, r.AddValue(T0+11, 7))
	assert.Equal(t, uint64(1), r.Count())
	assert.Equal(t, int64(7), r.Sum())
}

func TestBucketedRing_LateArrivalWithinWindow(t *testing.T) {
	const T0 = TimePoint(1000)
	r := NewBucketedRing[int64](10, 10)
	require.True(t, r.AddValue(T0, 1))
	require.True(t, r.AddValue(T0+3, 2))
	require.True(t, r.AddValue(T0+1, 3)) // late but within window
	assert.Equal(t, uint64(3), r.Count())
	assert.Equal(t, int64(6), r.Sum())
}

func TestBucketedRing_LateArrivalOutsideWindow(t *testing.T) {
	const T0 = TimePoint(1000)
	r := NewBucketedRing[int64](10, 10)
	require.True(t, r.AddValue(T0, 1))
	require.True(t, r.AddValue(T0+20, 9))

	countBefore := r.Count()
	sumBefore := r.Sum()

	ok := r.AddValue(T0+5, 99)
	assert.False(t, ok)
	assert.Equal(t, countBefore, r.Count())
	assert.Equal(t, sumBefore, r.Sum())
}

func TestBucketedRing_AddValueAggregated_ZeroIsNoOp(t *testing.T) {
	r := NewBucketedRing[int64](10, 10)
	ok := r.AddValueAggregated(100, 999, 0)
	assert.True(t, ok)
	assert.True(t, r.IsEmpty())
}

// TestBucketedRing_TotalMatchesBucketSum checks that total equals the
// componentwise sum of all buckets, after a sequence of writes that
// forces both in-window and forward-eviction paths.
func TestBucketedRing_TotalMatchesBucketSum(t *testing.T) {
	r := NewBucketedRing[int64](5, 50)
	now := TimePoint(0)
	for i := 0; i < 200; i++ {
		r.AddValue(now, int64(i))
		now += 7
	}
	var sum int64
	var count uint64
	for _, b := range r.buckets {
		sum += b.Sum
		count += b.Count
	}
	assert.Equal(t, r.total.Sum, sum)
	assert.Equal(t, r.total.Count, count)
}

// TestBucketedRing_All_VisitsAllSlotsContiguously checks that the slots
// yielded by All cover the window back-to-back with no gaps or overlaps.
func TestBucketedRing_All_VisitsAllSlotsContiguously(t *testing.T) {
	r := NewBucketedRing[int64](5, 50)
	r.AddValue(1234, 1)

	var views []BucketView[int64]
	for v := range r.All() {
		views = append(views, v)
	}
	require.Len(t, views, 5)
	for i, v := range views {
		assert.Less(t, v.BucketStart, v.NextBucketStart)
		if i > 0 {
			assert.Equal(t, views[i-1].NextBucketStart, v.BucketStart)
		}
	}
}

func TestBucketedRing_EarliestTime_ClampedToDurationAndFirstTime(t *testing.T) {
	r := NewBucketedRing[int64](10, 10)
	require.True(t, r.AddValue(100, 1))
	// window hasn't filled yet: earliest is clamped up to firstTime
	assert.Equal(t, TimePoint(100), r.GetEarliestTime())

	require.True(t, r.AddValue(130, 1))
	assert.GreaterOrEqual(t, r.GetEarliestTime(), r.LatestTime().Add(-Duration(9)))
}

func TestBucketedRing_RangeQueries_FullWindowMatchesTotals(t *testing.T) {
	r := NewBucketedRing[int64](10, 10)
	now := TimePoint(1000)
	for i := int64(1); i <= 5; i++ {
		r.AddValue(now, i)
		now++
	}
	start := r.GetEarliestTime()
	end := r.LatestTime() + 1
	assert.Equal(t, float64(r.Count()), r.CountRange(start, end))
	assert.Equal(t, r.Sum(), r.SumRange(start, end))
}

func TestBucketedRing_RangeAdjust_PartialOverlap(t *testing.T) {
	// One ring, one bucket per tick, so ranges are exact; verify a
	// half-open sub-window only counts what it should.
	r := NewBucketedRing[int64](10, 10)
	now := TimePoint(0)
	for i := int64(0); i < 10; i++ {
		r.AddValue(now.Add(Duration(i)), 1)
	}
	// full window has 10 samples
	assert.Equal(t, uint64(10), r.Count())
	// [3,6) should see 3 samples (ticks 3,4,5)
	assert.Equal(t, 3.0, r.CountRange(3, 6))
}

func TestBucketedRing_Clear(t *testing.T) {
	r := NewBucketedRing[int64](10, 10)
	r.AddValue(5, 42)
	r.Clear()
	assert.True(t, r.IsEmpty())
	assert.Equal(t, uint64(0), r.Count())
}

func TestBucketedRing_Idempotent_UpdateNoOp(t *testing.T) {
	r := NewBucketedRing[int64](10, 10)
	r.AddValue(5, 42)
	before := r.Count()
	r.Update(5)
	r.Update(5)
	assert.Equal(t, before, r.Count())
}

func TestBucketedRing_Update_EvictsWithoutInserting(t *testing.T) {
	r := NewBucketedRing[int64](10, 10)
	require.True(t, r.AddValue(3, 5))
	require.True(t, r.AddValue(6, 7))

	// advancing to t=14 rolls the t=3 sample off: only the t=6 write
	// remains inside [5, 15)
	r.Update(14)
	assert.Equal(t, uint64(1), r.Count())
	assert.Equal(t, int64(7), r.Sum())
	assert.Equal(t, TimePoint(14), r.LatestTime())
}

// TestBucketedRing_EvictionClearsDestinationSlot covers a write that
// wraps into a slot still holding the previous cycle's data: that slot
// must be cleared before the new sample lands, or the stale sample
// leaks back into the window totals.
func TestBucketedRing_EvictionClearsDestinationSlot(t *testing.T) {
	r := NewBucketedRing[int64](10, 10)
	require.True(t, r.AddValue(2, 9))  // slot 2, first cycle
	require.True(t, r.AddValue(5, 1))  // slot 5
	require.True(t, r.AddValue(12, 7)) // slot 2 again, next cycle

	// t=2 is outside [3, 13); only the t=5 and t=12 samples survive
	assert.Equal(t, uint64(2), r.Count())
	assert.Equal(t, int64(8), r.Sum())
}
