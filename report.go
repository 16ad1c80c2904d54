package tsmetrics

import (
	"fmt"
	"io"
	"strconv"
)

// Report is the query/report surface over a [ValueHistogram]: one
// snapshot of count/sum/avg/rate/countRate and the 80th/90th/99th
// percentiles, all computed at a single level or time window. It is the
// shape an external reporter (not part of this package) would render
// into a human- or machine-readable summary on a schedule.
type Report[V Numeric] struct {
	Count uint64
	Sum   V
	Avg   float64
	Rate  float64
	QPS   float64
	P99   V
	P90   V
	P80   V
}

// ReportByLevel builds a [Report] from h's level index idx, with rates
// expressed in value/samples per perInterval ticks.
func ReportByLevel[V Numeric](h *ValueHistogram[V], idx int, perInterval Duration) Report[V] {
	return Report[V]{
		Count: h.CountByLevel(idx),
		Sum:   h.SumByLevel(idx),
		Avg:   h.AvgByLevel(idx),
		Rate:  h.RateByLevel(idx, perInterval),
		QPS:   h.CountRateByLevel(idx, perInterval),
		P99:   h.PercentileByLevel(99, idx),
		P90:   h.PercentileByLevel(90, idx),
		P80:   h.PercentileByLevel(80, idx),
	}
}

// ReportByDuration is the duration-keyed form of [ReportByLevel].
func ReportByDuration[V Numeric](h *ValueHistogram[V], d Duration, perInterval Duration) Report[V] {
	return Report[V]{
		Count: h.Count(d),
		Sum:   h.Sum(d),
		Avg:   h.Avg(d),
		Rate:  h.Rate(d, perInterval),
		QPS:   h.CountRate(d, perInterval),
		P99:   h.Percentile(99, d),
		P90:   h.Percentile(90, d),
		P80:   h.Percentile(80, d),
	}
}

// ReportByWindow is the time-window form of [ReportByLevel], estimating
// every field over [start, end) instead of a configured level.
func ReportByWindow[V Numeric](h *ValueHistogram[V], start, end TimePoint, perInterval Duration) Report[V] {
	count := h.CountRange(start, end)
	sum := h.SumRange(start, end)
	var avg float64
	if count > 0 {
		avg = toFloat64(sum) / count
	}
	return Report[V]{
		Count: uint64(count),
		Sum:   sum,
		Avg:   avg,
		Rate:  h.RateRange(start, end, perInterval),
		QPS:   h.CountRateRange(start, end, perInterval),
		P99:   h.PercentileRange(99, start, end),
		P90:   h.PercentileRange(90, start, end),
		P80:   h.PercentileRange(80, start, end),
	}
}

// formatFixed2 renders v as fixed-point decimal notation with exactly
// two fractional digits and no thousands separators, per the wire
// contract every external consumer of a rendered [Report] may rely on.
func formatFixed2(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// WriteJSON renders r under the key name, in the fixed field order and
// two-decimal fixed-point numeric format of the wire contract:
//
//	"<name>": {
//	    "count": <int>, "accu": <num>, "avg": <num>,
//	    "rate": <num>, "qps": <num>,
//	    "99%": <num>, "90%": <num>, "80%": <num>
//	}
//
// WriteJSON writes only the one key/object pair (no enclosing braces),
// so callers can group several under one JSON object with [WriteReports].
func (r Report[V]) WriteJSON(w io.Writer, name string) error {
	_, err := fmt.Fprintf(w,
		`"%s": {"count": %d, "accu": %s, "avg": %s, "rate": %s, "qps": %s, "99%%": %s, "90%%": %s, "80%%": %s}`,
		name,
		r.Count,
		formatFixed2(toFloat64(r.Sum)),
		formatFixed2(r.Avg),
		formatFixed2(r.Rate),
		formatFixed2(r.QPS),
		formatFixed2(toFloat64(r.P99)),
		formatFixed2(toFloat64(r.P90)),
		formatFixed2(toFloat64(r.P80)),
	)
	return err
}

// NamedReport pairs a metric name with its [Report], for rendering
// several metrics together with [WriteReports]. A slice (rather than a
// map) keeps the caller's chosen ordering stable across renders.
type NamedReport[V Numeric] struct {
	Name   string
	Report Report[V]
}

// WriteReports renders reports as one JSON object, one key per metric,
// in the order given.
func WriteReports[V Numeric](w io.Writer, reports []NamedReport[V]) error {
	if _, err := io.WriteString(w, "{"); err != nil {
		return err
	}
	for i, nr := range reports {
		if i > 0 {
			if _, err := io.WriteString(w, ", "); err != nil {
				return err
			}
		}
		if err := nr.Report.WriteJSON(w, nr.Name); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "}")
	return err
}
