// Package reportsink is a small demonstration consumer of the tsmetrics
// query surface: a registry of named histograms, periodically rendered
// through a structured logger. It is not part of the core aggregation
// engine and depends only on tsmetrics' exported API.
package reportsink

import (
	"io"
	"sort"
	"sync"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"

	tsmetrics "github.com/haosheng055/go-tsmetrics"
)

// Registry holds named histograms that a reporter periodically renders.
// Registration and observation are both guarded by a mutex, since the
// underlying tsmetrics types are not safe for concurrent use on their
// own.
type Registry[V tsmetrics.Numeric] struct {
	mu    sync.Mutex
	named map[string]*tsmetrics.ValueHistogram[V]
}

// NewRegistry returns an empty Registry.
func NewRegistry[V tsmetrics.Numeric]() *Registry[V] {
	return &Registry[V]{named: make(map[string]*tsmetrics.ValueHistogram[V])}
}

// Register adds or replaces the histogram tracked under name.
func (r *Registry[V]) Register(name string, h *tsmetrics.ValueHistogram[V]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.named[name] = h
}

// Observe records a single sample against the named histogram. It is a
// no-op if name was never registered.
func (r *Registry[V]) Observe(name string, now tsmetrics.TimePoint, v V) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.named[name]
	if !ok {
		return
	}
	h.AddValue(now, v)
}

// Flush calls Update(now) on every registered histogram, advancing their
// write-coalescing caches. Call this once per tick before Report.
func (r *Registry[V]) Flush(now tsmetrics.TimePoint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, h := range r.named {
		h.Update(now)
	}
}

// Snapshot returns one Report per registered histogram, keyed by name and
// sorted for deterministic output.
func (r *Registry[V]) Snapshot(level int, perInterval tsmetrics.Duration) []tsmetrics.NamedReport[V] {
	r.mu.Lock()
	names := make([]string, 0, len(r.named))
	reports := make(map[string]tsmetrics.Report[V], len(r.named))
	for name, h := range r.named {
		names = append(names, name)
		reports[name] = tsmetrics.ReportByLevel(h, level, perInterval)
	}
	r.mu.Unlock()

	sort.Strings(names)
	out := make([]tsmetrics.NamedReport[V], len(names))
	for i, name := range names {
		out[i] = tsmetrics.NamedReport[V]{Name: name, Report: reports[name]}
	}
	return out
}

// Report writes the registry's current snapshot to w as one JSON object,
// via [tsmetrics.WriteReports].
func (r *Registry[V]) Report(w io.Writer, level int, perInterval tsmetrics.Duration) error {
	return tsmetrics.WriteReports(w, r.Snapshot(level, perInterval))
}

// Log emits one structured log event per registered histogram through
// logger, at the given level and report interval. Each event carries the
// metric name plus its count/sum/avg/rate/qps/percentile fields.
func (r *Registry[V]) Log(logger *logiface.Logger[*stumpy.Event], level int, perInterval tsmetrics.Duration) {
	for _, nr := range r.Snapshot(level, perInterval) {
		rep := nr.Report
		logger.Info().
			Str(`metric`, nr.Name).
			Uint64(`count`, rep.Count).
			Float64(`accu`, toFloat64(rep.Sum)).
			Float64(`avg`, rep.Avg).
			Float64(`rate`, rep.Rate).
			Float64(`qps`, rep.QPS).
			Float64(`p99`, toFloat64(rep.P99)).
			Float64(`p90`, toFloat64(rep.P90)).
			Float64(`p80`, toFloat64(rep.P80)).
			Log(`metrics report`)
	}
}

func toFloat64[V tsmetrics.Numeric](v V) float64 {
	return float64(v)
}

// NewSink builds a stumpy-backed JSON logger writing to w. It is the
// logiface equivalent of opening the sink file a reporter writes its
// periodic summaries to.
func NewSink(w io.Writer) *logiface.Logger[*stumpy.Event] {
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(w)),
	)
}

// NewRotatingSink builds a JSON logger writing through a [RotatingWriter],
// so long-running reporters don't grow a single report file without bound.
func NewRotatingSink(rw *RotatingWriter) *logiface.Logger[*stumpy.Event] {
	return NewSink(rw)
}
