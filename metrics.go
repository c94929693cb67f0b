package seqsync

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the counters shared by dispatchers and tree adapters. One
// Metrics may be shared by any number of them. A nil *Metrics records
// nothing.
type Metrics struct {
	// DiffsComputed counts computed diffs by path ("sync" or "async").
	DiffsComputed *prometheus.CounterVec
	// StaleDiscarded counts background results dropped because a newer
	// dispatch superseded them.
	StaleDiscarded prometheus.Counter
	// OperationsEmitted counts operations delivered to sinks by kind.
	OperationsEmitted *prometheus.CounterVec
	// DiffLatency observes the time spent computing a diff, in seconds.
	DiffLatency prometheus.Histogram
	// WindowLookups counts tree index lookups by result ("hit" or "miss").
	WindowLookups *prometheus.CounterVec
	// WalkSteps counts nodes visited while walking the tree to fill the
	// window cache.
	WalkSteps prometheus.Counter
}

// NewMetrics creates the metrics and registers them with reg if it is not
// nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DiffsComputed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "seqsync",
			Name:      "diffs_computed_total",
			Help:      "Diffs computed, by path.",
		}, []string{"path"}),
		StaleDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "seqsync",
			Name:      "stale_diffs_discarded_total",
			Help:      "Background diff results dropped because a newer dispatch superseded them.",
		}),
		OperationsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "seqsync",
			Name:      "operations_emitted_total",
			Help:      "Operations delivered to sinks, by kind.",
		}, []string{"kind"}),
		DiffLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "seqsync",
			Name:      "diff_duration_seconds",
			Help:      "Time spent computing diffs.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		WindowLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "seqsync",
			Name:      "tree_window_lookups_total",
			Help:      "Tree index lookups, by window cache result.",
		}, []string{"result"}),
		WalkSteps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "seqsync",
			Name:      "tree_walk_steps_total",
			Help:      "Nodes visited while walking the tree to fill the window cache.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.DiffsComputed,
			m.StaleDiscarded,
			m.OperationsEmitted,
			m.DiffLatency,
			m.WindowLookups,
			m.WalkSteps,
		)
	}
	return m
}

func (m *Metrics) diffComputed(path string, seconds float64) {
	if m == nil {
		return
	}
	m.DiffsComputed.WithLabelValues(path).Inc()
	m.DiffLatency.Observe(seconds)
}

func (m *Metrics) staleDiscarded() {
	if m == nil {
		return
	}
	m.StaleDiscarded.Inc()
}

func (m *Metrics) emitted(kind OpKind) {
	if m == nil {
		return
	}
	m.OperationsEmitted.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) lookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.WindowLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) walked(steps int) {
	if m == nil || steps == 0 {
		return
	}
	m.WalkSteps.Add(float64(steps))
}
