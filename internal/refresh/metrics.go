package refresh

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts refresh outcomes. Every failure path in the error
// taxonomy gets its own label so skips are distinguishable on a dashboard,
// not collapsed into one catch-all.
type Metrics struct {
	Cycles        *prometheus.CounterVec
	TicksDropped  prometheus.Counter
	CycleDuration prometheus.Histogram
}

// NewMetrics registers the refresh metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "threatbrief",
			Subsystem: "refresh",
			Name:      "cycles_total",
			Help:      "Refresh cycle outcomes by result.",
		}, []string{"result"}),
		TicksDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "threatbrief",
			Subsystem: "refresh",
			Name:      "ticks_dropped_total",
			Help:      "Scheduler ticks dropped because a cycle was still running.",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "threatbrief",
			Subsystem: "refresh",
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of completed refresh cycles.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.Cycles, m.TicksDropped, m.CycleDuration)
	return m
}
