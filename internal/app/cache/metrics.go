package cache

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the Prometheus counters a Store reports to. A nil *Metrics is a no-op.
type Metrics struct {
	hits          *prometheus.CounterVec
	misses        *prometheus.CounterVec
	invalidations *prometheus.CounterVec
}

// NewMetrics creates the cache counters and registers them with reg when non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fleet_console",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Query cache lookups answered from a fresh entry.",
		}, []string{"family"}),
		misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fleet_console",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Query cache lookups that found no fresh entry.",
		}, []string{"family"}),
		invalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fleet_console",
			Subsystem: "cache",
			Name:      "invalidations_total",
			Help:      "Whole-family cache invalidations.",
		}, []string{"family"}),
	}
	if reg != nil {
		reg.MustRegister(m.hits, m.misses, m.invalidations)
	}
	return m
}

func (m *Metrics) hit(f Family) {
	if m != nil {
		m.hits.WithLabelValues(string(f)).Inc()
	}
}

func (m *Metrics) miss(f Family) {
	if m != nil {
		m.misses.WithLabelValues(string(f)).Inc()
	}
}

func (m *Metrics) invalidation(f Family) {
	if m != nil {
		m.invalidations.WithLabelValues(string(f)).Inc()
	}
}

// Hits exposes the hit counter of one family.
func (m *Metrics) Hits(f Family) prometheus.Counter {
	return m.hits.WithLabelValues(string(f))
}

// Misses exposes the miss counter of one family.
func (m *Metrics) Misses(f Family) prometheus.Counter {
	return m.misses.WithLabelValues(string(f))
}
