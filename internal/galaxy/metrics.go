package galaxy

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts cache and mutation activity. Rebuilds in particular is the
// observable hook for verifying that invalidation fires only when it should.
type Metrics struct {
	Rebuilds  prometheus.Counter
	Flushes   prometheus.Counter
	Mutations prometheus.Counter
}

// NewMetrics creates the counters and registers them when reg is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Rebuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "astrogator_cache_rebuilds_total",
			Help: "Lazy cache rebuilds triggered by reads after invalidation.",
		}),
		Flushes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "astrogator_cache_flushes_total",
			Help: "Cache invalidations from mutations and external changes.",
		}),
		Mutations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "astrogator_mutations_total",
			Help: "Completed save and delete operations.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Rebuilds, m.Flushes, m.Mutations)
	}
	return m
}
