package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for access decisions.
type Metrics struct {
	// Verdicts by surface ("page", "mount"), requirement, decision and reason
	Verdicts *prometheus.CounterVec

	// Mount lifecycles currently running
	ActiveMounts prometheus.Gauge

	// Bounded waits that expired before the session resolved
	ResolveTimeouts prometheus.Counter
}

// New creates a new Metrics instance registered with the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the metrics with reg. Tests pass a fresh
// prometheus.NewRegistry() to avoid duplicate registration.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Verdicts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "donorhub_guard_verdicts_total",
			Help: "Access verdicts by surface, requirement, decision and reason",
		}, []string{"surface", "requirement", "decision", "reason"}),

		ActiveMounts: factory.NewGauge(prometheus.GaugeOpts{
			Name: "donorhub_guard_active_mounts",
			Help: "Number of guard mount lifecycles currently running",
		}),

		ResolveTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "donorhub_guard_resolve_timeouts_total",
			Help: "Bounded waits that expired before the session resolved",
		}),
	}
}

// IncrementVerdict records an applied verdict.
func (m *Metrics) IncrementVerdict(surface, requirement, decision, reason string) {
	if m != nil {
		m.Verdicts.WithLabelValues(surface, requirement, decision, reason).Inc()
	}
}

// MountStarted records a mount lifecycle beginning.
func (m *Metrics) MountStarted() {
	if m != nil {
		m.ActiveMounts.Inc()
	}
}

// MountEnded records a mount lifecycle ending.
func (m *Metrics) MountEnded() {
	if m != nil {
		m.ActiveMounts.Dec()
	}
}

// IncrementResolveTimeout records an expired bounded wait.
func (m *Metrics) IncrementResolveTimeout() {
	if m != nil {
		m.ResolveTimeouts.Inc()
	}
}
