package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the HTTP-level Prometheus metrics for the application
type Metrics struct {
	RequestDuration *prometheus.HistogramVec
	SignIns         *prometheus.CounterVec
	RoleChanges     *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics on the default registerer
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers metrics on reg. Tests pass a fresh registry.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "donorhub_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by route pattern",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		SignIns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "donorhub_sign_ins_total",
			Help: "Dev sign-in attempts by outcome",
		}, []string{"outcome"}),
		RoleChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "donorhub_role_changes_total",
			Help: "Administrator role grants and revocations",
		}, []string{"action"}),
	}
}

// ObserveRequest records the duration of one request
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// IncrementSignIn counts a sign-in attempt
func (m *Metrics) IncrementSignIn(outcome string) {
	if m == nil {
		return
	}
	m.SignIns.WithLabelValues(outcome).Inc()
}

// IncrementRoleChange counts a grant or revoke
func (m *Metrics) IncrementRoleChange(action string) {
	if m == nil {
		return
	}
	m.RoleChanges.WithLabelValues(action).Inc()
}

// Handler serves metrics gathered from g in the Prometheus exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
