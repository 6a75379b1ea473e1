// Package metrics defines the prometheus counters/histograms the service
// exposes on GET /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the service's collectors.
type Metrics struct {
	Transitions     *prometheus.CounterVec
	Escalations     *prometheus.CounterVec
	SweepDuration   prometheus.Histogram
	AuditEvents     *prometheus.CounterVec
}

// New registers every metric against reg (pass prometheus.NewRegistry() in
// main.go, or prometheus.DefaultRegisterer for the process-wide default).
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "grievance_transitions_total",
			Help: "Count of complaint status transitions by (from, to).",
		}, []string{"from", "to"}),
		Escalations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "grievance_escalations_total",
			Help: "Count of escalation level advances by resulting level.",
		}, []string{"level"}),
		SweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "grievance_sweep_duration_seconds",
			Help:    "Wall-clock duration of one escalation scheduler sweep.",
			Buckets: prometheus.DefBuckets,
		}),
		AuditEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "grievance_audit_events_total",
			Help: "Count of audit events recorded by action.",
		}, []string{"action"}),
	}
}
