package claim

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the claim module's Prometheus metrics.
type Metrics struct {
	Submitted *prometheus.CounterVec
	Approved  *prometheus.CounterVec
	Rejected  prometheus.Counter
	Conflicts prometheus.Counter
}

// NewMetrics creates and registers the claim metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		Submitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "charter_claims_submitted_total",
			Help: "Claims submitted, by kind",
		}, []string{"kind"}),
		Approved: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "charter_claims_approved_total",
			Help: "Claim approvals, by stage",
		}, []string{"stage"}),
		Rejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "charter_claims_rejected_total",
			Help: "Claims terminally rejected",
		}),
		Conflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "charter_claim_conflicts_total",
			Help: "Claim transitions refused because the status had already advanced",
		}),
	}
}

func (m *Metrics) recordSubmitted(kind Kind) {
	if m == nil {
		return
	}
	m.Submitted.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) recordApproved(stage string) {
	if m == nil {
		return
	}
	m.Approved.WithLabelValues(stage).Inc()
}

func (m *Metrics) recordRejected() {
	if m == nil {
		return
	}
	m.Rejected.Inc()
}

func (m *Metrics) recordConflict() {
	if m == nil {
		return
	}
	m.Conflicts.Inc()
}
