package authority

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	id "charter/pkg/domain"
)

// Metrics holds the authority module's Prometheus metrics.
type Metrics struct {
	Assignments *prometheus.CounterVec
	Revocations prometheus.Counter
}

// NewMetrics creates and registers the authority metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		Assignments: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "charter_role_assignments_total",
			Help: "Role assignments, by role granted",
		}, []string{"role"}),
		Revocations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "charter_role_revocations_total",
			Help: "Admin roles revoked back to member",
		}),
	}
}

func (m *Metrics) recordAssignment(role id.Role) {
	if m == nil {
		return
	}
	m.Assignments.WithLabelValues(string(role)).Inc()
}

func (m *Metrics) recordRevocation() {
	if m == nil {
		return
	}
	m.Revocations.Inc()
}
