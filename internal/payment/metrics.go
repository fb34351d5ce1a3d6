package payment

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the payment module's Prometheus metrics.
type Metrics struct {
	BillsIssued prometheus.Counter
	CodeRedraws prometheus.Counter
	ProofsFiled prometheus.Counter
	Verified    prometheus.Counter
	Rejected    prometheus.Counter
	Activations prometheus.Counter
}

// NewMetrics creates and registers the payment metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		BillsIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "charter_payment_bills_issued_total",
			Help: "Payment records issued for approved claims",
		}),
		CodeRedraws: promauto.NewCounter(prometheus.CounterOpts{
			Name: "charter_payment_code_redraws_total",
			Help: "Unique code draws retried after a (base, code) collision",
		}),
		ProofsFiled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "charter_payment_proofs_filed_total",
			Help: "Transfer proofs submitted for verification",
		}),
		Verified: promauto.NewCounter(prometheus.CounterOpts{
			Name: "charter_payments_verified_total",
			Help: "Payments verified by finance",
		}),
		Rejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "charter_payments_rejected_total",
			Help: "Payment proofs rejected by finance",
		}),
		Activations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "charter_payment_activations_total",
			Help: "Account activations completed on verification",
		}),
	}
}

func (m *Metrics) recordIssued() {
	if m == nil {
		return
	}
	m.BillsIssued.Inc()
}

func (m *Metrics) recordRedraw() {
	if m == nil {
		return
	}
	m.CodeRedraws.Inc()
}

func (m *Metrics) recordProof() {
	if m == nil {
		return
	}
	m.ProofsFiled.Inc()
}

func (m *Metrics) recordVerified() {
	if m == nil {
		return
	}
	m.Verified.Inc()
}

func (m *Metrics) recordRejected() {
	if m == nil {
		return
	}
	m.Rejected.Inc()
}

func (m *Metrics) recordActivation() {
	if m == nil {
		return
	}
	m.Activations.Inc()
}
