package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ApprovalMetrics tracks distributor order approvals and invoice compensations.
type ApprovalMetrics struct {
	approvals     *prometheus.CounterVec
	duration      prometheus.Histogram
	compensations *prometheus.CounterVec
}

// NewApprovalMetrics registers the approval collectors on reg. A nil registerer
// yields a no-op recorder.
func NewApprovalMetrics(reg prometheus.Registerer) *ApprovalMetrics {
	if reg == nil {
		return &ApprovalMetrics{}
	}
	approvals := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "approvals_total",
		Help:      "Distributor order approval attempts by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "approval_duration_seconds",
		Help:      "End-to-end duration of distributor order approvals.",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
	})
	compensations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "invoice_compensations_total",
		Help:      "Compensating actions taken on provider invoices by result.",
	}, []string{"result"})
	reg.MustRegister(approvals, duration, compensations)
	return &ApprovalMetrics{
		approvals:     approvals,
		duration:      duration,
		compensations: compensations,
	}
}

// ObserveApproval records one approval attempt and how long it took.
func (m *ApprovalMetrics) ObserveApproval(outcome string, elapsed time.Duration) {
	if m == nil || m.approvals == nil {
		return
	}
	m.approvals.WithLabelValues(normalizeLabel(outcome)).Inc()
	m.duration.Observe(elapsed.Seconds())
}

// IncCompensation counts a void, draft deletion or failed compensation.
func (m *ApprovalMetrics) IncCompensation(result string) {
	if m == nil || m.compensations == nil {
		return
	}
	m.compensations.WithLabelValues(normalizeLabel(result)).Inc()
}
