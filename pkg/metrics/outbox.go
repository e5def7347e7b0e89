package metrics

import "github.com/prometheus/client_golang/prometheus"

// Outbox dispatch results.
const (
	OutboxPublished    = "published"
	OutboxRetry        = "retry"
	OutboxDeadLettered = "dead_lettered"
)

// OutboxMetrics counts outbox rows handled by the publisher.
type OutboxMetrics struct {
	dispatched *prometheus.CounterVec
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	dispatched := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_events_total",
		Help:      "Outbox events handled by the publisher by event type and result.",
	}, []string{"event_type", "result"})
	reg.MustRegister(dispatched)
	return &OutboxMetrics{dispatched: dispatched}
}

// Inc records one dispatch result for eventType.
func (m *OutboxMetrics) Inc(eventType, result string) {
	if m == nil || m.dispatched == nil {
		return
	}
	m.dispatched.WithLabelValues(normalizeLabel(eventType), normalizeLabel(result)).Inc()
}
