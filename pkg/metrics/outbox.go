package metrics

import "github.com/prometheus/client_golang/prometheus"

// OutboxMetrics counts outbox deliveries by event type and outcome.
type OutboxMetrics struct {
	deliveries *prometheus.CounterVec
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "outbox",
		Name:      "deliveries_total",
		Help:      "Outbox rows handled by the publisher, by event type and outcome.",
	}, []string{"event_type", "outcome"})
	reg.MustRegister(deliveries)
	return &OutboxMetrics{deliveries: deliveries}
}

// Observe records one delivery attempt. Outcome is one of published, retry,
// dead_letter or deferred.
func (m *OutboxMetrics) Observe(eventType, outcome string) {
	if m == nil || m.deliveries == nil {
		return
	}
	m.deliveries.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}
