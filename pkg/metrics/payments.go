package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics tracks UPI initiation, confirmation polling and outcomes.
type PaymentMetrics struct {
	initiated *prometheus.CounterVec
	polls     *prometheus.CounterVec
	outcomes  *prometheus.CounterVec
}

func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	initiated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "payments",
		Name:      "initiated_total",
		Help:      "Payments started, by method.",
	}, []string{"method"})
	polls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "payments",
		Name:      "status_checks_total",
		Help:      "Gateway status checks, by reported status. Transport errors are labelled error.",
	}, []string{"status"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "payments",
		Name:      "outcomes_total",
		Help:      "Resolved payment attempts, by final status.",
	}, []string{"status"})
	reg.MustRegister(initiated, polls, outcomes)
	return &PaymentMetrics{initiated: initiated, polls: polls, outcomes: outcomes}
}

func (p *PaymentMetrics) IncInitiated(method string) {
	if p == nil || p.initiated == nil {
		return
	}
	p.initiated.WithLabelValues(normalizeLabel(method)).Inc()
}

func (p *PaymentMetrics) IncStatusCheck(status string) {
	if p == nil || p.polls == nil {
		return
	}
	p.polls.WithLabelValues(normalizeLabel(status)).Inc()
}

func (p *PaymentMetrics) IncOutcome(status string) {
	if p == nil || p.outcomes == nil {
		return
	}
	p.outcomes.WithLabelValues(normalizeLabel(status)).Inc()
}
