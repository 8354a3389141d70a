package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outbox publish outcomes.
const (
	PublishPublished    = "published"
	PublishRetry        = "retry"
	PublishDeadLettered = "dead_lettered"
)

// OutboxMetrics counts publisher outcomes per event type. A nil pointer is a no-op.
type OutboxMetrics struct {
	outcomes *prometheus.CounterVec
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	m := &OutboxMetrics{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_publish_total",
			Help:      "Outbox rows handled by the publisher, by event type and outcome.",
		}, []string{"event_type", "outcome"}),
	}
	reg.MustRegister(m.outcomes)
	return m
}

func (m *OutboxMetrics) Inc(eventType, outcome string) {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(label(eventType), label(outcome)).Inc()
}
