package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outbox publish results.
const (
	OutboxPublished  = "published"
	OutboxRetried    = "retried"
	OutboxDeadLetter = "dead_letter"
)

// OutboxMetrics counts outbox rows handled by the publisher.
type OutboxMetrics struct {
	events *prometheus.CounterVec
}

// NewOutboxMetrics registers the outbox counter on the provided registerer.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "outbox",
		Name:      "events_total",
		Help:      "Outbox rows by event type and publish outcome.",
	}, []string{"event_type", "result"})
	reg.MustRegister(events)
	return &OutboxMetrics{events: events}
}

// IncEvent counts one publish outcome.
func (m *OutboxMetrics) IncEvent(eventType, result string) {
	if m == nil || m.events == nil {
		return
	}
	m.events.WithLabelValues(normalizeLabel(eventType), normalizeLabel(result)).Inc()
}
