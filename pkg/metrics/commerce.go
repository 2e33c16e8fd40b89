package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Webhook results recorded by the Stripe endpoint.
const (
	WebhookProcessed        = "processed"
	WebhookDuplicate        = "duplicate"
	WebhookFailed           = "failed"
	WebhookInvalidSignature = "invalid_signature"
)

// Checkout session results.
const (
	CheckoutCreated = "created"
	CheckoutFailed  = "failed"
)

// CommerceMetrics counts orders, checkout sessions and payment webhooks.
type CommerceMetrics struct {
	orders   *prometheus.CounterVec
	sessions *prometheus.CounterVec
	webhooks *prometheus.CounterVec
}

// NewCommerceMetrics registers the storefront counters on the provided registerer.
func NewCommerceMetrics(reg prometheus.Registerer) *CommerceMetrics {
	if reg == nil {
		return &CommerceMetrics{}
	}
	orders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders assembled from carts.",
	}, []string{"payment_method"})
	sessions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_sessions_total",
		Help: "Hosted checkout session requests.",
	}, []string{"result"})
	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stripe_webhook_events_total",
		Help: "Stripe webhook deliveries by event type and outcome.",
	}, []string{"type", "result"})
	reg.MustRegister(orders, sessions, webhooks)
	return &CommerceMetrics{
		orders:   orders,
		sessions: sessions,
		webhooks: webhooks,
	}
}

// IncOrderCreated counts a newly created order.
func (m *CommerceMetrics) IncOrderCreated(paymentMethod string) {
	if m == nil || m.orders == nil {
		return
	}
	m.orders.WithLabelValues(normalizeLabel(paymentMethod)).Inc()
}

// IncCheckoutSession counts a checkout session attempt.
func (m *CommerceMetrics) IncCheckoutSession(result string) {
	if m == nil || m.sessions == nil {
		return
	}
	m.sessions.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncWebhookEvent counts a webhook delivery.
func (m *CommerceMetrics) IncWebhookEvent(eventType, result string) {
	if m == nil || m.webhooks == nil {
		return
	}
	m.webhooks.WithLabelValues(normalizeLabel(eventType), normalizeLabel(result)).Inc()
}
