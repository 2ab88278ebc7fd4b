package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels shared by the order flow counters.
const (
	OutcomeSuccess = "success"
	OutcomeSkipped = "skipped"
)

// OrderFlowMetrics counts checkouts, payment webhooks and cancellations.
type OrderFlowMetrics struct {
	checkouts     *prometheus.CounterVec
	ordersCreated prometheus.Counter
	webhooks      *prometheus.CounterVec
	cancellations *prometheus.CounterVec
	transitions   *prometheus.CounterVec
}

// NewOrderFlowMetrics registers the order flow metrics on the provided registerer.
func NewOrderFlowMetrics(reg prometheus.Registerer) *OrderFlowMetrics {
	if reg == nil {
		return &OrderFlowMetrics{}
	}
	m := &OrderFlowMetrics{
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vendora_checkout_total",
			Help: "Checkout attempts by outcome code.",
		}, []string{"outcome"}),
		ordersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vendora_orders_created_total",
			Help: "Per-shop orders created by successful checkouts.",
		}),
		webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vendora_payment_webhook_total",
			Help: "Payment webhook deliveries by outcome code.",
		}, []string{"outcome"}),
		cancellations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vendora_payment_cancellations_total",
			Help: "Payment cancellation attempts by reason and outcome.",
		}, []string{"reason", "outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vendora_order_transitions_total",
			Help: "Order status transitions by target status.",
		}, []string{"to"}),
	}
	reg.MustRegister(m.checkouts, m.ordersCreated, m.webhooks, m.cancellations, m.transitions)
	return m
}

// ObserveCheckout records one checkout attempt and, on success, the number of orders it created.
func (m *OrderFlowMetrics) ObserveCheckout(outcome string, orders int) {
	if m == nil || m.checkouts == nil {
		return
	}
	m.checkouts.WithLabelValues(normalizeLabel(outcome)).Inc()
	if outcome == OutcomeSuccess && orders > 0 {
		m.ordersCreated.Add(float64(orders))
	}
}

// ObserveWebhook records one payment webhook delivery.
func (m *OrderFlowMetrics) ObserveWebhook(outcome string) {
	if m == nil || m.webhooks == nil {
		return
	}
	m.webhooks.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveCancellation records one cancellation attempt.
func (m *OrderFlowMetrics) ObserveCancellation(reason, outcome string) {
	if m == nil || m.cancellations == nil {
		return
	}
	m.cancellations.WithLabelValues(normalizeLabel(reason), normalizeLabel(outcome)).Inc()
}

// ObserveTransition records an order moving into status to.
func (m *OrderFlowMetrics) ObserveTransition(to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(to)).Inc()
}
