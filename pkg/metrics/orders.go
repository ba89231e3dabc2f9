package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics counts checkout outcomes.
type OrderMetrics struct {
	created     *prometheus.CounterVec
	cancelled   prometheus.Counter
	failures    *prometheus.CounterVec
	transitions *prometheus.CounterVec
}

// NewOrderMetrics registers the order counters on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	created := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders placed, by payment method.",
	}, []string{"payment_method"})
	cancelled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_cancelled_total",
		Help: "Orders cancelled by buyers.",
	})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_failures_total",
		Help: "Order creation attempts that were rejected, by reason.",
	}, []string{"reason"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_transitions_total",
		Help: "Vendor driven order status changes, by target status.",
	}, []string{"status"})
	reg.MustRegister(created, cancelled, failures, transitions)
	return &OrderMetrics{
		created:     created,
		cancelled:   cancelled,
		failures:    failures,
		transitions: transitions,
	}
}

func (m *OrderMetrics) IncCreated(paymentMethod string) {
	if m == nil || m.created == nil {
		return
	}
	m.created.WithLabelValues(normalizeLabel(paymentMethod)).Inc()
}

func (m *OrderMetrics) IncCancelled() {
	if m == nil || m.cancelled == nil {
		return
	}
	m.cancelled.Inc()
}

// IncCheckoutFailure records a rejected checkout; reason is usually an error code.
func (m *OrderMetrics) IncCheckoutFailure(reason string) {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.WithLabelValues(normalizeLabel(reason)).Inc()
}

func (m *OrderMetrics) IncTransition(status string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(status)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
