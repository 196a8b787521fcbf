// Package metrics holds the Prometheus collectors of the storefront service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the service's collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	checkouts      *prometheus.CounterVec
	orderFailures  *prometheus.CounterVec
	pollFetches    *prometheus.CounterVec
	notifications  prometheus.Counter
	cartMutations  *prometheus.CounterVec
	statusRollback prometheus.Counter
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		checkouts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "checkouts_total",
			Help:      "Checkout attempts by result.",
		}, []string{"result"}),
		orderFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "order_create_failures_total",
			Help:      "Backend order creation failures by order status.",
		}, []string{"status"}),
		pollFetches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "admin_fetches_total",
			Help:      "Admin dashboard fetches by resource and result.",
		}, []string{"resource", "result"}),
		notifications: f.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "new_order_notifications_total",
			Help:      "New-order notifications sent to the dashboard.",
		}),
		cartMutations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "cart_mutations_total",
			Help:      "Cart mutations by operation.",
		}, []string{"op"}),
		statusRollback: f.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "order_status_rollbacks_total",
			Help:      "Optimistic order status changes rolled back after a backend failure.",
		}),
	}
}

func (m *Metrics) Checkout(result string) {
	if m == nil {
		return
	}
	m.checkouts.WithLabelValues(result).Inc()
}

func (m *Metrics) OrderCreateFailed(status string) {
	if m == nil {
		return
	}
	m.orderFailures.WithLabelValues(status).Inc()
}

func (m *Metrics) Fetch(resource string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.pollFetches.WithLabelValues(resource, result).Inc()
}

func (m *Metrics) NewOrderNotification() {
	if m == nil {
		return
	}
	m.notifications.Inc()
}

func (m *Metrics) CartMutation(op string) {
	if m == nil {
		return
	}
	m.cartMutations.WithLabelValues(op).Inc()
}

func (m *Metrics) StatusRollback() {
	if m == nil {
		return
	}
	m.statusRollback.Inc()
}
