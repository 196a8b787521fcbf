package metrics_test

import (
	"errors"
	"testing"

	"github.com/amogham/storefront/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.Checkout("success")
	m.Checkout("success")
	m.Checkout("dismissed")
	m.Fetch("orders", nil)
	m.Fetch("orders", errors.New("boom"))
	m.NewOrderNotification()

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["storefront_checkouts_total"])
	assert.True(t, names["storefront_admin_fetches_total"])
	assert.True(t, names["storefront_new_order_notifications_total"])

	n, err := testutil.GatherAndCount(reg, "storefront_checkouts_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.Checkout("success")
		m.OrderCreateFailed("completed")
		m.Fetch("products", nil)
		m.NewOrderNotification()
		m.CartMutation("add")
		m.StatusRollback()
	})
}
