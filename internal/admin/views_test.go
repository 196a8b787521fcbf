package admin_test

import (
	"bytes"
	"testing"

	"github.com/amogham/storefront/internal/admin"
	"github.com/amogham/storefront/internal/backend"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"
)

func sampleOrders() []backend.Order {
	return []backend.Order{
		{
			ID: "101", CustomerName: "Ravi Kumar", CustomerEmail: "ravi@example.com", CustomerPhone: "+919876543210",
			DeliveryAddress: "12 Temple St, Siddipet, 502103, India", Status: "pending", PaymentID: "pay_ABC",
			TotalAmount: decimal.NewFromInt(499), CreatedAt: base,
			Items: []backend.OrderItem{{ProductName: "Kaju Barfi", Size: "250g", Quantity: 1}},
		},
		{
			ID: "102", CustomerName: "Sita", CustomerEmail: "sita@example.com", CustomerPhone: "+14165550123",
			DeliveryAddress: "1 King St, Toronto, M5V 3L9, Canada", Status: "completed", PaymentID: "pay_XYZ",
			TotalAmount: decimal.RequireFromString("1250.50"), CreatedAt: base.AddDate(0, 0, 1),
			Items: []backend.OrderItem{{ProductName: "Mango Pickle", Size: "500G", Quantity: 2}},
		},
		{
			ID: "103", CustomerName: "Anil", Status: "completed",
			TotalAmount: decimal.NewFromInt(300),
		},
		{
			ID: "104", CustomerName: "Priya", Status: "failed",
			TotalAmount: decimal.NewFromInt(900),
		},
	}
}

func ids(orders []backend.Order) []string {
	out := make([]string, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.ID.String())
	}
	return out
}

func TestFilterOrders(t *testing.T) {
	all := sampleOrders()
	tests := []struct {
		name   string
		status string
		search string
		want   []string
	}{
		{"no filter", "All", "", []string{"101", "102", "103", "104"}},
		{"status", "completed", "", []string{"102", "103"}},
		{"name case-insensitive", "", "  RAVI ", []string{"101"}},
		{"email", "", "sita@", []string{"102"}},
		{"phone", "", "98765", []string{"101"}},
		{"address", "", "toronto", []string{"102"}},
		{"order id", "", "104", []string{"104"}},
		{"payment id", "", "pay_xyz", []string{"102"}},
		{"item name", "", "pickle", []string{"102"}},
		{"status and search", "pending", "pickle", []string{}},
		{"blank search", "", "   ", []string{"101", "102", "103", "104"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(admin.FilterOrders(all, tt.status, tt.search)))
		})
	}
}

func TestPendingOrders(t *testing.T) {
	assert.Equal(t, []string{"101"}, ids(admin.PendingOrders(sampleOrders())))
}

func TestSortOrders(t *testing.T) {
	orders := sampleOrders()
	admin.SortOrders(orders)
	assert.Equal(t, "102", orders[0].ID.String())
	assert.Equal(t, "101", orders[1].ID.String())
}

func TestFilterProducts(t *testing.T) {
	products := []backend.Product{
		{ID: "sw1", Name: "Kaju Barfi", TeluguName: "కాజు బర్ఫీ", Category: "Sweets"},
		{ID: "sn1", Name: "Chekkalu", Category: "Snacks"},
		{ID: "pk1", Name: "Mango Pickle", Category: "Pickles"},
	}

	got := admin.FilterProducts(products, "Snacks", "")
	require.Len(t, got, 1)
	assert.Equal(t, "sn1", got[0].ID.String())

	got = admin.FilterProducts(products, "All", "PK1")
	require.Len(t, got, 1)
	assert.Equal(t, "Mango Pickle", got[0].Name)

	got = admin.FilterProducts(products, "", "బర్ఫీ")
	require.Len(t, got, 1)
	assert.Equal(t, "sw1", got[0].ID.String())

	assert.Len(t, admin.FilterProducts(products, "All", ""), 3)
}

func TestComputeStats(t *testing.T) {
	products := []backend.Product{{Stock: 0}, {Stock: 3}, {Stock: 5}, {Stock: 6}, {Stock: 100}}
	st := admin.ComputeStats(products, sampleOrders())

	assert.Equal(t, 5, st.TotalProducts)
	assert.Equal(t, 4, st.TotalOrders)
	assert.True(t, st.Revenue.Equal(decimal.RequireFromString("1550.50")), st.Revenue.String())
	assert.Equal(t, 1, st.PendingOrders)
	assert.Equal(t, 2, st.LowStock)
	assert.Equal(t, 1, st.OutOfStock)
}

func TestStockStatus(t *testing.T) {
	assert.Equal(t, admin.StockOut, admin.StockStatus(-2))
	assert.Equal(t, admin.StockOut, admin.StockStatus(0))
	assert.Equal(t, admin.StockLow, admin.StockStatus(1))
	assert.Equal(t, admin.StockLow, admin.StockStatus(admin.LowStockThreshold))
	assert.Equal(t, admin.StockIn, admin.StockStatus(admin.LowStockThreshold+1))
}

func TestNextProductID(t *testing.T) {
	products := []backend.Product{{ID: "sw1"}, {ID: "sw12"}, {ID: "sw3x"}, {ID: "swirl"}, {ID: "sp2"}, {ID: "17"}}

	assert.Equal(t, "sw13", admin.NextProductID(products, "Sweets"))
	assert.Equal(t, "sp3", admin.NextProductID(products, "Spice Powders"))
	assert.Equal(t, "pk1", admin.NextProductID(products, "Pickles"))
	assert.Equal(t, "un1", admin.NextProductID(products, "Gifts"))
	assert.Equal(t, "sn1", admin.NextProductID(nil, "Snacks"))
}

func TestExportOrdersXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, admin.ExportOrdersXLSX(sampleOrders(), &buf))

	file, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, file.Sheets, 1)

	rows := file.Sheets[0].Rows
	require.Len(t, rows, 5)

	header := make([]string, 0, len(rows[0].Cells))
	for _, c := range rows[0].Cells {
		header = append(header, c.Value)
	}
	assert.Equal(t, admin.ExportHeaders, header)

	first := rows[1].Cells
	assert.Equal(t, "101", first[0].Value)
	assert.Equal(t, "Ravi Kumar", first[1].Value)
	assert.Equal(t, "499.00", first[5].Value)
	assert.Equal(t, "pending", first[6].Value)
	assert.Equal(t, "14/10/2025", first[8].Value)

	missing := rows[3].Cells
	assert.Equal(t, "N/A", missing[2].Value)
	assert.Equal(t, "N/A", missing[7].Value)
	assert.Equal(t, "N/A", missing[8].Value)
}

func TestExportFilename(t *testing.T) {
	assert.Equal(t, "orders_2025-10-14.xlsx", admin.ExportFilename("2025-10-14"))
}
