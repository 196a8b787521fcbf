package admin

import (
	"sort"
	"strconv"
	"strings"

	"github.com/amogham/storefront/internal/backend"
	"github.com/amogham/storefront/internal/enum"
	"github.com/shopspring/decimal"
)

// LowStockThreshold is the stock level at or below which a product is flagged.
const LowStockThreshold = 5

// FilterAll disables a category or status filter.
const FilterAll = "All"

// SortOrders orders newest first. Orders with equal timestamps keep their order.
func SortOrders(orders []backend.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}

// FilterOrders narrows orders by status and a free-text search over the
// customer fields, the order id, the payment reference and item names.
func FilterOrders(orders []backend.Order, status, search string) []backend.Order {
	term := strings.ToLower(strings.TrimSpace(search))
	out := make([]backend.Order, 0, len(orders))
	for _, o := range orders {
		if status != "" && status != FilterAll && o.Status != status {
			continue
		}
		if term != "" && !orderMatches(o, term) {
			continue
		}
		out = append(out, o)
	}
	return out
}

func orderMatches(o backend.Order, term string) bool {
	if contains(o.CustomerName, term) ||
		contains(o.CustomerEmail, term) ||
		strings.Contains(o.CustomerPhone, term) ||
		contains(o.DeliveryAddress, term) ||
		strings.Contains(o.ID.String(), term) ||
		contains(o.PaymentID, term) {
		return true
	}
	for _, it := range o.Items {
		if contains(it.ProductName, term) {
			return true
		}
	}
	return false
}

// FilterProducts narrows products by category and a search over name,
// Telugu name and id.
func FilterProducts(products []backend.Product, category, search string) []backend.Product {
	term := strings.ToLower(strings.TrimSpace(search))
	out := make([]backend.Product, 0, len(products))
	for _, p := range products {
		if category != "" && category != FilterAll && p.Category != category {
			continue
		}
		if term != "" && !contains(p.Name, term) && !contains(p.TeluguName, term) && !contains(p.ID.String(), term) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func contains(field, lowerTerm string) bool {
	return strings.Contains(strings.ToLower(field), lowerTerm)
}

// PendingOrders returns the orders awaiting operator action.
func PendingOrders(orders []backend.Order) []backend.Order {
	return FilterOrders(orders, enum.OrderStatusPending, "")
}

// Stats is the dashboard summary.
type Stats struct {
	TotalProducts int             `json:"totalProducts"`
	TotalOrders   int             `json:"totalOrders"`
	Revenue       decimal.Decimal `json:"revenue"`
	PendingOrders int             `json:"pendingOrders"`
	LowStock      int             `json:"lowStock"`
	OutOfStock    int             `json:"outOfStock"`
}

// ComputeStats summarises the fetched lists. Revenue counts completed orders only.
func ComputeStats(products []backend.Product, orders []backend.Order) Stats {
	st := Stats{
		TotalProducts: len(products),
		TotalOrders:   len(orders),
		Revenue:       decimal.Zero,
	}
	for _, o := range orders {
		switch o.Status {
		case enum.OrderStatusCompleted:
			st.Revenue = st.Revenue.Add(o.TotalAmount)
		case enum.OrderStatusPending:
			st.PendingOrders++
		}
	}
	for _, p := range products {
		switch StockStatus(int(p.Stock)) {
		case StockOut:
			st.OutOfStock++
		case StockLow:
			st.LowStock++
		}
	}
	return st
}

// Stock badges.
const (
	StockOut = "Out of Stock"
	StockLow = "Low Stock"
	StockIn  = "In Stock"
)

// StockStatus labels a stock level.
func StockStatus(stock int) string {
	switch {
	case stock <= 0:
		return StockOut
	case stock <= LowStockThreshold:
		return StockLow
	default:
		return StockIn
	}
}

// NextProductID returns the category prefix followed by one more than the
// highest numeric suffix among products with that prefix.
func NextProductID(products []backend.Product, category string) string {
	prefix := enum.CategoryPrefix(category)
	highest := 0
	for _, p := range products {
		id := p.ID.String()
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		if n, ok := leadingInt(id[len(prefix):]); ok && n > highest {
			highest = n
		}
	}
	return prefix + strconv.Itoa(highest+1)
}

// leadingInt parses the leading decimal digits of s.
func leadingInt(s string) (int, bool) {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	return n, err == nil
}
