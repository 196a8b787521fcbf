package enum

// ── Order lifecycle ──

const (
	OrderStatusPending   = "pending"
	OrderStatusCompleted = "completed"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
	OrderStatusFailed    = "failed"
)

// OrderStatuses lists every status in the order the dashboard offers them.
var OrderStatuses = []string{
	OrderStatusPending,
	OrderStatusCompleted,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusFailed,
}

// IsValidOrderStatus reports whether s is one of OrderStatuses.
func IsValidOrderStatus(s string) bool {
	for _, v := range OrderStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// ── Catalog ──

const (
	CategorySweets       = "Sweets"
	CategorySnacks       = "Snacks"
	CategorySpicePowders = "Spice Powders"
	CategoryPickles      = "Pickles"
)

var Categories = []string{
	CategorySweets,
	CategorySnacks,
	CategorySpicePowders,
	CategoryPickles,
}

// CategoryPrefix returns the product id prefix for a category ("un" when unknown).
func CategoryPrefix(category string) string {
	switch category {
	case CategorySweets:
		return "sw"
	case CategorySnacks:
		return "sn"
	case CategorySpicePowders:
		return "sp"
	case CategoryPickles:
		return "pk"
	default:
		return "un"
	}
}

// UnitBulk is the unit that unlocks the quarter/half/full size ladder.
const UnitBulk = "1KG"

// ── Checkout attempt states ──

const (
	CheckoutIdle          = "IDLE"
	CheckoutValidating    = "VALIDATING"
	CheckoutScriptLoading = "SCRIPT_LOADING"
	CheckoutGatewayOpen   = "GATEWAY_OPEN"
	CheckoutCreatingOrder = "CREATING_ORDER"
)
