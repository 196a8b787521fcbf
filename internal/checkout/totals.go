package checkout

import (
	"strings"

	"github.com/amogham/storefront/internal/cart"
	"github.com/shopspring/decimal"
)

// Totals is the money breakdown of one checkout.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shippingCharge"`
	Total    decimal.Decimal `json:"totalAmount"`
}

// ShippingCharge is zero when city matches localCity (ignoring case and
// surrounding whitespace), else fee.
func ShippingCharge(city, localCity string, fee decimal.Decimal) decimal.Decimal {
	if strings.EqualFold(strings.TrimSpace(city), strings.TrimSpace(localCity)) {
		return decimal.Zero
	}
	return fee
}

// Subtotal sums the line totals of items.
func Subtotal(items []cart.Item) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.LineTotal())
	}
	return sum
}

// ComputeTotals applies the shipping rule to subtotal.
func ComputeTotals(subtotal decimal.Decimal, city, localCity string, fee decimal.Decimal) Totals {
	shipping := ShippingCharge(city, localCity, fee)
	return Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		Total:    subtotal.Add(shipping),
	}
}

var hundred = decimal.NewFromInt(100)

// ToMinorUnits converts an amount to the gateway's minor currency unit (paise).
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}
