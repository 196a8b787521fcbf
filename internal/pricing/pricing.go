// Package pricing derives the purchasable size/price variants of a product.
package pricing

import (
	"github.com/amogham/storefront/internal/enum"
	"github.com/shopspring/decimal"
)

// Size labels for the bulk-unit ladder.
const (
	SizeQuarter = "250g"
	SizeHalf    = "500g"
	SizeFull    = enum.UnitBulk

	defaultUnitLabel = "Unit"
)

// Product is the pricing-relevant view of a catalog product.
// Override prices are optional; nil (or zero) falls back to the derived fraction.
type Product struct {
	ID        string
	Name      string
	Image     string
	Unit      string
	BasePrice decimal.Decimal
	Price250g *decimal.Decimal
	Price500g *decimal.Decimal
	Price1kg  *decimal.Decimal
}

// Variant is a purchasable (size, price) option. Never persisted on its own.
type Variant struct {
	Size  string          `json:"size"`
	Price decimal.Decimal `json:"price"`
}

var (
	four = decimal.NewFromInt(4)
	two  = decimal.NewFromInt(2)
)

// ResolveVariants returns the variants of p in fixed order.
// Bulk-unit products get quarter, half and full sizes; anything else gets a
// single variant at the base price. A zero base price is not rejected.
func ResolveVariants(p Product) []Variant {
	if p.Unit != enum.UnitBulk {
		size := p.Unit
		if size == "" {
			size = defaultUnitLabel
		}
		return []Variant{{Size: size, Price: p.BasePrice}}
	}

	return []Variant{
		{Size: SizeQuarter, Price: override(p.Price250g, roundWhole(p.BasePrice.Div(four)))},
		{Size: SizeHalf, Price: override(p.Price500g, roundWhole(p.BasePrice.Div(two)))},
		{Size: SizeFull, Price: override(p.Price1kg, p.BasePrice)},
	}
}

// ResolveVariant looks up the variant of p with the given size.
func ResolveVariant(p Product, size string) (Variant, bool) {
	for _, v := range ResolveVariants(p) {
		if v.Size == size {
			return v, true
		}
	}
	return Variant{}, false
}

// SuggestedOverrides returns the quarter, half and full prices the admin
// product form pre-fills when a base price is typed in.
func SuggestedOverrides(base decimal.Decimal) (quarter, half, full decimal.Decimal) {
	return roundWhole(base.Div(four)), roundWhole(base.Div(two)), base
}

func override(price *decimal.Decimal, fallback decimal.Decimal) decimal.Decimal {
	if price == nil || price.IsZero() {
		return fallback
	}
	return *price
}

// roundWhole rounds to the nearest whole currency unit, halves away from zero.
func roundWhole(d decimal.Decimal) decimal.Decimal {
	return d.Round(0)
}
