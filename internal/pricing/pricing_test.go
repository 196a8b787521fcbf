package pricing_test

import (
	"testing"

	"github.com/amogham/storefront/internal/pricing"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func assertVariants(t *testing.T, got []pricing.Variant, want []pricing.Variant) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("variants: got %d, want %d (%+v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i].Size != want[i].Size {
			t.Errorf("variant[%d] size: got %q, want %q", i, got[i].Size, want[i].Size)
		}
		if !got[i].Price.Equal(want[i].Price) {
			t.Errorf("variant[%d] price: got %s, want %s", i, got[i].Price, want[i].Price)
		}
	}
}

func TestResolveVariants_BulkUnitDerived(t *testing.T) {
	got := pricing.ResolveVariants(pricing.Product{ID: "sw1", Unit: "1KG", BasePrice: dec("400")})

	assertVariants(t, got, []pricing.Variant{
		{Size: "250g", Price: dec("100")},
		{Size: "500g", Price: dec("200")},
		{Size: "1KG", Price: dec("400")},
	})
}

func TestResolveVariants_BulkUnitOverrides(t *testing.T) {
	got := pricing.ResolveVariants(pricing.Product{
		Unit:      "1KG",
		BasePrice: dec("400"),
		Price250g: decPtr("120"),
		Price1kg:  decPtr("390"),
	})

	assertVariants(t, got, []pricing.Variant{
		{Size: "250g", Price: dec("120")},
		{Size: "500g", Price: dec("200")},
		{Size: "1KG", Price: dec("390")},
	})
}

func TestResolveVariants_ZeroOverrideFallsBack(t *testing.T) {
	got := pricing.ResolveVariants(pricing.Product{
		Unit:      "1KG",
		BasePrice: dec("480"),
		Price500g: decPtr("0"),
	})

	if !got[1].Price.Equal(dec("240")) {
		t.Errorf("half price: got %s, want 240", got[1].Price)
	}
}

func TestResolveVariants_Rounding(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		quarter string
		half    string
	}{
		{"exact", "400", "100", "200"},
		{"quarter rounds up at half", "450", "113", "225"},
		{"quarter rounds down", "401", "100", "201"},
		{"half rounds up at half", "333", "83", "167"},
		{"fractional base", "99.99", "25", "50"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := pricing.ResolveVariants(pricing.Product{Unit: "1KG", BasePrice: dec(tc.base)})
			if !got[0].Price.Equal(dec(tc.quarter)) {
				t.Errorf("quarter: got %s, want %s", got[0].Price, tc.quarter)
			}
			if !got[1].Price.Equal(dec(tc.half)) {
				t.Errorf("half: got %s, want %s", got[1].Price, tc.half)
			}
			if !got[2].Price.Equal(dec(tc.base)) {
				t.Errorf("full: got %s, want %s", got[2].Price, tc.base)
			}
		})
	}
}

func TestResolveVariants_OtherUnit(t *testing.T) {
	got := pricing.ResolveVariants(pricing.Product{Unit: "500ML", BasePrice: dec("150")})
	assertVariants(t, got, []pricing.Variant{{Size: "500ML", Price: dec("150")}})
}

func TestResolveVariants_MissingUnit(t *testing.T) {
	got := pricing.ResolveVariants(pricing.Product{BasePrice: dec("75")})
	assertVariants(t, got, []pricing.Variant{{Size: "Unit", Price: dec("75")}})
}

func TestResolveVariants_MissingBasePrice(t *testing.T) {
	got := pricing.ResolveVariants(pricing.Product{Unit: "1KG"})
	for i, v := range got {
		if !v.Price.IsZero() {
			t.Errorf("variant[%d]: got %s, want 0", i, v.Price)
		}
	}
}

func TestResolveVariant(t *testing.T) {
	p := pricing.Product{Unit: "1KG", BasePrice: dec("400")}

	v, ok := pricing.ResolveVariant(p, "500g")
	if !ok || !v.Price.Equal(dec("200")) {
		t.Fatalf("500g: got %+v ok=%v", v, ok)
	}

	if _, ok := pricing.ResolveVariant(p, "2KG"); ok {
		t.Fatal("expected unknown size to be rejected")
	}
}

func TestSuggestedOverrides(t *testing.T) {
	q, h, f := pricing.SuggestedOverrides(dec("250"))
	if !q.Equal(dec("63")) || !h.Equal(dec("125")) || !f.Equal(dec("250")) {
		t.Errorf("got %s/%s/%s, want 63/125/250", q, h, f)
	}
}
