package domain

import "github.com/shopspring/decimal"

// PricingConfig carries the storefront's shipping and tax constants. All
// amounts are in minor currency units.
type PricingConfig struct {
	FreeShippingThreshold int64
	FlatShippingFee       int64
	TaxRate               decimal.Decimal
	Currency              string
}

// Totals is the order-total snapshot captured once when the payment step is
// entered. The gateway is always charged GrandTotal from this snapshot.
type Totals struct {
	Subtotal   int64 `json:"subtotal"`
	Shipping   int64 `json:"shipping"`
	Tax        int64 `json:"tax"`
	GrandTotal int64 `json:"grand_total"`
}

// ComputeTotals evaluates the order-total formula. Tax applies to the
// subtotal only, never to shipping, and the rate is rounded to a whole minor
// unit, half away from zero.
func ComputeTotals(subtotal int64, cfg PricingConfig) Totals {
	shipping := cfg.FlatShippingFee
	if subtotal >= cfg.FreeShippingThreshold {
		shipping = 0
	}

	tax := decimal.NewFromInt(subtotal).Mul(cfg.TaxRate).Round(0).IntPart()

	return Totals{
		Subtotal:   subtotal,
		Shipping:   shipping,
		Tax:        tax,
		GrandTotal: subtotal + shipping + tax,
	}
}
