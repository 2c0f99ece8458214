// Package pricing turns cart lines and an applied discount into display and
// submission totals. All functions are pure.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/brunoshop/storefront/internal/domain"
)

const (
	// FreeShippingThreshold is compared against the pre-discount subtotal.
	FreeShippingThreshold = 50.00
	// ShippingFee applies below the threshold.
	ShippingFee = 4.99
)

// Totals is the full price breakdown for a set of cart lines.
type Totals struct {
	TotalItems            int     `json:"total_items"`
	Subtotal              float64 `json:"subtotal"`
	Discount              float64 `json:"discount"`
	SubtotalAfterDiscount float64 `json:"subtotal_after_discount"`
	Shipping              float64 `json:"shipping"`
	GrandTotal            float64 `json:"grand_total"`
}

// Subtotal sums price times quantity across items.
func Subtotal(items []domain.CartItem) float64 {
	total := 0.0
	for _, item := range items {
		total += item.Price * float64(item.Quantity)
	}
	return total
}

// ClampDiscount bounds a discount to [0, subtotal] so an over-large remote
// discount can never produce a negative total.
func ClampDiscount(discount, subtotal float64) float64 {
	if discount < 0 {
		return 0
	}
	if discount > subtotal {
		return subtotal
	}
	return discount
}

// Calculate derives the totals for the given items and applied discount.
// The free-shipping threshold is evaluated against the pre-discount subtotal.
func Calculate(items []domain.CartItem, appliedDiscount float64) Totals {
	subtotal := Subtotal(items)
	discount := ClampDiscount(appliedDiscount, subtotal)
	afterDiscount := subtotal - discount

	shipping := ShippingFee
	if subtotal >= FreeShippingThreshold {
		shipping = 0
	}

	totalItems := 0
	for _, item := range items {
		totalItems += item.Quantity
	}

	return Totals{
		TotalItems:            totalItems,
		Subtotal:              subtotal,
		Discount:              discount,
		SubtotalAfterDiscount: afterDiscount,
		Shipping:              shipping,
		GrandTotal:            afterDiscount + shipping,
	}
}

// Round2 rounds a monetary amount to two decimals. Intermediate totals stay
// unrounded; this is applied only at display and submission boundaries.
func Round2(amount float64) float64 {
	rounded, _ := decimal.NewFromFloat(amount).Round(2).Float64()
	return rounded
}

// Rounded returns a copy of the totals with every amount rounded to two
// decimals, for response payloads and order submission.
func (t Totals) Rounded() Totals {
	return Totals{
		TotalItems:            t.TotalItems,
		Subtotal:              Round2(t.Subtotal),
		Discount:              Round2(t.Discount),
		SubtotalAfterDiscount: Round2(t.SubtotalAfterDiscount),
		Shipping:              Round2(t.Shipping),
		GrandTotal:            Round2(t.GrandTotal),
	}
}
