// Package pricing derives cart and order totals. It performs no I/O.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

const centsPlaces = 2

var (
	hundred = decimal.NewFromInt(100)
)

// Charges are the flat amounts added on top of the effective cart price.
// The zero value means free shipping and no tax.
type Charges struct {
	Shipping decimal.Decimal
	Tax      decimal.Decimal
}

// Quote is the priced view of a cart at checkout time.
type Quote struct {
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// RecomputeTotals sets TotalCartPrice to the sum of every line.
func RecomputeTotals(cart *models.Cart) {
	if cart == nil {
		return
	}
	total := decimal.Zero
	for _, item := range cart.Items {
		total = total.Add(item.LineTotal())
	}
	cart.TotalCartPrice = total.Round(centsPlaces)
}

// EffectivePrice is the discounted total when a coupon is applied, otherwise the cart total.
func EffectivePrice(cart *models.Cart) decimal.Decimal {
	if cart == nil {
		return decimal.Zero
	}
	if cart.CouponApplied && cart.TotalPriceAfterDiscount != nil {
		return *cart.TotalPriceAfterDiscount
	}
	return cart.TotalCartPrice
}

// ApplyDiscount takes percent off total, rounded to cents.
func ApplyDiscount(total, percent decimal.Decimal) decimal.Decimal {
	off := total.Mul(percent).Div(hundred)
	return total.Sub(off).Round(centsPlaces)
}

// OrderTotal sums the effective price with shipping and tax.
func OrderTotal(effective decimal.Decimal, charges Charges) decimal.Decimal {
	return effective.Add(charges.Shipping).Add(charges.Tax).Round(centsPlaces)
}

// QuoteCart prices a cart with the given charges.
func QuoteCart(cart *models.Cart, charges Charges) Quote {
	subtotal := EffectivePrice(cart)
	return Quote{
		Subtotal: subtotal,
		Shipping: charges.Shipping,
		Tax:      charges.Tax,
		Total:    OrderTotal(subtotal, charges),
	}
}

// ToMinorUnits converts an amount into integer cents.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// FromMinorUnits converts integer cents back into an amount.
func FromMinorUnits(cents int64) decimal.Decimal {
	return decimal.New(cents, -centsPlaces)
}
