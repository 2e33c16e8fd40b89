package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

func d(t *testing.T, raw string) decimal.Decimal {
	t.Helper()
	value, err := decimal.NewFromString(raw)
	require.NoError(t, err)
	return value
}

func TestRecomputeTotals(t *testing.T) {
	cart := &models.Cart{Items: []models.CartItem{
		{Price: d(t, "10.00"), Quantity: 2},
		{Price: d(t, "5.50"), Quantity: 1},
	}}

	RecomputeTotals(cart)

	assert.True(t, cart.TotalCartPrice.Equal(d(t, "25.50")), "got %s", cart.TotalCartPrice)
}

func TestRecomputeTotalsEmptyCart(t *testing.T) {
	cart := &models.Cart{TotalCartPrice: d(t, "99")}
	RecomputeTotals(cart)
	assert.True(t, cart.TotalCartPrice.IsZero())

	RecomputeTotals(nil)
}

func TestEffectivePrice(t *testing.T) {
	discounted := d(t, "90.00")

	cases := []struct {
		name string
		cart *models.Cart
		want string
	}{
		{"nil cart", nil, "0"},
		{"no coupon", &models.Cart{TotalCartPrice: d(t, "100")}, "100"},
		{"coupon applied", &models.Cart{TotalCartPrice: d(t, "100"), CouponApplied: true, TotalPriceAfterDiscount: &discounted}, "90"},
		{"flag without value", &models.Cart{TotalCartPrice: d(t, "100"), CouponApplied: true}, "100"},
		{"stale value without flag", &models.Cart{TotalCartPrice: d(t, "100"), TotalPriceAfterDiscount: &discounted}, "100"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := EffectivePrice(tc.cart)
			assert.True(t, got.Equal(d(t, tc.want)), "got %s want %s", got, tc.want)
		})
	}
}

func TestApplyDiscount(t *testing.T) {
	assert.True(t, ApplyDiscount(d(t, "200"), d(t, "10")).Equal(d(t, "180")))
	assert.True(t, ApplyDiscount(d(t, "33.33"), d(t, "15")).Equal(d(t, "28.33")))
	assert.True(t, ApplyDiscount(d(t, "50"), d(t, "100")).IsZero())
}

func TestQuoteCartAddsCharges(t *testing.T) {
	cart := &models.Cart{TotalCartPrice: d(t, "40")}

	quote := QuoteCart(cart, Charges{})
	assert.True(t, quote.Total.Equal(d(t, "40")))

	quote = QuoteCart(cart, Charges{Shipping: d(t, "5"), Tax: d(t, "2.5")})
	assert.True(t, quote.Subtotal.Equal(d(t, "40")))
	assert.True(t, quote.Total.Equal(d(t, "47.5")))
}

func TestMinorUnitsRoundTrip(t *testing.T) {
	assert.Equal(t, int64(1999), ToMinorUnits(d(t, "19.99")))
	assert.Equal(t, int64(1000), ToMinorUnits(d(t, "10")))
	assert.Equal(t, int64(1), ToMinorUnits(d(t, "0.005")))
	assert.True(t, FromMinorUnits(1999).Equal(d(t, "19.99")))
	assert.True(t, FromMinorUnits(0).IsZero())
}
