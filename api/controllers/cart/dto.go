package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

type addItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Color     string    `json:"color,omitempty" validate:"max=32"`
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"gt=0"`
}

type applyCouponRequest struct {
	Coupon string `json:"coupon" validate:"required,max=64"`
}

// CartItemDTO is one priced line of the cart.
type CartItemDTO struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	Color     string          `json:"color,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// CartDTO is the cart as returned to its owner.
type CartDTO struct {
	ID                      uuid.UUID        `json:"id"`
	UserID                  uuid.UUID        `json:"user_id"`
	NumOfCartItems          int              `json:"num_of_cart_items"`
	Items                   []CartItemDTO    `json:"items"`
	TotalCartPrice          decimal.Decimal  `json:"total_cart_price"`
	TotalPriceAfterDiscount *decimal.Decimal `json:"total_price_after_discount,omitempty"`
	CouponApplied           bool             `json:"coupon_applied"`
	CouponName              *string          `json:"coupon_name,omitempty"`
	UpdatedAt               time.Time        `json:"updated_at"`
}

func newCartDTO(cart *models.Cart) CartDTO {
	items := make([]CartItemDTO, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, CartItemDTO{
			ID:        item.ID,
			ProductID: item.ProductID,
			Color:     item.Color,
			Price:     item.Price,
			Quantity:  item.Quantity,
		})
	}
	return CartDTO{
		ID:                      cart.ID,
		UserID:                  cart.UserID,
		NumOfCartItems:          len(items),
		Items:                   items,
		TotalCartPrice:          cart.TotalCartPrice,
		TotalPriceAfterDiscount: cart.TotalPriceAfterDiscount,
		CouponApplied:           cart.CouponApplied,
		CouponName:              cart.CouponName,
		UpdatedAt:               cart.UpdatedAt,
	}
}
