package coupons

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	couponsvc "github.com/angelmondragon/storefront-backend/internal/coupons"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

type couponRequest struct {
	Name      string          `json:"name" validate:"required,max=64"`
	ExpiresAt time.Time       `json:"expires_at" validate:"required"`
	Discount  decimal.Decimal `json:"discount"`
}

func (r couponRequest) toInput() couponsvc.CouponInput {
	return couponsvc.CouponInput{
		Name:      r.Name,
		ExpiresAt: r.ExpiresAt,
		Discount:  r.Discount,
	}
}

// CouponDTO is the admin view of a coupon.
type CouponDTO struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	ExpiresAt time.Time       `json:"expires_at"`
	Discount  decimal.Decimal `json:"discount"`
	Active    bool            `json:"active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func newCouponDTO(c *models.Coupon, now time.Time) CouponDTO {
	return CouponDTO{
		ID:        c.ID,
		Name:      c.Name,
		ExpiresAt: c.ExpiresAt,
		Discount:  c.Discount,
		Active:    c.ActiveAt(now),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
