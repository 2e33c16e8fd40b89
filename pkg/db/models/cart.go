package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Cart is the single shopping cart a user owns.
type Cart struct {
	ID                      uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	UserID                  uuid.UUID        `gorm:"column:user_id;type:uuid;not null;uniqueIndex:carts_user_id_key"`
	TotalCartPrice          decimal.Decimal  `gorm:"column:total_cart_price;type:numeric(12,2);not null;default:0"`
	TotalPriceAfterDiscount *decimal.Decimal `gorm:"column:total_price_after_discount;type:numeric(12,2)"`
	CouponApplied           bool             `gorm:"column:coupon_applied;not null;default:false"`
	CouponName              *string          `gorm:"column:coupon_name"`
	Items                   []CartItem       `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt               time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt               time.Time        `gorm:"column:updated_at;autoUpdateTime;index:carts_updated_at_idx"`
}

func (c *Cart) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// ClearDiscount drops any applied coupon state.
func (c *Cart) ClearDiscount() {
	c.TotalPriceAfterDiscount = nil
	c.CouponApplied = false
	c.CouponName = nil
}
