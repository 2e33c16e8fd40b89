package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Coupon is a named percentage discount valid until ExpiresAt.
type Coupon struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name      string          `gorm:"column:name;not null;uniqueIndex:coupons_name_key"`
	ExpiresAt time.Time       `gorm:"column:expires_at;not null"`
	Discount  decimal.Decimal `gorm:"column:discount;type:numeric(5,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Coupon) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// ActiveAt reports whether the coupon is still usable at now.
func (c Coupon) ActiveAt(now time.Time) bool {
	return !c.ExpiresAt.Before(now)
}
