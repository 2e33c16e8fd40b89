package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Order is the immutable purchase record assembled from a cart.
type Order struct {
	ID                uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	UserID            uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index:orders_user_id_idx"`
	CartID            *uuid.UUID            `gorm:"column:cart_id;type:uuid;uniqueIndex:orders_cart_id_key"`
	CheckoutSessionID *string               `gorm:"column:checkout_session_id;uniqueIndex:orders_checkout_session_id_key"`
	ShippingPrice     decimal.Decimal       `gorm:"column:shipping_price;type:numeric(12,2);not null;default:0"`
	TaxPrice          decimal.Decimal       `gorm:"column:tax_price;type:numeric(12,2);not null;default:0"`
	TotalOrderPrice   decimal.Decimal       `gorm:"column:total_order_price;type:numeric(12,2);not null"`
	ShippingAddress   types.ShippingAddress `gorm:"column:shipping_address;type:jsonb;not null"`
	PaymentMethod     enums.PaymentMethod   `gorm:"column:payment_method;type:text;not null;default:'cash'"`
	IsPaid            bool                  `gorm:"column:is_paid;not null;default:false"`
	PaidAt            *time.Time            `gorm:"column:paid_at"`
	IsDelivered       bool                  `gorm:"column:is_delivered;not null;default:false"`
	DeliveredAt       *time.Time            `gorm:"column:delivered_at"`
	Items             []OrderItem           `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}
