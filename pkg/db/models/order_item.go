package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderItem snapshots a cart line at order time. Position keeps the cart's line order.
type OrderItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index:order_items_order_id_idx"`
	Position  int             `gorm:"column:position;not null;default:0"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Color     string          `gorm:"column:color;not null;default:''"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Quantity  int             `gorm:"column:quantity;not null"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
