package wishlist

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Item is a saved product joined with its current catalog price.
type Item struct {
	ProductID uuid.UUID       `gorm:"column:product_id"`
	Title     string          `gorm:"column:title"`
	Price     decimal.Decimal `gorm:"column:price"`
	Quantity  int             `gorm:"column:quantity"`
	AddedAt   time.Time       `gorm:"column:added_at"`
}
