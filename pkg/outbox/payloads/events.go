package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// OrderLine is the line snapshot carried by order events.
type OrderLine struct {
	ProductID uuid.UUID `json:"product_id"`
	Color     string    `json:"color,omitempty"`
	Quantity  int       `json:"quantity"`
	Price     string    `json:"price"`
}

// OrderCreatedEvent signals a new order assembled from a cart.
type OrderCreatedEvent struct {
	OrderID         uuid.UUID           `json:"order_id"`
	UserID          uuid.UUID           `json:"user_id"`
	CartID          *uuid.UUID          `json:"cart_id,omitempty"`
	PaymentMethod   enums.PaymentMethod `json:"payment_method"`
	IsPaid          bool                `json:"is_paid"`
	TotalOrderPrice string              `json:"total_order_price"`
	Items           []OrderLine         `json:"items"`
	CreatedAt       time.Time           `json:"created_at"`
}

// OrderPaidEvent is emitted the first time an order is marked paid.
type OrderPaidEvent struct {
	OrderID         uuid.UUID           `json:"order_id"`
	UserID          uuid.UUID           `json:"user_id"`
	PaymentMethod   enums.PaymentMethod `json:"payment_method"`
	TotalOrderPrice string              `json:"total_order_price"`
	PaidAt          time.Time           `json:"paid_at"`
}

// OrderDeliveredEvent is emitted the first time an order is marked delivered.
type OrderDeliveredEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	UserID      uuid.UUID `json:"user_id"`
	DeliveredAt time.Time `json:"delivered_at"`
}
