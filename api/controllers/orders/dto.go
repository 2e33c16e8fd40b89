package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type shippingAddressRequest struct {
	Details    string `json:"details" validate:"required,max=256"`
	City       string `json:"city" validate:"required,max=128"`
	PostalCode string `json:"postal_code,omitempty" validate:"max=32"`
	Phone      string `json:"phone" validate:"required,max=32"`
}

func (r shippingAddressRequest) toAddress() types.ShippingAddress {
	return types.ShippingAddress{
		Details:    r.Details,
		City:       r.City,
		PostalCode: r.PostalCode,
		Phone:      r.Phone,
	}.Normalize()
}

type createCashOrderRequest struct {
	ShippingAddress shippingAddressRequest `json:"shipping_address"`
}

// ShippingAddressDTO is the delivery address attached to an order.
type ShippingAddressDTO struct {
	Details    string `json:"details"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code,omitempty"`
	Phone      string `json:"phone"`
}

// OrderItemDTO is one snapshotted line of an order.
type OrderItemDTO struct {
	ProductID uuid.UUID       `json:"product_id"`
	Color     string          `json:"color,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// OrderDTO is the order as returned to its owner or to staff.
type OrderDTO struct {
	ID                uuid.UUID          `json:"id"`
	UserID            uuid.UUID          `json:"user_id"`
	CartID            *uuid.UUID         `json:"cart_id,omitempty"`
	CheckoutSessionID *string            `json:"checkout_session_id,omitempty"`
	Items             []OrderItemDTO     `json:"items"`
	ShippingAddress   ShippingAddressDTO `json:"shipping_address"`
	ShippingPrice     decimal.Decimal    `json:"shipping_price"`
	TaxPrice          decimal.Decimal    `json:"tax_price"`
	TotalOrderPrice   decimal.Decimal    `json:"total_order_price"`
	PaymentMethod     string             `json:"payment_method"`
	IsPaid            bool               `json:"is_paid"`
	PaidAt            *time.Time         `json:"paid_at,omitempty"`
	IsDelivered       bool               `json:"is_delivered"`
	DeliveredAt       *time.Time         `json:"delivered_at,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
}

// CheckoutSessionDTO points the client at the hosted payment page.
type CheckoutSessionDTO struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	AmountTotal int64  `json:"amount_total"`
	Currency    string `json:"currency"`
}

func newOrderDTO(o *models.Order) OrderDTO {
	items := make([]OrderItemDTO, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemDTO{
			ProductID: item.ProductID,
			Color:     item.Color,
			Price:     item.Price,
			Quantity:  item.Quantity,
		})
	}
	return OrderDTO{
		ID:                o.ID,
		UserID:            o.UserID,
		CartID:            o.CartID,
		CheckoutSessionID: o.CheckoutSessionID,
		Items:             items,
		ShippingAddress: ShippingAddressDTO{
			Details:    o.ShippingAddress.Details,
			City:       o.ShippingAddress.City,
			PostalCode: o.ShippingAddress.PostalCode,
			Phone:      o.ShippingAddress.Phone,
		},
		ShippingPrice:   o.ShippingPrice,
		TaxPrice:        o.TaxPrice,
		TotalOrderPrice: o.TotalOrderPrice,
		PaymentMethod:   o.PaymentMethod.String(),
		IsPaid:          o.IsPaid,
		PaidAt:          o.PaidAt,
		IsDelivered:     o.IsDelivered,
		DeliveredAt:     o.DeliveredAt,
		CreatedAt:       o.CreatedAt,
	}
}
