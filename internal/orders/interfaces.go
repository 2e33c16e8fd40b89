package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Repository defines persistence for orders and their line snapshots.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByCartID(ctx context.Context, cartID uuid.UUID) (*models.Order, error)
	FindByCheckoutSessionID(ctx context.Context, sessionID string) (*models.Order, error)
	List(ctx context.Context, userID *uuid.UUID, limit int, after *pagination.Cursor) ([]models.Order, error)
	MarkPaid(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	SettleByCard(ctx context.Context, id uuid.UUID, sessionID string, at time.Time) (bool, error)
}

// InventoryAdjuster moves ordered units from stock to sold inside the order transaction.
type InventoryAdjuster interface {
	AdjustInventoryTx(ctx context.Context, tx *gorm.DB, adjustments []products.InventoryAdjustment) error
}

// UserDirectory resolves the customer behind a card payment.
type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type orderMetrics interface {
	IncOrderCreated(paymentMethod string)
}
