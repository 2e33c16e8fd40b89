package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// CartRepository defines the persistence surface required by the cart service.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	FindByUserForUpdate(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Cart, error)
	Create(ctx context.Context, cart *models.Cart) error
	SaveTotals(ctx context.Context, cart *models.Cart) error
	CreateItem(ctx context.Context, item *models.CartItem) error
	UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error
	DeleteItem(ctx context.Context, itemID uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteStaleBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
