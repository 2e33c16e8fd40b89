package products

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// InventoryAdjustment moves Quantity units from stock to sold for one product.
type InventoryAdjustment struct {
	ProductID uuid.UUID
	Quantity  int
}

// MissingProductError reports an adjustment that matched no product row.
type MissingProductError struct {
	ProductID uuid.UUID
}

func (e *MissingProductError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// Repository is the catalog projection used by carts and orders.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a product.
func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// FindByID loads the product.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// BulkAdjustInventory decrements quantity and increments sold for every adjustment.
// Callers run it inside the order transaction; the first missing product aborts the batch.
func (r *Repository) BulkAdjustInventory(ctx context.Context, adjustments []InventoryAdjustment) error {
	tx := r.db.WithContext(ctx)
	for _, adj := range adjustments {
		if adj.Quantity <= 0 {
			continue
		}
		res := tx.Model(&models.Product{}).
			Where("id = ?", adj.ProductID).
			Updates(map[string]any{
				"quantity": gorm.Expr("quantity - ?", adj.Quantity),
				"sold":     gorm.Expr("sold + ?", adj.Quantity),
			})
		if res.Error != nil {
			return fmt.Errorf("adjust inventory for %s: %w", adj.ProductID, res.Error)
		}
		if res.RowsAffected == 0 {
			return &MissingProductError{ProductID: adj.ProductID}
		}
	}
	return nil
}

// AdjustInventoryTx runs BulkAdjustInventory on the caller's transaction.
func (r *Repository) AdjustInventoryTx(ctx context.Context, tx *gorm.DB, adjustments []InventoryAdjustment) error {
	return r.WithTx(tx).BulkAdjustInventory(ctx, adjustments)
}
