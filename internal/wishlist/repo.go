package wishlist

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Repository encapsulates wishlist persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a wishlist repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// AddItem inserts a wishlist entry and ignores duplicates.
func (r *Repository) AddItem(ctx context.Context, userID, productID uuid.UUID) error {
	if userID == uuid.Nil || productID == uuid.Nil {
		return gorm.ErrInvalidValue
	}
	entry := models.WishlistItem{UserID: userID, ProductID: productID}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
			DoNothing: true,
		}).
		Create(&entry).Error
}

// RemoveItem deletes the saved product if present.
func (r *Repository) RemoveItem(ctx context.Context, userID, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.WishlistItem{}).
		Error
}

// ListItems returns saved products, most recently saved first.
func (r *Repository) ListItems(ctx context.Context, userID uuid.UUID) ([]Item, error) {
	rows := []Item{}
	err := r.db.WithContext(ctx).
		Table("wishlist_items AS wi").
		Select("p.id AS product_id, p.title, p.price, p.quantity, wi.created_at AS added_at").
		Joins("JOIN products p ON p.id = wi.product_id").
		Where("wi.user_id = ?", userID).
		Order("wi.created_at DESC").
		Order("p.id ASC").
		Scan(&rows).Error
	return rows, err
}
