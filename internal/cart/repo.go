package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Repository exposes persistence operations for carts and their lines.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(q *gorm.DB) *gorm.DB {
		return q.Order("created_at ASC")
	})
}

// FindByUser loads the user's cart with its lines.
func (r *Repository) FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := preloadItems(r.db.WithContext(ctx)).
		Where("user_id = ?", userID).
		First(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// FindByUserForUpdate loads the user's cart and locks the row until the transaction ends.
func (r *Repository) FindByUserForUpdate(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := preloadItems(r.db.WithContext(ctx)).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// FindByIDForUpdate loads a cart by id and locks the row until the transaction ends.
func (r *Repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := preloadItems(r.db.WithContext(ctx)).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// Create inserts an empty cart.
func (r *Repository) Create(ctx context.Context, cart *models.Cart) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(cart).Error
}

// SaveTotals persists the derived price and coupon columns.
func (r *Repository) SaveTotals(ctx context.Context, cart *models.Cart) error {
	return r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ?", cart.ID).
		Updates(map[string]any{
			"total_cart_price":           cart.TotalCartPrice,
			"total_price_after_discount": cart.TotalPriceAfterDiscount,
			"coupon_applied":             cart.CouponApplied,
			"coupon_name":                cart.CouponName,
		}).Error
}

// CreateItem inserts a cart line.
func (r *Repository) CreateItem(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// UpdateItemQuantity overwrites a line's quantity.
func (r *Repository) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ?", itemID).
		Update("quantity", quantity).Error
}

// DeleteItem removes a single line.
func (r *Repository) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.CartItem{}, "id = ?", itemID).Error
}

// Delete removes the cart and its lines.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("cart_id = ?", id).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	return tx.Delete(&models.Cart{}, "id = ?", id).Error
}

// DeleteStaleBefore removes carts untouched since cutoff and returns how many were dropped.
func (r *Repository) DeleteStaleBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tx := r.db.WithContext(ctx)
	stale := tx.Model(&models.Cart{}).Select("id").Where("updated_at < ?", cutoff)
	if err := tx.Where("cart_id IN (?)", stale).Delete(&models.CartItem{}).Error; err != nil {
		return 0, err
	}
	res := tx.Where("updated_at < ?", cutoff).Delete(&models.Cart{})
	return res.RowsAffected, res.Error
}
