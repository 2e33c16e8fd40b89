package coupons

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Repository persists coupons.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a coupon repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, coupon *models.Coupon) error {
	return r.db.WithContext(ctx).Create(coupon).Error
}

func (r *Repository) Update(ctx context.Context, coupon *models.Coupon) error {
	return r.db.WithContext(ctx).Save(coupon).Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&models.Coupon{}, "id = ?", id)
	return res.RowsAffected > 0, res.Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := r.db.WithContext(ctx).First(&coupon, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &coupon, nil
}

// FindByName matches the normalized coupon name.
func (r *Repository) FindByName(ctx context.Context, name string) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&coupon).Error; err != nil {
		return nil, err
	}
	return &coupon, nil
}

// List returns coupons ordered by expiry, soonest first.
func (r *Repository) List(ctx context.Context) ([]models.Coupon, error) {
	var coupons []models.Coupon
	if err := r.db.WithContext(ctx).Order("expires_at ASC").Find(&coupons).Error; err != nil {
		return nil, err
	}
	return coupons, nil
}
