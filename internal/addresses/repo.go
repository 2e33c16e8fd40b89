package addresses

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Repository encapsulates saved address persistence.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Add inserts the address unless the user already saved an identical one.
func (r *Repository) Add(ctx context.Context, address *models.UserAddress) error {
	if address == nil || address.UserID == uuid.Nil {
		return gorm.ErrInvalidValue
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "user_id"}, {Name: "alias"}, {Name: "details"},
				{Name: "city"}, {Name: "postal_code"}, {Name: "phone"},
			},
			DoNothing: true,
		}).
		Create(address).Error
}

// Remove deletes one of the user's addresses if present.
func (r *Repository) Remove(ctx context.Context, userID, addressID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, addressID).
		Delete(&models.UserAddress{}).
		Error
}

// List returns the user's addresses in the order they were saved.
func (r *Repository) List(ctx context.Context, userID uuid.UUID) ([]models.UserAddress, error) {
	rows := []models.UserAddress{}
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}
