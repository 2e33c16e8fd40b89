package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts the order together with its item snapshot.
func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *repository) FindByCartID(ctx context.Context, cartID uuid.UUID) (*models.Order, error) {
	return r.first(ctx, "cart_id = ?", cartID)
}

func (r *repository) FindByCheckoutSessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	return r.first(ctx, "checkout_session_id = ?", sessionID)
}

// List returns up to limit orders newest first, starting after the cursor when one is given.
// A nil userID lists every customer's orders.
func (r *repository) List(ctx context.Context, userID *uuid.UUID, limit int, after *pagination.Cursor) ([]models.Order, error) {
	q := r.db.WithContext(ctx).Preload("Items", orderItems)
	if userID != nil {
		q = q.Where("user_id = ?", *userID)
	}
	if after != nil {
		q = q.Where("((created_at < ?) OR (created_at = ? AND id < ?))", after.CreatedAt, after.CreatedAt, after.ID)
	}
	var rows []models.Order
	err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

// MarkPaid flips is_paid once and reports whether this call made the transition.
func (r *repository) MarkPaid(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND is_paid = ?", id, false).
		Updates(map[string]any{"is_paid": true, "paid_at": at})
	return res.RowsAffected > 0, res.Error
}

// MarkDelivered flips is_delivered once and reports whether this call made the transition.
func (r *repository) MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND is_delivered = ?", id, false).
		Updates(map[string]any{"is_delivered": true, "delivered_at": at})
	return res.RowsAffected > 0, res.Error
}

// SettleByCard records a card payment against an order that is still unpaid.
func (r *repository) SettleByCard(ctx context.Context, id uuid.UUID, sessionID string, at time.Time) (bool, error) {
	fields := map[string]any{
		"is_paid":        true,
		"paid_at":        at,
		"payment_method": string(enums.PaymentMethodCard),
	}
	if sessionID != "" {
		fields["checkout_session_id"] = sessionID
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND is_paid = ?", id, false).
		Updates(fields)
	return res.RowsAffected > 0, res.Error
}

func (r *repository) first(ctx context.Context, query string, arg any) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", orderItems).
		Where(query, arg).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func orderItems(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC").Order("id ASC")
}
