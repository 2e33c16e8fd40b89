package outbox

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

const errorTextLimit = 1024

var errNoTx = errors.New("outbox: transaction required")

// Repository owns outbox_events and outbox_dlq. Methods that take a tx must run inside the
// caller's transaction so row state changes commit with the work that caused them.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(tx *gorm.DB, event models.OutboxEvent) error {
	if tx == nil {
		return errNoTx
	}
	return tx.Create(&event).Error
}

// ClaimPending locks up to limit unpublished rows, oldest first. Rows held by another
// relay are skipped, as are rows that already used maxAttempts.
func (r *Repository) ClaimPending(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	if tx == nil {
		return nil, errNoTx
	}
	q := tx.Where("published_at IS NULL")
	if maxAttempts > 0 {
		q = q.Where("attempt_count < ?", maxAttempts)
	}
	var rows []models.OutboxEvent
	err := q.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate, Options: clause.LockingOptionsSkipLocked}).
		Order("created_at, id").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *Repository) MarkPublished(tx *gorm.DB, id uuid.UUID, at time.Time) error {
	return r.update(tx, id, map[string]any{"published_at": at.UTC()})
}

// RecordFailure bumps attempt_count and keeps the latest error for the next claim.
func (r *Repository) RecordFailure(tx *gorm.DB, id uuid.UUID, cause error) error {
	return r.update(tx, id, map[string]any{
		"last_error":    errorText(cause),
		"attempt_count": gorm.Expr("attempt_count + 1"),
	})
}

// DeadLetter copies row into outbox_dlq and parks it at parkedAttempts so ClaimPending never returns it again.
func (r *Repository) DeadLetter(tx *gorm.DB, row models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error, parkedAttempts int) error {
	if tx == nil {
		return errNoTx
	}
	entry := models.OutboxDLQ{
		EventID:       row.ID,
		EventType:     row.EventType,
		AggregateType: row.AggregateType,
		AggregateID:   row.AggregateID,
		Payload:       row.Payload,
		ErrorReason:   reason,
		ErrorMessage:  errorText(cause),
		AttemptCount:  row.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}
	if err := tx.Create(&entry).Error; err != nil {
		return err
	}
	return r.update(tx, row.ID, map[string]any{
		"last_error":    entry.ErrorMessage,
		"attempt_count": parkedAttempts,
	})
}

func (r *Repository) update(tx *gorm.DB, id uuid.UUID, fields map[string]any) error {
	if tx == nil {
		return errNoTx
	}
	return tx.Model(&models.OutboxEvent{}).Where("id = ?", id).Updates(fields).Error
}

// ListByAggregate returns every event queued for an aggregate, oldest first.
func (r *Repository) ListByAggregate(ctx context.Context, aggregateID uuid.UUID) ([]models.OutboxEvent, error) {
	var rows []models.OutboxEvent
	err := r.db.WithContext(ctx).Where("aggregate_id = ?", aggregateID).Order("created_at").Find(&rows).Error
	return rows, err
}

// DeadLetters lists the newest parked events.
func (r *Repository) DeadLetters(ctx context.Context, limit int) ([]models.OutboxDLQ, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.OutboxDLQ
	err := r.db.WithContext(ctx).Order("failed_at DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

// DeadLetterFor returns the dlq entry of eventID, or nil when it was never parked.
func (r *Repository) DeadLetterFor(ctx context.Context, eventID uuid.UUID) (*models.OutboxDLQ, error) {
	var row models.OutboxDLQ
	err := r.db.WithContext(ctx).Where("event_id = ?", eventID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// DeletePublishedBefore drops rows published before cutoff, plus parked rows created before
// cutoff that reached minAttemptCount.
func (r *Repository) DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error) {
	db := tx
	if db == nil {
		db = r.db
	}
	res := db.WithContext(ctx).
		Where("published_at IS NOT NULL AND published_at < ?", cutoff).
		Or("published_at IS NULL AND attempt_count >= ? AND created_at < ?", minAttemptCount, cutoff).
		Delete(&models.OutboxEvent{})
	return res.RowsAffected, res.Error
}

func errorText(err error) *string {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if len(msg) > errorTextLimit {
		msg = msg[:errorTextLimit]
		for !utf8.ValidString(msg) {
			msg = msg[:len(msg)-1]
		}
	}
	return &msg
}
