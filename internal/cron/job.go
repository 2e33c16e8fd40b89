// Package cron runs the storefront's periodic maintenance sweeps.
package cron

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	defaultCartRetentionDays   = 60
	defaultOutboxRetentionDays = 30
	defaultOutboxMinAttempts   = 5
)

// Job is one named unit of periodic work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type sweepFunc func(ctx context.Context, cutoff time.Time) (int64, error)

// RetentionJob deletes rows older than a fixed number of days.
type RetentionJob struct {
	name  string
	days  int
	sweep sweepFunc
	logg  *logger.Logger
	now   func() time.Time
}

func (j *RetentionJob) Name() string { return j.name }

func (j *RetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().AddDate(0, 0, -j.days)
	deleted, err := j.sweep(ctx, cutoff)
	if err != nil {
		return err
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.days,
		"rows_deleted":   deleted,
	}), "retention sweep finished")
	return nil
}

func newRetentionJob(name string, days, fallback int, logg *logger.Logger, sweep sweepFunc) (*RetentionJob, error) {
	if logg == nil {
		return nil, errors.New("logger required")
	}
	if days <= 0 {
		days = fallback
	}
	return &RetentionJob{name: name, days: days, sweep: sweep, logg: logg, now: time.Now}, nil
}

type staleCarts interface {
	DeleteStaleBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewCartRetentionJob drops carts untouched for days, together with their items.
func NewCartRetentionJob(logg *logger.Logger, carts staleCarts, days int) (*RetentionJob, error) {
	if carts == nil {
		return nil, errors.New("cart repository required")
	}
	return newRetentionJob("cart-retention", days, defaultCartRetentionDays, logg, carts.DeleteStaleBefore)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type publishedEvents interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error)
}

// NewOutboxRetentionJob drops published outbox rows past their retention window.
// Rows that needed at least minAttempts deliveries are also dropped.
func NewOutboxRetentionJob(logg *logger.Logger, db txRunner, events publishedEvents, days, minAttempts int) (*RetentionJob, error) {
	if db == nil || events == nil {
		return nil, errors.New("outbox repository and db required")
	}
	if minAttempts <= 0 {
		minAttempts = defaultOutboxMinAttempts
	}
	sweep := func(ctx context.Context, cutoff time.Time) (n int64, err error) {
		err = db.WithTx(ctx, func(tx *gorm.DB) error {
			n, err = events.DeletePublishedBefore(ctx, tx, cutoff, minAttempts)
			return err
		})
		return n, err
	}
	return newRetentionJob("outbox-retention", days, defaultOutboxRetentionDays, logg, sweep)
}
