package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/registry"
)

const (
	sendTimeout = 15 * time.Second
	idleCeiling = 10 * time.Second
	jitterMax   = 250 * time.Millisecond
)

type txRunner interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

// sink delivers one message to a topic and blocks until the broker acknowledges it.
type sink interface {
	Ping(context.Context) error
	Send(ctx context.Context, topic string, msg *gcppubsub.Message) error
}

type rowStore interface {
	ClaimPending(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublished(tx *gorm.DB, id uuid.UUID, at time.Time) error
	RecordFailure(tx *gorm.DB, id uuid.UUID, cause error) error
	DeadLetter(tx *gorm.DB, row models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error, parkedAttempts int) error
}

type resolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type relayCounters interface {
	IncEvent(eventType, result string)
}

// RelayDeps are the collaborators of a Relay.
type RelayDeps struct {
	Logger   *logger.Logger
	DB       txRunner
	Sink     sink
	Rows     rowStore
	Registry resolver
	Metrics  relayCounters
}

// Relay moves committed outbox rows onto Pub/Sub. Each row ends up published,
// scheduled for retry, or parked in the dead letter table.
type Relay struct {
	deps        RelayDeps
	batch       int
	maxAttempts int
	poll        time.Duration
}

// NewRelay validates deps and applies the outbox settings.
func NewRelay(cfg config.OutboxConfig, deps RelayDeps) (*Relay, error) {
	switch {
	case deps.Logger == nil:
		return nil, errors.New("logger is required")
	case deps.DB == nil:
		return nil, errors.New("database client is required")
	case deps.Sink == nil:
		return nil, errors.New("message sink is required")
	case deps.Rows == nil:
		return nil, errors.New("outbox repository is required")
	case deps.Registry == nil:
		return nil, errors.New("event registry is required")
	}

	r := &Relay{
		deps:        deps,
		batch:       cfg.BatchSize,
		maxAttempts: cfg.MaxAttempts,
		poll:        time.Duration(cfg.PollIntervalMS) * time.Millisecond,
	}
	if r.batch <= 0 {
		r.batch = 50
	}
	if r.maxAttempts <= 0 {
		r.maxAttempts = 10
	}
	if r.poll <= 0 {
		r.poll = 500 * time.Millisecond
	}
	return r, nil
}

// Run drains the outbox until ctx ends. Empty polls and failing batches back off up to idleCeiling.
func (r *Relay) Run(ctx context.Context) error {
	for name, ping := range map[string]func(context.Context) error{
		"database": r.deps.DB.Ping,
		"pubsub":   r.deps.Sink.Ping,
	} {
		if err := ping(ctx); err != nil {
			r.deps.Logger.Error(ctx, name+" ping failed", err)
			return fmt.Errorf("%s ping failed: %w", name, err)
		}
	}

	wait := r.poll
	for {
		n, err := r.drainOnce(ctx)
		switch {
		case err != nil:
			r.deps.Logger.Error(ctx, "outbox relay batch failed", err)
			wait = min(wait*2, idleCeiling)
		case n > 0:
			wait = r.poll
			continue
		default:
			wait = r.poll
		}

		timer := time.NewTimer(wait + rand.N(jitterMax))
		select {
		case <-ctx.Done():
			timer.Stop()
			r.deps.Logger.Info(ctx, "outbox relay stopping")
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// drainOnce claims one batch inside a transaction and settles every row in it.
func (r *Relay) drainOnce(ctx context.Context) (int, error) {
	var claimed int
	err := r.deps.DB.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := r.deps.Rows.ClaimPending(tx, r.batch, r.maxAttempts)
		if err != nil {
			return fmt.Errorf("claim outbox rows: %w", err)
		}
		claimed = len(rows)
		for _, row := range rows {
			if err := r.settle(ctx, tx, row, r.deliver(ctx, row)); err != nil {
				return err
			}
		}
		return nil
	})
	return claimed, err
}

type outcome struct {
	topic  string
	err    error
	reason enums.OutboxDLQErrorReason
}

func (r *Relay) deliver(ctx context.Context, row models.OutboxEvent) outcome {
	resolved, err := r.deps.Registry.Resolve(row)
	if err != nil {
		return outcome{err: err, reason: enums.OutboxDLQReasonNonRetryable}
	}

	topic := resolved.Descriptor.Topic
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	err = r.deps.Sink.Send(sendCtx, topic, outbox.NewMessage(row, resolved.Envelope))

	var permanent registry.NonRetryableError
	switch {
	case err == nil:
		return outcome{topic: topic}
	case errors.As(err, &permanent):
		return outcome{topic: topic, err: err, reason: enums.OutboxDLQReasonNonRetryable}
	case row.AttemptCount+1 >= r.maxAttempts:
		return outcome{topic: topic, err: fmt.Errorf("max publish attempts reached: %w", err), reason: enums.OutboxDLQReasonMaxAttempts}
	default:
		return outcome{topic: topic, err: err}
	}
}

func (r *Relay) settle(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, out outcome) error {
	logCtx := r.deps.Logger.WithFields(ctx, map[string]any{
		"outbox_id":     row.ID.String(),
		"event_type":    row.EventType,
		"aggregate_id":  row.AggregateID.String(),
		"attempt_count": row.AttemptCount,
		"topic":         out.topic,
	})

	switch {
	case out.err == nil:
		if err := r.deps.Rows.MarkPublished(tx, row.ID, time.Now()); err != nil {
			return fmt.Errorf("mark published %s: %w", row.ID, err)
		}
		r.count(row, metrics.OutboxPublished)
		r.deps.Logger.Info(logCtx, "outbox event published")

	case out.reason == "":
		r.deps.Logger.Warn(r.deps.Logger.WithField(logCtx, "error", out.err.Error()), "outbox publish failed; will retry")
		if err := r.deps.Rows.RecordFailure(tx, row.ID, out.err); err != nil {
			return fmt.Errorf("mark failed %s: %w", row.ID, err)
		}
		r.count(row, metrics.OutboxRetried)

	default:
		r.deps.Logger.Warn(r.deps.Logger.WithFields(logCtx, map[string]any{
			"error":        out.err.Error(),
			"error_reason": out.reason,
		}), "outbox event dead-lettered")
		if err := r.deps.Rows.DeadLetter(tx, row, out.reason, out.err, r.maxAttempts); err != nil {
			return fmt.Errorf("dead-letter %s: %w", row.ID, err)
		}
		r.count(row, metrics.OutboxDeadLetter)
	}
	return nil
}

func (r *Relay) count(row models.OutboxEvent, result string) {
	if r.deps.Metrics != nil {
		r.deps.Metrics.IncEvent(string(row.EventType), result)
	}
}
