package analytics

import (
	"context"
	"errors"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
)

// LedgerScope is the idempotency scope for recorded analytics events.
const LedgerScope = "consumed:analytics"

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *gcppubsub.Message)) error
}

type rowWriter interface {
	Write(ctx context.Context, row OrderEventRow) error
}

// Dedup remembers which events were already recorded.
type Dedup interface {
	Claim(ctx context.Context, id string) (bool, error)
	Release(ctx context.Context, id string) error
}

// Consumer projects order events from the analytics subscription into BigQuery.
type Consumer struct {
	sub   receiver
	rows  rowWriter
	dedup Dedup
	logg  *logger.Logger
}

// NewConsumer wires a consumer. All arguments are required.
func NewConsumer(sub receiver, rows rowWriter, dedup Dedup, logg *logger.Logger) (*Consumer, error) {
	switch {
	case sub == nil:
		return nil, errors.New("analytics subscription is required")
	case rows == nil:
		return nil, errors.New("row writer is required")
	case dedup == nil:
		return nil, errors.New("idempotency manager is required")
	case logg == nil:
		return nil, errors.New("logger is required")
	}
	return &Consumer{sub: sub, rows: rows, dedup: dedup, logg: logg}, nil
}

// Run blocks receiving messages until ctx ends.
func (c *Consumer) Run(ctx context.Context) error {
	return c.sub.Receive(ctx, func(msgCtx context.Context, msg *gcppubsub.Message) {
		if c.handle(msgCtx, msg) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// handle reports whether msg should be acked. Malformed and unsupported messages are
// acked and dropped. Dependency failures release the dedup mark and nack for redelivery.
func (c *Consumer) handle(ctx context.Context, msg *gcppubsub.Message) bool {
	ctx = c.logg.WithField(ctx, "message_id", msg.ID)

	delivery, err := outbox.DecodeMessage(msg)
	if err != nil {
		c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "dropping malformed analytics message")
		return true
	}
	ctx = c.logg.WithFields(ctx, map[string]any{
		"event_id":     delivery.EventID.String(),
		"event_type":   delivery.EventType,
		"aggregate_id": delivery.AggregateID.String(),
	})

	row, err := Project(delivery)
	if err != nil {
		c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "dropping unprojectable analytics event")
		return true
	}

	seen, err := c.dedup.Claim(ctx, delivery.EventID.String())
	if err != nil {
		c.logg.Error(ctx, "idempotency check failed", err)
		return false
	}
	if seen {
		c.logg.Info(ctx, "analytics event already recorded")
		return true
	}

	if err := c.rows.Write(ctx, row); err != nil {
		c.logg.Error(ctx, "order event insert failed", err)
		if delErr := c.dedup.Release(ctx, delivery.EventID.String()); delErr != nil {
			c.logg.Error(ctx, "release idempotency mark failed", delErr)
		}
		return false
	}
	c.logg.Info(ctx, "analytics event recorded")
	return true
}
