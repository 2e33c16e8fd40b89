package outbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Pub/Sub attribute keys carried on every relayed outbox row.
const (
	AttrEventID       = "event_id"
	AttrEventType     = "event_type"
	AttrAggregateType = "aggregate_type"
	AttrAggregateID   = "aggregate_id"
	AttrCreatedAt     = "created_at"
)

// NewMessage wraps a stored row for publishing. The stored envelope is sent untouched as the body.
func NewMessage(row models.OutboxEvent, envelope PayloadEnvelope) *gcppubsub.Message {
	eventID := envelope.EventID
	if eventID == "" {
		eventID = row.ID.String()
	}
	return &gcppubsub.Message{
		Data: row.Payload,
		Attributes: map[string]string{
			AttrEventID:       eventID,
			AttrEventType:     string(row.EventType),
			AttrAggregateType: string(row.AggregateType),
			AttrAggregateID:   row.AggregateID.String(),
			AttrCreatedAt:     row.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}
}

// Delivery is a relayed event as seen by a subscriber.
type Delivery struct {
	EventID       uuid.UUID
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Version       int
	OccurredAt    time.Time
	Data          json.RawMessage
}

// DecodeMessage reverses NewMessage. Errors mean the message can never be processed.
func DecodeMessage(msg *gcppubsub.Message) (*Delivery, error) {
	if msg == nil {
		return nil, errors.New("nil message")
	}
	var envelope PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		return nil, fmt.Errorf("decode payload envelope: %w", err)
	}

	attr := func(key string) string { return strings.TrimSpace(msg.Attributes[key]) }

	eventType, err := enums.ParseOutboxEventType(attr(AttrEventType))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", AttrEventType, err)
	}
	aggregateType, err := enums.ParseOutboxAggregateType(attr(AttrAggregateType))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", AttrAggregateType, err)
	}
	aggregateID, err := uuid.Parse(attr(AttrAggregateID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", AttrAggregateID, err)
	}

	rawID := strings.TrimSpace(envelope.EventID)
	if rawID == "" {
		rawID = attr(AttrEventID)
	}
	eventID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", AttrEventID, err)
	}

	occurredAt := envelope.OccurredAt
	if occurredAt.IsZero() {
		if parsed, perr := time.Parse(time.RFC3339Nano, attr(AttrCreatedAt)); perr == nil {
			occurredAt = parsed
		}
	}

	return &Delivery{
		EventID:       eventID,
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Version:       envelope.Version,
		OccurredAt:    occurredAt.UTC(),
		Data:          envelope.Data,
	}, nil
}
