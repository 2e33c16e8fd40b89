// Package registry routes outbox rows to Pub/Sub topics and checks their payloads before they leave.
package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

// EventDescriptor is the route for one event type.
type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
	decode        func(json.RawMessage) (any, error)
}

// ResolvedEvent is an outbox row that passed validation, with its payload decoded.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// NonRetryableError marks rows that no amount of retrying will fix.
type NonRetryableError struct {
	Err error
}

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable outbox error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func permanent(format string, args ...any) error {
	return NewNonRetryableError(fmt.Errorf(format, args...))
}

// EventRegistry knows every event type the relay may publish.
type EventRegistry struct {
	routes map[enums.OutboxEventType]EventDescriptor
}

// orderRoute builds a descriptor whose payload decodes into T.
func orderRoute[T any](eventType enums.OutboxEventType, topic string) EventDescriptor {
	return EventDescriptor{
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		Topic:         topic,
		decode: func(raw json.RawMessage) (any, error) {
			v := new(T)
			if err := json.Unmarshal(raw, v); err != nil {
				return nil, err
			}
			return v, nil
		},
	}
}

// NewEventRegistry routes all order events to cfg.OrdersTopic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.OrdersTopic == "" {
		return nil, errors.New("orders topic is required")
	}
	r := &EventRegistry{routes: map[enums.OutboxEventType]EventDescriptor{}}
	for _, d := range []EventDescriptor{
		orderRoute[payloads.OrderCreatedEvent](enums.EventOrderCreated, cfg.OrdersTopic),
		orderRoute[payloads.OrderPaidEvent](enums.EventOrderPaid, cfg.OrdersTopic),
		orderRoute[payloads.OrderDeliveredEvent](enums.EventOrderDelivered, cfg.OrdersTopic),
	} {
		r.routes[d.EventType] = d
	}
	return r, nil
}

// Resolve checks the row against its route and decodes the payload. Every failure is non-retryable.
func (r *EventRegistry) Resolve(row models.OutboxEvent) (*ResolvedEvent, error) {
	route, ok := r.routes[row.EventType]
	switch {
	case !ok:
		return nil, permanent("no route for event type %q", row.EventType)
	case route.AggregateType != row.AggregateType:
		return nil, permanent("%s belongs to aggregate %s, row has %s", row.EventType, route.AggregateType, row.AggregateType)
	case row.AggregateID == uuid.Nil:
		return nil, permanent("%s row %s has no aggregate id", row.EventType, row.ID)
	}

	var env outbox.PayloadEnvelope
	if err := json.Unmarshal(row.Payload, &env); err != nil {
		return nil, permanent("decode envelope: %w", err)
	}
	if data := bytes.TrimSpace(env.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, permanent("%s envelope carries no data", row.EventType)
	}
	payload, err := route.decode(env.Data)
	if err != nil {
		return nil, permanent("decode %s payload: %w", row.EventType, err)
	}
	return &ResolvedEvent{Descriptor: route, Envelope: env, Payload: payload}, nil
}
