package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

func envelopeOf(t *testing.T, data any) json.RawMessage {
	t.Helper()
	raw, ok := data.([]byte)
	if !ok {
		var err error
		raw, err = json.Marshal(data)
		require.NoError(t, err)
	}
	body, err := json.Marshal(outbox.PayloadEnvelope{Version: 1, EventID: uuid.NewString(), OccurredAt: time.Now().UTC(), Data: raw})
	require.NoError(t, err)
	return body
}

func orderRow(t *testing.T, eventType enums.OutboxEventType, data any) models.OutboxEvent {
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       envelopeOf(t, data),
	}
}

func newRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	r, err := NewEventRegistry(config.PubSubConfig{OrdersTopic: "order-events"})
	require.NoError(t, err)
	return r
}

func TestResolveDecodesTypedPayloads(t *testing.T) {
	r := newRegistry(t)
	orderID := uuid.New()

	created, err := r.Resolve(orderRow(t, enums.EventOrderCreated, payloads.OrderCreatedEvent{
		OrderID:         orderID,
		PaymentMethod:   enums.PaymentMethodCash,
		TotalOrderPrice: "42.00",
	}))
	require.NoError(t, err)
	require.Equal(t, "order-events", created.Descriptor.Topic)
	require.NotEmpty(t, created.Envelope.EventID)
	ev, ok := created.Payload.(*payloads.OrderCreatedEvent)
	require.True(t, ok, "got %T", created.Payload)
	require.Equal(t, orderID, ev.OrderID)
	require.Equal(t, "42.00", ev.TotalOrderPrice)

	paid, err := r.Resolve(orderRow(t, enums.EventOrderPaid, payloads.OrderPaidEvent{OrderID: orderID, PaidAt: time.Now().UTC()}))
	require.NoError(t, err)
	require.IsType(t, &payloads.OrderPaidEvent{}, paid.Payload)

	delivered, err := r.Resolve(orderRow(t, enums.EventOrderDelivered, payloads.OrderDeliveredEvent{OrderID: orderID}))
	require.NoError(t, err)
	require.Equal(t, enums.EventOrderDelivered, delivered.Descriptor.EventType)
}

func TestResolveRejectsBadRows(t *testing.T) {
	r := newRegistry(t)

	unknown := orderRow(t, enums.OutboxEventType("order_refunded"), map[string]string{"reason": "x"})
	wrongAggregate := orderRow(t, enums.EventOrderCreated, payloads.OrderCreatedEvent{})
	wrongAggregate.AggregateType = enums.OutboxAggregateType("cart")
	noAggregate := orderRow(t, enums.EventOrderCreated, payloads.OrderCreatedEvent{})
	noAggregate.AggregateID = uuid.Nil
	nullData := orderRow(t, enums.EventOrderCreated, []byte("null"))
	badData := orderRow(t, enums.EventOrderPaid, []byte(`{"order_id":42}`))
	badEnvelope := orderRow(t, enums.EventOrderPaid, payloads.OrderPaidEvent{})
	badEnvelope.Payload = json.RawMessage(`not json`)

	for name, row := range map[string]models.OutboxEvent{
		"unknown type":    unknown,
		"wrong aggregate": wrongAggregate,
		"no aggregate":    noAggregate,
		"null data":       nullData,
		"bad data":        badData,
		"bad envelope":    badEnvelope,
	} {
		_, err := r.Resolve(row)
		var nonRetry NonRetryableError
		require.True(t, errors.As(err, &nonRetry), "%s: got %v", name, err)
	}
}

func TestNewEventRegistryRequiresTopic(t *testing.T) {
	_, err := NewEventRegistry(config.PubSubConfig{})
	require.Error(t, err)
}

func TestNonRetryableErrorUnwraps(t *testing.T) {
	cause := errors.New("schema drift")
	err := NewNonRetryableError(cause)
	require.ErrorIs(t, err, cause)
	require.Equal(t, "schema drift", err.Error())
	require.NotEmpty(t, NonRetryableError{}.Error())
}
