package analytics

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

func delivery(t *testing.T, eventType enums.OutboxEventType, payload any) *outbox.Delivery {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return &outbox.Delivery{
		EventID:       uuid.New(),
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Version:       SchemaVersion,
		OccurredAt:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Data:          data,
	}
}

func TestProjectOrderCreated(t *testing.T) {
	orderID, userID := uuid.New(), uuid.New()
	d := delivery(t, enums.EventOrderCreated, payloads.OrderCreatedEvent{
		OrderID:         orderID,
		UserID:          userID,
		PaymentMethod:   enums.PaymentMethodCash,
		TotalOrderPrice: "217.50",
		Items: []payloads.OrderLine{
			{ProductID: uuid.New(), Quantity: 2, Price: "90.00"},
			{ProductID: uuid.New(), Quantity: 1, Price: "20.00"},
		},
	})

	row, err := Project(d)
	require.NoError(t, err)
	require.Equal(t, d.EventID.String(), row.EventID)
	require.Equal(t, row.EventID, row.InsertID())
	require.Equal(t, "order_created", row.EventType)
	require.True(t, row.OccurredAt.Equal(d.OccurredAt))
	require.Equal(t, orderID.String(), row.OrderID)
	require.Equal(t, userID.String(), row.UserID)
	require.Equal(t, int64(21750), *row.TotalCents)
	require.Equal(t, int64(3), *row.ItemCount)
	require.Equal(t, "cash", *row.PaymentMethod)
	require.False(t, *row.IsPaid)
	require.True(t, row.Items.Valid)
	require.True(t, row.Payload.Valid)
}

func TestProjectOrderPaidUsesPaidAt(t *testing.T) {
	paidAt := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	d := delivery(t, enums.EventOrderPaid, payloads.OrderPaidEvent{
		OrderID:         uuid.New(),
		UserID:          uuid.New(),
		PaymentMethod:   enums.PaymentMethodCard,
		TotalOrderPrice: "104.99",
		PaidAt:          paidAt,
	})

	row, err := Project(d)
	require.NoError(t, err)
	require.True(t, row.OccurredAt.Equal(paidAt))
	require.Equal(t, int64(10499), *row.TotalCents)
	require.True(t, *row.IsPaid)
	require.Nil(t, row.ItemCount)
}

func TestProjectOrderDelivered(t *testing.T) {
	at := time.Date(2026, 3, 5, 8, 0, 0, 0, time.UTC)
	d := delivery(t, enums.EventOrderDelivered, payloads.OrderDeliveredEvent{OrderID: uuid.New(), UserID: uuid.New(), DeliveredAt: at})

	row, err := Project(d)
	require.NoError(t, err)
	require.True(t, row.OccurredAt.Equal(at))
	require.Nil(t, row.TotalCents)
	require.Nil(t, row.PaymentMethod)
}

func TestProjectRejects(t *testing.T) {
	badAmount := delivery(t, enums.EventOrderPaid, payloads.OrderPaidEvent{OrderID: uuid.New(), TotalOrderPrice: "abc"})
	_, err := Project(badAmount)
	require.Error(t, err)

	future := delivery(t, enums.EventOrderPaid, payloads.OrderPaidEvent{OrderID: uuid.New()})
	future.Version = 7
	_, err = Project(future)
	require.True(t, errors.Is(err, ErrUnsupportedEvent))

	unknown := delivery(t, enums.OutboxEventType("order_refunded"), map[string]string{})
	_, err = Project(unknown)
	require.True(t, errors.Is(err, ErrUnsupportedEvent))

	empty := delivery(t, enums.EventOrderDelivered, nil)
	empty.Data = nil
	_, err = Project(empty)
	require.Error(t, err)
}
