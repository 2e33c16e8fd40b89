// Package analytics turns relayed order events into BigQuery rows.
package analytics

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/pricing"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

// SchemaVersion is the only envelope version the projector understands.
const SchemaVersion = 1

// ErrUnsupportedEvent marks deliveries the projector ignores. They are acked, not retried.
var ErrUnsupportedEvent = errors.New("unsupported analytics event")

// OrderEventRow mirrors the order_events table. Nullable columns are only set by events that carry them.
type OrderEventRow struct {
	EventID       string             `bigquery:"event_id"`
	EventType     string             `bigquery:"event_type"`
	OccurredAt    time.Time          `bigquery:"occurred_at"`
	OrderID       string             `bigquery:"order_id"`
	UserID        string             `bigquery:"user_id"`
	PaymentMethod *string            `bigquery:"payment_method"`
	IsPaid        *bool              `bigquery:"is_paid"`
	TotalCents    *int64             `bigquery:"total_cents"`
	ItemCount     *int64             `bigquery:"item_count"`
	Items         cbigquery.NullJSON `bigquery:"items"`
	Payload       cbigquery.NullJSON `bigquery:"payload"`
}

// InsertID lets streamed inserts of a redelivered event collapse into one row.
func (r OrderEventRow) InsertID() string { return r.EventID }

// Project builds the order_events row for one delivery.
func Project(d *outbox.Delivery) (OrderEventRow, error) {
	if d == nil {
		return OrderEventRow{}, errors.New("nil delivery")
	}
	if v := d.Version; v != 0 && v != SchemaVersion {
		return OrderEventRow{}, fmt.Errorf("%w: %s@v%d", ErrUnsupportedEvent, d.EventType, v)
	}

	row := OrderEventRow{
		EventID:    d.EventID.String(),
		EventType:  string(d.EventType),
		OccurredAt: d.OccurredAt,
		Payload:    nullJSON(d.Data),
	}

	switch d.EventType {
	case enums.EventOrderCreated:
		var ev payloads.OrderCreatedEvent
		if err := decode(d, &ev); err != nil {
			return OrderEventRow{}, err
		}
		var qty int64
		for _, line := range ev.Items {
			qty += int64(line.Quantity)
		}
		items, err := json.Marshal(ev.Items)
		if err != nil {
			return OrderEventRow{}, fmt.Errorf("encode items: %w", err)
		}
		row.OrderID, row.UserID = ev.OrderID.String(), ev.UserID.String()
		row.PaymentMethod = optional(string(ev.PaymentMethod))
		row.IsPaid = &ev.IsPaid
		row.ItemCount = &qty
		row.Items = nullJSON(items)
		if row.TotalCents, err = cents(ev.TotalOrderPrice); err != nil {
			return OrderEventRow{}, err
		}

	case enums.EventOrderPaid:
		var ev payloads.OrderPaidEvent
		if err := decode(d, &ev); err != nil {
			return OrderEventRow{}, err
		}
		paid := true
		row.OrderID, row.UserID = ev.OrderID.String(), ev.UserID.String()
		row.PaymentMethod = optional(string(ev.PaymentMethod))
		row.IsPaid = &paid
		if !ev.PaidAt.IsZero() {
			row.OccurredAt = ev.PaidAt.UTC()
		}
		var err error
		if row.TotalCents, err = cents(ev.TotalOrderPrice); err != nil {
			return OrderEventRow{}, err
		}

	case enums.EventOrderDelivered:
		var ev payloads.OrderDeliveredEvent
		if err := decode(d, &ev); err != nil {
			return OrderEventRow{}, err
		}
		row.OrderID, row.UserID = ev.OrderID.String(), ev.UserID.String()
		if !ev.DeliveredAt.IsZero() {
			row.OccurredAt = ev.DeliveredAt.UTC()
		}

	default:
		return OrderEventRow{}, fmt.Errorf("%w: %s", ErrUnsupportedEvent, d.EventType)
	}
	return row, nil
}

func decode(d *outbox.Delivery, target any) error {
	if len(d.Data) == 0 {
		return fmt.Errorf("%s payload is empty", d.EventType)
	}
	if err := json.Unmarshal(d.Data, target); err != nil {
		return fmt.Errorf("decode %s payload: %w", d.EventType, err)
	}
	return nil
}

func cents(amount string) (*int64, error) {
	if strings.TrimSpace(amount) == "" {
		return nil, nil
	}
	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	v := pricing.ToMinorUnits(parsed)
	return &v, nil
}

func optional(s string) *string {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return &s
}

func nullJSON(raw []byte) cbigquery.NullJSON {
	if len(raw) == 0 {
		return cbigquery.NullJSON{}
	}
	return cbigquery.NullJSON{Valid: true, JSONVal: string(raw)}
}
