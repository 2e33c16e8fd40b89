package bigquery

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

type dedupRow struct{ id string }

func (r *dedupRow) InsertID() string { return r.id }

func TestTableNames(t *testing.T) {
	got := tableNames(config.BigQueryConfig{Dataset: "storefront", OrderEventsTable: " order_events "})
	if len(got) != 1 || got[0] != "order_events" {
		t.Fatalf("unexpected tables %v", got)
	}
	if got := tableNames(config.BigQueryConfig{}); len(got) != 0 {
		t.Fatalf("expected no tables, got %v", got)
	}
}

func TestWithInsertIDs(t *testing.T) {
	plain := map[string]int{"a": 1}
	rows := withInsertIDs([]any{&dedupRow{id: "evt-1"}, &dedupRow{}, plain})

	saver, ok := rows[0].(*bigquery.StructSaver)
	if !ok || saver.InsertID != "evt-1" {
		t.Fatalf("expected struct saver with insert id, got %#v", rows[0])
	}
	if _, ok := rows[1].(*bigquery.StructSaver); ok {
		t.Fatal("rows without an id should pass through")
	}
	if _, ok := rows[2].(map[string]int); !ok {
		t.Fatalf("unexpected row %#v", rows[2])
	}
}

func TestLookupError(t *testing.T) {
	missing := lookupError("table", "order_events", &googleapi.Error{Code: http.StatusNotFound})
	if missing.Error() != `table "order_events" does not exist` {
		t.Fatalf("unexpected message %q", missing)
	}
	cause := &googleapi.Error{Code: http.StatusForbidden}
	if err := lookupError("dataset", "storefront", cause); !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
}

func TestNilClient(t *testing.T) {
	var c *Client
	if err := c.InsertRows(context.Background(), "order_events", []any{1}); !errors.Is(err, errNoClient) {
		t.Fatalf("expected errNoClient, got %v", err)
	}
	if err := c.Ping(context.Background()); !errors.Is(err, errNoClient) {
		t.Fatalf("expected errNoClient, got %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close on nil client: %v", err)
	}
}
