// Package bigquery streams analytics rows into the storefront dataset.
package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/gcp"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const lookupTimeout = 10 * time.Second

var (
	errNoProject = errors.New("gcp project id is required")
	errNoDataset = errors.New("bigquery dataset is required")
	errNoTable   = errors.New("bigquery table name is required")
	errNoClient  = errors.New("bigquery client not initialized")
)

// Deduplicated rows carry a stable insert id that BigQuery uses for best-effort dedup
// of streamed inserts.
type Deduplicated interface {
	InsertID() string
}

// Client is bound to one dataset and the tables the workers write to.
type Client struct {
	bq      *bigquery.Client
	dataset *bigquery.Dataset
	tables  []string
}

// NewClient opens the dataset and refuses to start if it or any configured table is missing.
func NewClient(ctx context.Context, gcpCfg config.GCPConfig, cfg config.BigQueryConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcpCfg.ProjectID)
	if project == "" {
		return nil, errNoProject
	}
	datasetID := strings.TrimSpace(cfg.Dataset)
	if datasetID == "" {
		return nil, errNoDataset
	}
	tables := tableNames(cfg)
	if len(tables) == 0 {
		return nil, errNoTable
	}

	bq, err := bigquery.NewClient(ctx, project, gcp.ClientOptions(gcpCfg)...)
	if err != nil {
		return nil, fmt.Errorf("creating bigquery client: %w", err)
	}
	c := &Client{bq: bq, dataset: bq.Dataset(datasetID), tables: tables}
	if err := c.Ping(ctx); err != nil {
		_ = bq.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"dataset": datasetID, "tables": tables}), "bigquery client initialized")
	}
	return c, nil
}

func tableNames(cfg config.BigQueryConfig) []string {
	var out []string
	for _, name := range []string{cfg.OrderEventsTable} {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// Ping looks up the dataset and each table.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.dataset == nil {
		return errNoClient
	}
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	if _, err := c.dataset.Metadata(ctx); err != nil {
		return lookupError("dataset", c.dataset.DatasetID, err)
	}
	for _, name := range c.tables {
		if _, err := c.dataset.Table(name).Metadata(ctx); err != nil {
			return lookupError("table", name, err)
		}
	}
	return nil
}

func lookupError(kind, name string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return fmt.Errorf("%s %q does not exist", kind, name)
	}
	return fmt.Errorf("checking %s %q: %w", kind, name, err)
}

// InsertRows streams rows into table. Rows that implement Deduplicated are sent with their insert id.
func (c *Client) InsertRows(ctx context.Context, table string, rows []any) error {
	if c == nil || c.dataset == nil {
		return errNoClient
	}
	table = strings.TrimSpace(table)
	if table == "" {
		return errNoTable
	}
	if len(rows) == 0 {
		return nil
	}
	return c.dataset.Table(table).Inserter().Put(ctx, withInsertIDs(rows))
}

func withInsertIDs(rows []any) []any {
	out := make([]any, len(rows))
	for i, row := range rows {
		if d, ok := row.(Deduplicated); ok && d.InsertID() != "" {
			out[i] = &bigquery.StructSaver{Struct: row, InsertID: d.InsertID()}
			continue
		}
		out[i] = row
	}
	return out
}

func (c *Client) Close() error {
	if c == nil || c.bq == nil {
		return nil
	}
	return c.bq.Close()
}
