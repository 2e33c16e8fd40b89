package analytics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// RowInserter streams rows into a table of the configured dataset.
type RowInserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

// SinkConfig tunes batching and the insert retry schedule.
type SinkConfig struct {
	Table      string
	BatchSize  int
	Attempts   int
	FirstDelay time.Duration
	MaxDelay   time.Duration
}

// Sink buffers order event rows and streams them to BigQuery.
type Sink struct {
	inserter RowInserter
	cfg      SinkConfig

	mu      sync.Mutex
	pending []OrderEventRow
}

// NewSink fills unset SinkConfig fields with defaults. BatchSize defaults to 1, so every row is written immediately.
func NewSink(inserter RowInserter, cfg SinkConfig) (*Sink, error) {
	if inserter == nil {
		return nil, errors.New("bigquery inserter is required")
	}
	cfg.Table = strings.TrimSpace(cfg.Table)
	if cfg.Table == "" {
		return nil, errors.New("order events table is required")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if cfg.FirstDelay <= 0 {
		cfg.FirstDelay = 250 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 2 * time.Second
	}
	cfg.MaxDelay = max(cfg.MaxDelay, cfg.FirstDelay)
	return &Sink{inserter: inserter, cfg: cfg}, nil
}

// Write queues row and flushes once a full batch is waiting.
func (s *Sink) Write(ctx context.Context, row OrderEventRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, row)
	if len(s.pending) < s.cfg.BatchSize {
		return nil
	}
	return s.flushLocked(ctx)
}

// Flush writes whatever is buffered.
func (s *Sink) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked(ctx)
}

func (s *Sink) flushLocked(ctx context.Context) error {
	if len(s.pending) == 0 {
		return nil
	}
	batch := make([]any, 0, len(s.pending))
	for i := range s.pending {
		batch = append(batch, &s.pending[i])
	}

	delay := s.cfg.FirstDelay
	for attempt := 1; ; attempt++ {
		err := s.inserter.InsertRows(ctx, s.cfg.Table, batch)
		if err == nil {
			s.pending = s.pending[:0]
			return nil
		}
		if attempt >= s.cfg.Attempts || !transient(err) {
			return fmt.Errorf("insert %d rows into %s: %w", len(batch), s.cfg.Table, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = min(delay*2, s.cfg.MaxDelay)
	}
}

// transient reports whether BigQuery may accept the same rows on a later attempt.
// Partial insert failures are transient only when every row failed transiently.
func transient(err error) bool {
	var multi cbigquery.PutMultiError
	if errors.As(err, &multi) {
		if len(multi) == 0 {
			return false
		}
		for _, rowErr := range multi {
			for _, cause := range rowErr.Errors {
				if !transient(cause) {
					return false
				}
			}
		}
		return true
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests, http.StatusRequestTimeout,
			http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Aborted, codes.DeadlineExceeded, codes.Internal, codes.ResourceExhausted, codes.Unavailable:
			return true
		}
	}
	return false
}
