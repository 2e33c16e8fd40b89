package main

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/analytics"
	"github.com/angelmondragon/storefront-backend/pkg/bigquery"
	"github.com/angelmondragon/storefront-backend/pkg/bootstrap"
	"github.com/angelmondragon/storefront-backend/pkg/idempotency"
	"github.com/angelmondragon/storefront-backend/pkg/pubsub"
)

const flushTimeout = 10 * time.Second

func main() {
	proc := bootstrap.Start("analytics-worker")
	defer proc.Close()
	cfg := proc.Config
	ctx := context.Background()

	redisClient := proc.Redis(ctx)

	subscriber, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, proc.Log)
	proc.Must("pubsub", err)
	proc.Defer("pubsub", subscriber)

	warehouse, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, proc.Log)
	proc.Must("bigquery", err)
	proc.Defer("bigquery", warehouse)

	subscription := subscriber.AnalyticsSubscription()
	if subscription == nil {
		proc.Must("analytics subscription", errors.New("STOREFRONT_PUBSUB_ANALYTICS_SUBSCRIPTION is not set"))
	}

	recorded, err := idempotency.New(redisClient, analytics.LedgerScope, cfg.Eventing.OutboxIdempotencyTTL)
	proc.Must("analytics ledger", err)

	sink, err := analytics.NewSink(warehouse, analytics.SinkConfig{
		Table:     cfg.BigQuery.OrderEventsTable,
		BatchSize: cfg.BigQuery.BatchSize,
	})
	proc.Must("order events sink", err)

	consumer, err := analytics.NewConsumer(subscription, sink, recorded, proc.Log)
	proc.Must("analytics consumer", err)

	runCtx, stop := proc.Run(nil)
	defer stop()
	proc.Log.Info(runCtx, "analytics worker started")

	runErr := consumer.Run(runCtx)

	// rows buffered below BatchSize are written before exit
	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(runCtx), flushTimeout)
	defer cancel()
	if err := sink.Flush(flushCtx); err != nil {
		proc.Log.Error(flushCtx, "flush buffered order events", err)
	}
	proc.Finish(runCtx, runErr)
}
