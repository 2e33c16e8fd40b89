package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront-backend/pkg/bootstrap"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/registry"
	"github.com/angelmondragon/storefront-backend/pkg/pubsub"
)

func main() {
	proc := bootstrap.Start("outbox-publisher")
	defer proc.Close()
	cfg := proc.Config

	dbClient := proc.Database(context.Background())

	publisher, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, proc.Log)
	proc.Must("pubsub", err)
	proc.Defer("pubsub", publisher)

	routes, err := registry.NewEventRegistry(cfg.PubSub)
	proc.Must("event registry", err)

	relay, err := NewRelay(cfg.Outbox, RelayDeps{
		Logger:   proc.Log,
		DB:       dbClient,
		Sink:     publisher,
		Rows:     outbox.NewRepository(dbClient.DB()),
		Registry: routes,
		Metrics:  metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
	})
	proc.Must("relay", err)

	ctx, stop := proc.Run(nil)
	defer stop()
	proc.Log.Info(ctx, "outbox publisher started")

	proc.Finish(ctx, relay.Run(ctx))
}
