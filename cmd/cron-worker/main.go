package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/cron"
	"github.com/angelmondragon/storefront-backend/pkg/bootstrap"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
)

func main() {
	proc := bootstrap.Start("cron-worker")
	defer proc.Close()
	cfg := proc.Config

	dbClient := proc.Database(context.Background())
	redisClient := proc.Redis(context.Background())

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockName(cfg.App.Env)), 0)
	proc.Must("cron lock", err)

	carts, err := cron.NewCartRetentionJob(proc.Log, cart.NewRepository(dbClient.DB()), cfg.Cron.CartRetentionDays)
	proc.Must("cart retention job", err)
	events, err := cron.NewOutboxRetentionJob(proc.Log, dbClient, outbox.NewRepository(dbClient.DB()), cfg.Cron.OutboxRetentionDays, cfg.Outbox.MaxAttempts)
	proc.Must("outbox retention job", err)

	scheduler, err := cron.NewScheduler(cron.SchedulerParams{
		Logger:   proc.Log,
		Lock:     lock,
		Recorder: metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
		Jobs:     []cron.Job{carts, events},
	})
	proc.Must("scheduler", err)

	ctx, stop := proc.Run(nil)
	defer stop()
	proc.Log.Info(ctx, "cron worker started")

	proc.Finish(ctx, scheduler.Run(ctx))
}

// lockName keeps environments sharing one Redis from blocking each other.
func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return "cron-worker:" + env
}
