// Package bootstrap holds the start-up and tear-down steps shared by the storefront binaries.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/instance"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

type closer struct {
	name string
	c    io.Closer
}

// Process is one running binary: its config, its logger and what it must close on exit.
type Process struct {
	Kind   string
	Config *config.Config
	Log    *logger.Logger

	closers []closer
	exit    func(code int)
}

// Start reads .env when present, loads config and builds the configured logger.
// Any failure ends the process.
func Start(kind string) *Process {
	p := &Process{Kind: kind, exit: os.Exit, Log: logger.New(logger.Options{ServiceName: kind})}
	if err := godotenv.Load(); err != nil {
		p.Log.Debug(context.Background(), "no .env file, using process environment")
	}

	cfg, err := config.Load()
	p.Must("load config", err)
	cfg.Service.Kind = kind
	p.Config = cfg
	p.Log = logger.New(logger.Options{
		ServiceName: kind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})
	return p
}

// Must logs err and exits after closing everything registered so far.
func (p *Process) Must(step string, err error) {
	if err == nil {
		return
	}
	p.Log.Error(context.Background(), fmt.Sprintf("%s: startup failed at %s", p.Kind, step), err)
	p.Close()
	p.exit(1)
}

// Defer registers c to be closed by Close, newest first.
func (p *Process) Defer(name string, c io.Closer) {
	p.closers = append(p.closers, closer{name: name, c: c})
}

// Close closes every registered resource once, logging the combined failure.
func (p *Process) Close() {
	var errs error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i].c.Close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("close %s: %w", p.closers[i].name, err))
		}
	}
	p.closers = nil
	if errs != nil {
		p.Log.Error(context.Background(), "shutdown left resources open", errs)
	}
}

// Database connects to the configured database and applies dev migrations.
func (p *Process) Database(ctx context.Context) *db.Client {
	client, err := db.New(ctx, p.Config.DB, p.Log)
	p.Must("database", err)
	p.Defer("database", client)
	p.Must("dev migrations", migrate.AutoRun(ctx, p.Config, p.Log, client))
	return client
}

func (p *Process) Redis(ctx context.Context) *redis.Client {
	client, err := redis.New(ctx, p.Config.Redis, p.Log)
	p.Must("redis", err)
	p.Defer("redis", client)
	return client
}

// Run returns a context cancelled by SIGINT or SIGTERM that carries the process log fields.
func (p *Process) Run(extra map[string]any) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	fields := map[string]any{
		"env":         p.Config.App.Env,
		"serviceKind": p.Kind,
		"instance":    instance.GetID(),
	}
	for k, v := range extra {
		fields[k] = v
	}
	return p.Log.WithFields(ctx, fields), stop
}

// Finish logs how the main loop ended. Anything but a clean stop or cancellation exits non-zero.
func (p *Process) Finish(ctx context.Context, err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		p.Log.Info(ctx, p.Kind+" drained")
		return
	}
	p.Log.Error(ctx, p.Kind+" stopped", err)
	p.Close()
	p.exit(1)
}
