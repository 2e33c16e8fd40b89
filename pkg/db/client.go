// Package db owns the storefront's GORM connection pool.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const slowQuery = 500 * time.Millisecond

// Pinger is satisfied by every dependency the readiness probe checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Client struct {
	conn   *gorm.DB
	driver string
}

// New opens the pool described by cfg. Slow statements are reported through logg.
func New(ctx context.Context, cfg config.DBConfig, logg *logger.Logger) (*Client, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database DSN is required")
	}
	dialector, driver, err := dialect(cfg)
	if err != nil {
		return nil, err
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 queryLogger(logg),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	pool, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("%s pool: %w", driver, err)
	}
	tune(pool, cfg, driver)

	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "driver", driver), "database connection established")
	}
	return &Client{conn: conn, driver: driver}, nil
}

// Wrap adopts a connection opened elsewhere, such as a test database.
func Wrap(conn *gorm.DB) *Client {
	return &Client{conn: conn, driver: conn.Dialector.Name()}
}

func dialect(cfg config.DBConfig) (gorm.Dialector, string, error) {
	if cfg.IsSQLite() {
		return sqlite.Open(cfg.DSN), config.DBDriverSQLite, nil
	}
	if cfg.Driver != "" && cfg.Driver != config.DBDriverPostgres {
		return nil, "", fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	return postgres.New(postgres.Config{DSN: cfg.DSN, PreferSimpleProtocol: true}), config.DBDriverPostgres, nil
}

func tune(pool *sql.DB, cfg config.DBConfig, driver string) {
	switch {
	case driver == config.DBDriverSQLite:
		// one writer at a time
		pool.SetMaxOpenConns(1)
	case cfg.MaxOpenConns > 0:
		pool.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 && driver != config.DBDriverSQLite {
		pool.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		pool.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		pool.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}

// queryLogger keeps GORM quiet except for slow statements and driver errors.
func queryLogger(logg *logger.Logger) gormlogger.Interface {
	if logg == nil {
		return gormlogger.Discard
	}
	return gormlogger.New(slowQueryWriter{logg: logg}, gormlogger.Config{
		SlowThreshold:             slowQuery,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

type slowQueryWriter struct {
	logg *logger.Logger
}

func (w slowQueryWriter) Printf(format string, args ...any) {
	w.logg.Warn(context.Background(), fmt.Sprintf(format, args...))
}

func (c *Client) DB() *gorm.DB { return c.conn }

// Driver names the dialect behind the pool.
func (c *Client) Driver() string { return c.driver }

func (c *Client) Ping(ctx context.Context) error {
	pool, err := c.conn.DB()
	if err != nil {
		return err
	}
	return pool.PingContext(ctx)
}

func (c *Client) Close() error {
	pool, err := c.conn.DB()
	if err != nil {
		return err
	}
	return pool.Close()
}

// WithTx runs fn in a transaction. A returned error or a panic rolls it back.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return c.conn.WithContext(ctx).Transaction(fn)
}
