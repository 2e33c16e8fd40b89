// Package migrate applies the goose SQL migrations that define the storefront schema.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/pressly/goose/v3"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// DefaultDir is where `migrate -cmd=create` writes new files.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Source returns dir as a filesystem, or the migrations compiled into the binary when dir is empty.
func Source(dir string) (fs.FS, error) {
	if strings.TrimSpace(dir) == "" {
		return fs.Sub(embedded, "migrations")
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("migrations dir: %w", err)
	}
	return os.DirFS(dir), nil
}

// Migrator runs goose against one database.
type Migrator struct {
	provider *goose.Provider
	logg     *logger.Logger
}

func New(db *sql.DB, source fs.FS, logg *logger.Logger) (*Migrator, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, source)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return &Migrator{provider: provider, logg: logg}, nil
}

// Up applies every pending migration.
func (m *Migrator) Up(ctx context.Context) error {
	results, err := m.provider.Up(ctx)
	m.report(ctx, results...)
	if err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	if len(results) == 0 {
		m.logg.Info(ctx, "schema already current")
	}
	return nil
}

// Down rolls back the most recent migration.
func (m *Migrator) Down(ctx context.Context) error {
	result, err := m.provider.Down(ctx)
	if result != nil {
		m.report(ctx, result)
	}
	if err != nil {
		return fmt.Errorf("goose down: %w", err)
	}
	return nil
}

// To moves the schema up or down until target is the newest applied version.
func (m *Migrator) To(ctx context.Context, target string) error {
	version, err := strconv.ParseInt(strings.TrimSpace(target), 10, 64)
	if err != nil {
		return fmt.Errorf("version %q is not a YYYYMMDDHHMMSS number: %w", target, err)
	}
	current, err := m.provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("current schema version: %w", err)
	}

	var results []*goose.MigrationResult
	switch {
	case version > current:
		results, err = m.provider.UpTo(ctx, version)
	case version < current:
		results, err = m.provider.DownTo(ctx, version)
	}
	m.report(ctx, results...)
	if err != nil {
		return fmt.Errorf("migrate %d -> %d: %w", current, version, err)
	}
	return nil
}

// Status logs one line per known migration.
func (m *Migrator) Status(ctx context.Context) error {
	statuses, err := m.provider.Status(ctx)
	if err != nil {
		return fmt.Errorf("goose status: %w", err)
	}
	for _, st := range statuses {
		fields := map[string]any{
			"version": st.Source.Version,
			"file":    st.Source.Path,
			"state":   string(st.State),
		}
		if st.State == goose.StateApplied {
			fields["applied_at"] = st.AppliedAt
		}
		m.logg.Info(m.logg.WithFields(ctx, fields), "migration")
	}
	return nil
}

func (m *Migrator) report(ctx context.Context, results ...*goose.MigrationResult) {
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		entry := m.logg.WithFields(ctx, map[string]any{
			"version":     r.Source.Version,
			"file":        r.Source.Path,
			"direction":   r.Direction,
			"duration_ms": r.Duration.Milliseconds(),
		})
		if r.Error != nil {
			m.logg.Error(entry, "migration failed", r.Error)
			continue
		}
		m.logg.Info(entry, "migration applied")
	}
}
