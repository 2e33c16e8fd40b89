package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// AutoRun applies the embedded migrations at boot, but only in dev with STOREFRONT_AUTO_MIGRATE set.
func AutoRun(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate || cfg.DB.IsSQLite() {
		return nil
	}
	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}
	source, err := Source("")
	if err != nil {
		return err
	}
	m, err := New(sqlDB, source, logg)
	if err != nil {
		return err
	}
	return m.Up(logg.WithField(ctx, "trigger", "auto_migrate"))
}
