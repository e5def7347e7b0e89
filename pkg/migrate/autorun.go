package migrate

import (
	"context"
	"fmt"

	"github.com/finishpro/admin-backend/pkg/config"
	"github.com/finishpro/admin-backend/pkg/db"
	"github.com/finishpro/admin-backend/pkg/logger"
)

// MaybeRunDev applies the embedded migrations on startup when running in dev
// with FINISHPRO_AUTO_MIGRATE set. Other environments migrate through opsctl.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.SQL()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}
	migrator, err := New(sqlDB, nil)
	if err != nil {
		return err
	}

	ctx = logg.WithField(ctx, "env", cfg.App.Env)
	results, err := migrator.Up(ctx)
	if err != nil {
		return err
	}
	logg.Info(logg.WithField(ctx, "applied", len(results)), "dev auto-migrate finished")
	return nil
}
