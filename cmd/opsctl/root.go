package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/finishpro/admin-backend/pkg/config"
	"github.com/finishpro/admin-backend/pkg/db"
	"github.com/finishpro/admin-backend/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "opsctl",
	Short: "Operator tooling for the FinishPro admin backend",
	Long: `opsctl runs the manual operations behind the admin console: database
migrations, invoice intent compensation, outbox dead letters and console
admin provisioning.

Configuration is read from FINISHPRO_* environment variables (and .env when
present), the same way the api and worker binaries load it.`,
	SilenceUsage: true,
}

// runtime holds the lazily bootstrapped dependencies shared by subcommands.
type runtime struct {
	cfg  *config.Config
	logg *logger.Logger
	db   *db.Client
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "opsctl: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, *logger.Logger, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Service.Kind = "opsctl"

	logg := logger.New(logger.Options{
		ServiceName: "opsctl",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
		Output:      os.Stderr,
	})
	return cfg, logg, nil
}

// bootstrap loads config and opens the database. Callers must invoke close.
func bootstrap(ctx context.Context) (*runtime, func(), error) {
	cfg, logg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return nil, nil, fmt.Errorf("bootstrap database: %w", err)
	}
	closeFn := func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}
	return &runtime{cfg: cfg, logg: logg, db: dbClient}, closeFn, nil
}
