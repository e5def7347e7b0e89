// Package bootstrap holds the startup and shutdown sequence shared by the
// FinishPro binaries: env and config loading, logger setup, opening backing
// services and running until SIGINT/SIGTERM.
package bootstrap

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/finishpro/admin-backend/pkg/config"
	"github.com/finishpro/admin-backend/pkg/db"
	"github.com/finishpro/admin-backend/pkg/logger"
	"github.com/finishpro/admin-backend/pkg/metrics"
	"github.com/finishpro/admin-backend/pkg/migrate"
	"github.com/finishpro/admin-backend/pkg/pubsub"
	"github.com/finishpro/admin-backend/pkg/redis"
)

type closer struct {
	name string
	c    io.Closer
}

// Process is one running binary. Anything opened through it is closed in
// reverse order by Close, including on Fatal.
type Process struct {
	Config *config.Config
	Logger *logger.Logger

	closers []closer
	exit    func(int)
}

// Start loads .env (when present) and the FINISHPRO_* config, then builds the
// service logger. A config error ends the process.
func Start(service string) *Process {
	p := &Process{
		Logger: logger.New(logger.Options{ServiceName: service}),
		exit:   os.Exit,
	}
	if err := godotenv.Load(); err != nil {
		p.Logger.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		p.Fatal(context.Background(), "failed to load config", err)
	}
	cfg.Service.Kind = service
	p.Config = cfg
	p.Logger = logger.New(logger.Options{
		ServiceName: service,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
	return p
}

// Fatal logs err, closes what was opened and exits with status 1.
func (p *Process) Fatal(ctx context.Context, msg string, err error) {
	p.Logger.Error(ctx, msg, err)
	p.Close()
	p.exit(1)
}

// Must is Fatal when err is non-nil.
func (p *Process) Must(msg string, err error) {
	if err != nil {
		p.Fatal(context.Background(), msg, err)
	}
}

func (p *Process) track(name string, c io.Closer) {
	p.closers = append(p.closers, closer{name: name, c: c})
}

func (p *Process) Close() {
	for _, entry := range slices.Backward(p.closers) {
		if err := entry.c.Close(); err != nil {
			p.Logger.Error(context.Background(), "error closing "+entry.name, err)
		}
	}
	p.closers = nil
}

// OpenDB connects to Postgres and applies dev auto-migrations when enabled.
func (p *Process) OpenDB(ctx context.Context) *db.Client {
	client, err := db.New(ctx, p.Config.DB, p.Logger)
	p.Must("failed to bootstrap database", err)
	p.track("database", client)
	p.Must("failed to run dev migrations", migrate.MaybeRunDev(ctx, p.Config, p.Logger, client))
	return client
}

func (p *Process) OpenRedis(ctx context.Context) *redis.Client {
	client, err := redis.New(ctx, p.Config.Redis, p.Logger)
	p.Must("failed to bootstrap redis", err)
	p.track("redis", client)
	return client
}

func (p *Process) OpenPubSub(ctx context.Context) *pubsub.Client {
	client, err := pubsub.NewClient(ctx, p.Config.GCP, p.Config.PubSub, p.Logger)
	p.Must("failed to bootstrap pubsub", err)
	p.track("pubsub client", client)
	return client
}

// Run blocks until SIGINT/SIGTERM or until run fails. When gatherer is set
// and FINISHPRO_METRICS_ADDR is configured, metrics are served alongside.
// A failure other than cancellation is fatal.
func (p *Process) Run(gatherer prometheus.Gatherer, fields map[string]any, run func(context.Context) error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	base := map[string]any{"env": p.Config.App.Env, "serviceKind": p.Config.Service.Kind}
	for k, v := range fields {
		base[k] = v
	}
	ctx = p.Logger.WithFields(ctx, base)
	p.Logger.Info(ctx, "starting "+p.Config.Service.Kind)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		defer cancel()
		return run(gctx)
	})
	if gatherer != nil {
		g.Go(func() error { return metrics.Serve(gctx, p.Config.Metrics.Addr, gatherer, p.Logger) })
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		p.Fatal(ctx, p.Config.Service.Kind+" stopped unexpectedly", err)
		return
	}
	p.Logger.Info(ctx, p.Config.Service.Kind+" shutting down gracefully")
	p.Close()
}
