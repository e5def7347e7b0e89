package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/finishpro/admin-backend/api/routes"
	"github.com/finishpro/admin-backend/internal/approval"
	"github.com/finishpro/admin-backend/internal/auth"
	"github.com/finishpro/admin-backend/internal/bootstrap"
	"github.com/finishpro/admin-backend/internal/companies"
	"github.com/finishpro/admin-backend/internal/distributororders"
	"github.com/finishpro/admin-backend/internal/invoices"
	"github.com/finishpro/admin-backend/internal/invoicing"
	"github.com/finishpro/admin-backend/internal/notifications"
	"github.com/finishpro/admin-backend/internal/users"
	stripewebhook "github.com/finishpro/admin-backend/internal/webhooks/stripe"
	"github.com/finishpro/admin-backend/pkg/auth/session"
	"github.com/finishpro/admin-backend/pkg/metrics"
	"github.com/finishpro/admin-backend/pkg/outbox"
	"github.com/finishpro/admin-backend/pkg/outbox/idempotency"
	pkgstripe "github.com/finishpro/admin-backend/pkg/stripe"
)

const shutdownTimeout = 20 * time.Second

func main() {
	p := bootstrap.Start("api")
	ctx := context.Background()
	cfg, logg := p.Config, p.Logger

	dbClient := p.OpenDB(ctx)
	redisClient := p.OpenRedis(ctx)

	stripeClient, err := pkgstripe.NewClient(ctx, cfg.Stripe, logg)
	p.Must("failed to bootstrap stripe client", err)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	p.Must("failed to create session manager", err)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       users.NewRepository(dbClient.DB()),
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	p.Must("failed to create auth service", err)

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	ordersRepo := distributororders.NewRepository(dbClient.DB())
	ordersService, err := distributororders.NewService(ordersRepo, dbClient, outboxService)
	p.Must("failed to create distributor orders service", err)

	invoicesRepo := invoices.NewRepository(dbClient.DB())
	intentsRepo := invoices.NewIntentRepository(dbClient.DB())
	invoicesService, err := invoices.NewService(invoicesRepo, intentsRepo)
	p.Must("failed to create invoices service", err)

	gateway, err := invoicing.NewStripeGateway(stripeClient)
	p.Must("failed to create invoicing gateway", err)

	approvalService, err := approval.NewService(approval.ServiceParams{
		Orders:    ordersRepo,
		Companies: companies.NewRepository(dbClient.DB()),
		Invoices:  invoicesRepo,
		Intents:   intentsRepo,
		Gateway:   gateway,
		TxRunner:  dbClient,
		Outbox:    outboxService,
		Logger:    logg,
		Metrics:   metrics.NewApprovalMetrics(registry),
		Config:    cfg.Approval,
	})
	p.Must("failed to create approval service", err)

	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	p.Must("failed to create notifications service", err)

	webhookLedger, err := idempotency.NewLedger(redisClient, stripewebhook.DedupeTTL)
	p.Must("failed to create webhook idempotency ledger", err)

	stripeWebhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Invoices:          invoicesRepo,
		Intents:           intentsRepo,
		TransactionRunner: dbClient,
		Outbox:            outboxService,
		Deliveries:        webhookLedger,
		Logger:            logg,
	})
	p.Must("failed to create stripe webhook service", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	instance := os.Getenv("DYNO")
	if instance == "" {
		instance = "local"
	}

	server := &http.Server{
		Addr: ":" + port,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			sessionManager,
			authService,
			ordersService,
			approvalService,
			invoicesService,
			notificationsService,
			stripeClient,
			stripeWebhookService,
			registry,
		),
	}

	// The router already serves /metrics from its own registry.
	p.Run(nil, map[string]any{
		"addr":       server.Addr,
		"instance":   instance,
		"stripe_env": stripeClient.Environment(),
	}, func(ctx context.Context) error {
		return serve(ctx, server)
	})
}

func serve(ctx context.Context, server *http.Server) error {
	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
