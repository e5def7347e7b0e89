package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/finishpro/admin-backend/internal/approval"
	"github.com/finishpro/admin-backend/internal/bootstrap"
	"github.com/finishpro/admin-backend/internal/cron"
	"github.com/finishpro/admin-backend/internal/invoices"
	"github.com/finishpro/admin-backend/internal/invoicing"
	"github.com/finishpro/admin-backend/internal/notifications"
	"github.com/finishpro/admin-backend/pkg/metrics"
	"github.com/finishpro/admin-backend/pkg/outbox"
	pkgstripe "github.com/finishpro/admin-backend/pkg/stripe"
)

func main() {
	p := bootstrap.Start("cron-worker")
	ctx := context.Background()
	cfg := p.Config

	dbClient := p.OpenDB(ctx)
	redisClient := p.OpenRedis(ctx)

	stripeClient, err := pkgstripe.NewClient(ctx, cfg.Stripe, p.Logger)
	p.Must("failed to bootstrap stripe client", err)
	gateway, err := invoicing.NewStripeGateway(stripeClient)
	p.Must("failed to create invoicing gateway", err)

	outboxRepo := outbox.NewRepository(dbClient.DB())
	intentsRepo := invoices.NewIntentRepository(dbClient.DB())
	compensator, err := approval.NewCompensator(approval.CompensatorParams{
		Gateway:     gateway,
		Intents:     intentsRepo,
		TxRunner:    dbClient,
		Outbox:      outbox.NewService(outboxRepo, p.Logger),
		Logger:      p.Logger,
		Metrics:     metrics.NewApprovalMetrics(prometheus.DefaultRegisterer),
		VoidTimeout: cfg.Approval.VoidTimeout,
	})
	p.Must("failed to create invoice compensator", err)

	reconcile, err := cron.NewInvoiceIntentReconcileJob(cron.InvoiceIntentReconcileJobParams{
		Logger:      p.Logger,
		Intents:     intentsRepo,
		Compensator: compensator,
		Grace:       cfg.Approval.ReconcileGrace,
		Limit:       cfg.Approval.ReconcileLimit,
	})
	p.Must("failed to create invoice intent reconcile job", err)

	maxAttempts := cfg.Outbox.MaxAttempts
	outboxRetention, err := cron.NewRetentionJob(cron.RetentionJobParams{
		Name:   "outbox-retention",
		Logger: p.Logger,
		DB:     dbClient,
		Purge: func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
			return outboxRepo.DeletePublishedBefore(ctx, tx, cutoff, maxAttempts)
		},
		Retention: cfg.Cron.OutboxRetentionDays,
	})
	p.Must("failed to create outbox retention job", err)

	notificationRetention, err := cron.NewRetentionJob(cron.RetentionJobParams{
		Name:      "notification-cleanup",
		Logger:    p.Logger,
		DB:        dbClient,
		Purge:     notifications.NewRepository(dbClient.DB()).DeleteOlderThan,
		Retention: cfg.Cron.NotificationRetentionDays,
	})
	p.Must("failed to create notification cleanup job", err)

	lock, err := cron.NewRedisLock(redisClient, cfg.Cron.LockKey, cfg.Cron.LockTTL)
	p.Must("failed to create cron lock", err)

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   p.Logger,
		Registry: cron.NewRegistry(reconcile, outboxRetention, notificationRetention),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	p.Must("failed to create cron service", err)

	p.Run(prometheus.DefaultGatherer, nil, service.Run)
}
