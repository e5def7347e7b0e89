package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/finishpro/admin-backend/internal/bootstrap"
	"github.com/finishpro/admin-backend/internal/notifications"
	"github.com/finishpro/admin-backend/pkg/outbox/idempotency"
)

func main() {
	p := bootstrap.Start("worker")
	ctx := context.Background()

	dbClient := p.OpenDB(ctx)
	redisClient := p.OpenRedis(ctx)
	pubsubClient := p.OpenPubSub(ctx)

	ledger, err := idempotency.NewLedger(redisClient, p.Config.Eventing.OutboxIdempotencyTTL)
	p.Must("failed to create idempotency ledger", err)

	consumer, err := notifications.NewConsumer(
		notifications.NewRepository(dbClient.DB()),
		pubsubClient.NotificationSubscription(),
		ledger,
		p.Logger,
	)
	p.Must("failed to create notification consumer", err)

	service, err := NewService(ServiceParams{
		Logger:       p.Logger,
		DB:           dbClient,
		Redis:        redisClient,
		PubSub:       pubsubClient,
		Notification: consumer,
	})
	p.Must("failed to create worker service", err)

	p.Run(prometheus.DefaultGatherer, nil, service.Run)
}
