package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/finishpro/admin-backend/internal/bootstrap"
	"github.com/finishpro/admin-backend/pkg/metrics"
	"github.com/finishpro/admin-backend/pkg/outbox"
	"github.com/finishpro/admin-backend/pkg/outbox/registry"
)

func main() {
	p := bootstrap.Start("outbox-publisher")
	ctx := context.Background()

	dbClient := p.OpenDB(ctx)
	pubsubClient := p.OpenPubSub(ctx)

	eventRegistry, err := registry.NewEventRegistry(p.Config.PubSub)
	p.Must("failed to build event registry", err)

	service, err := NewService(ServiceParams{
		Config:        p.Config.Outbox,
		Logger:        p.Logger,
		DB:            dbClient,
		PubSub:        pubsubClient,
		Repository:    outbox.NewRepository(dbClient.DB()),
		Registry:      eventRegistry,
		DLQRepository: outbox.NewDLQRepository(dbClient.DB()),
		Metrics:       metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
	})
	p.Must("failed to create outbox publisher", err)

	p.Run(prometheus.DefaultGatherer, map[string]any{"topics": eventRegistry.Topics()}, service.Run)
}
