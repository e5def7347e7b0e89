package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/finishpro/admin-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type consumer interface {
	Run(ctx context.Context) error
}

type ServiceParams struct {
	Logger       *logger.Logger
	DB           pinger
	Redis        pinger
	PubSub       pinger
	Notification consumer
}

// Service runs the Pub/Sub consumers once every dependency answers a ping.
type Service struct {
	logg         *logger.Logger
	deps         []dependency
	notification consumer
}

type dependency struct {
	name string
	p    pinger
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.Redis == nil:
		return nil, errors.New("redis client is required")
	case params.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case params.Notification == nil:
		return nil, errors.New("notification consumer is required")
	}
	return &Service{
		logg: params.Logger,
		deps: []dependency{
			{name: "redis", p: params.Redis},
			{name: "database", p: params.DB},
			{name: "pubsub", p: params.PubSub},
		},
		notification: params.Notification,
	}, nil
}

// Run blocks until ctx is canceled or the consumer stops on its own.
func (s *Service) Run(ctx context.Context) error {
	for _, dep := range s.deps {
		if err := dep.p.Ping(ctx); err != nil {
			return fmt.Errorf("%s ping failed: %w", dep.name, err)
		}
	}
	s.logg.Info(ctx, "worker dependencies ready")

	err := s.notification.Run(ctx)
	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case err == nil:
		return errors.New("notification consumer exited")
	}
	return fmt.Errorf("notification consumer: %w", err)
}
