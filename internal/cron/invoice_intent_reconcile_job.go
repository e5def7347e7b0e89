package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/finishpro/admin-backend/internal/approval"
	"github.com/finishpro/admin-backend/pkg/db/models"
	"github.com/finishpro/admin-backend/pkg/logger"
)

const (
	defaultReconcileGrace = 15 * time.Minute
	defaultReconcileLimit = 50
)

// InvoiceIntentReconcileJobParams configures the stale intent sweep.
type InvoiceIntentReconcileJobParams struct {
	Logger      *logger.Logger
	Intents     staleIntentLister
	Compensator intentCompensator
	Grace       time.Duration
	Limit       int
	Now         func() time.Time
}

type staleIntentLister interface {
	ListStale(ctx context.Context, before time.Time, limit int) ([]models.InvoiceIntent, error)
}

type intentCompensator interface {
	Compensate(ctx context.Context, intent *models.InvoiceIntent, source string, cause error) (string, error)
}

// NewInvoiceIntentReconcileJob builds the job that compensates approval
// attempts abandoned before they committed.
func NewInvoiceIntentReconcileJob(params InvoiceIntentReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Intents == nil {
		return nil, fmt.Errorf("intent repository required")
	}
	if params.Compensator == nil {
		return nil, fmt.Errorf("compensator required")
	}
	grace := params.Grace
	if grace <= 0 {
		grace = defaultReconcileGrace
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultReconcileLimit
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &invoiceIntentReconcileJob{
		logg:        params.Logger,
		intents:     params.Intents,
		compensator: params.Compensator,
		grace:       grace,
		limit:       limit,
		now:         now,
	}, nil
}

type invoiceIntentReconcileJob struct {
	logg        *logger.Logger
	intents     staleIntentLister
	compensator intentCompensator
	grace       time.Duration
	limit       int
	now         func() time.Time
}

func (j *invoiceIntentReconcileJob) Name() string { return "invoice-intent-reconcile" }

func (j *invoiceIntentReconcileJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.grace)
	stale, err := j.intents.ListStale(ctx, cutoff, j.limit)
	if err != nil {
		return fmt.Errorf("list stale invoice intents: %w", err)
	}

	var errs error
	outcomes := map[string]int{}
	for i := range stale {
		intent := &stale[i]
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"intent_id": intent.ID.String(),
			"order_id":  intent.OrderID.String(),
			"status":    intent.Status,
		})
		cause := fmt.Errorf("approval abandoned in %s since %s", intent.Status, intent.UpdatedAt.UTC().Format(time.RFC3339))
		result, err := j.compensator.Compensate(logCtx, intent, approval.SourceReconcile, cause)
		outcomes[result]++
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("intent %s: %w", intent.ID, err))
			continue
		}
		j.logg.Info(j.logg.WithField(logCtx, "result", result), "stale invoice intent compensated")
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":     cutoff,
		"candidates": len(stale),
		"outcomes":   outcomes,
	}), "invoice intent reconcile complete")
	return errs
}
