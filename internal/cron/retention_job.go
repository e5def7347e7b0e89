package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/finishpro/admin-backend/pkg/logger"
)

const defaultRetentionDays = 30

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// PurgeFunc deletes rows older than cutoff and reports how many went.
type PurgeFunc func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)

// RetentionJobParams configures a time-based purge of one table.
type RetentionJobParams struct {
	Name      string
	Logger    *logger.Logger
	DB        txRunner
	Purge     PurgeFunc
	Retention int
}

// NewRetentionJob builds a job that deletes rows past the retention window.
func NewRetentionJob(params RetentionJobParams) (Job, error) {
	if params.Name == "" {
		return nil, fmt.Errorf("job name required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Purge == nil {
		return nil, fmt.Errorf("purge func required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultRetentionDays
	}
	return &retentionJob{
		name:      params.Name,
		logg:      params.Logger,
		db:        params.DB,
		purge:     params.Purge,
		retention: retention,
		now:       time.Now,
	}, nil
}

// OutboxRetentionPurge drops published events, and events that exhausted
// maxAttempts (already dead-lettered by the publisher).
func OutboxRetentionPurge(repo interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error)
}, maxAttempts int) PurgeFunc {
	return func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
		return repo.DeletePublishedBefore(ctx, tx, cutoff, maxAttempts)
	}
}

type retentionJob struct {
	name      string
	logg      *logger.Logger
	db        txRunner
	purge     PurgeFunc
	retention int
	now       func() time.Time
}

func (j *retentionJob) Name() string { return j.name }

func (j *retentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().AddDate(0, 0, -j.retention)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.purge(ctx, tx, cutoff)
		deleted = rows
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"rows_deleted":   deleted,
	}), "retention purge complete")
	return nil
}
