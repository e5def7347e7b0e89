package cron

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/finishpro/admin-backend/pkg/logger"
	"github.com/finishpro/admin-backend/pkg/metrics"
)

type fakeLock struct {
	held     bool
	acquired bool
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.held || f.acquired {
		return false, nil
	}
	f.acquired = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error { f.acquired = false; return nil }

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func newTestCronService(t *testing.T, lock Lock, jobs ...Job) (*Service, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	service, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test", Output: &bytes.Buffer{}}),
		Registry: NewRegistry(jobs...),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(reg),
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	return service, reg
}

func TestServiceRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	reconcile := &testJob{name: "invoice-intent-reconcile", err: errors.New("stripe unavailable")}
	retention := &testJob{name: "outbox-retention"}
	service, _ := newTestCronService(t, &fakeLock{}, reconcile, retention)

	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if reconcile.runs != 1 || retention.runs != 1 {
		t.Fatalf("expected each job to run once, got %d and %d", reconcile.runs, retention.runs)
	}
}

func TestServiceRunCycleSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "invoice-intent-reconcile"}
	service, reg := newTestCronService(t, &fakeLock{held: true}, job)

	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("job should not run without the lock")
	}
	count, err := testutil.GatherAndCount(reg, "finishpro_cron_job_runs_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one skipped series, got %d", count)
	}
}

func TestNewServiceRequiresLock(t *testing.T) {
	_, err := NewService(ServiceParams{Logger: logger.New(logger.Options{ServiceName: "cron-test", Output: &bytes.Buffer{}})})
	if err == nil {
		t.Fatal("expected error")
	}
}
