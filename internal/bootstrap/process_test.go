package bootstrap

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finishpro/admin-backend/pkg/config"
	"github.com/finishpro/admin-backend/pkg/logger"
)

type recordingCloser struct {
	name  string
	order *[]string
	err   error
}

func (r recordingCloser) Close() error {
	*r.order = append(*r.order, r.name)
	return r.err
}

func testProcess(t *testing.T) (*Process, *[]string, *int, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	code := -1
	order := []string{}
	p := &Process{
		Config: &config.Config{App: config.AppConfig{Env: "test"}, Service: config.ServiceConfig{Kind: "worker"}},
		Logger: logger.New(logger.Options{ServiceName: "worker", Output: &logs}),
		exit:   func(c int) { code = c },
	}
	p.track("database", recordingCloser{name: "database", order: &order})
	p.track("redis", recordingCloser{name: "redis", order: &order, err: errors.New("already closed")})
	return p, &order, &code, &logs
}

func TestRunClosesInReverseOrder(t *testing.T) {
	p, order, code, logs := testProcess(t)

	p.Run(nil, nil, func(context.Context) error { return nil })

	assert.Equal(t, -1, *code)
	assert.Equal(t, []string{"redis", "database"}, *order)
	assert.Contains(t, logs.String(), "error closing redis")
	assert.Contains(t, logs.String(), "worker shutting down gracefully")
}

func TestRunFailureIsFatal(t *testing.T) {
	p, order, code, logs := testProcess(t)

	p.Run(prometheus.NewRegistry(), map[string]any{"topic": "fp-domain-events"}, func(context.Context) error {
		return errors.New("subscription deleted")
	})

	assert.Equal(t, 1, *code)
	assert.Len(t, *order, 2)
	assert.Contains(t, logs.String(), "worker stopped unexpectedly")
	assert.Contains(t, logs.String(), "fp-domain-events")
}

func TestRunTreatsCancellationAsShutdown(t *testing.T) {
	p, _, code, _ := testProcess(t)

	p.Run(nil, nil, func(context.Context) error { return context.Canceled })

	assert.Equal(t, -1, *code)
}

func TestMust(t *testing.T) {
	p, order, code, _ := testProcess(t)

	p.Must("ok", nil)
	require.Equal(t, -1, *code)

	p.Must("failed to bootstrap redis", errors.New("dial tcp: refused"))
	assert.Equal(t, 1, *code)
	assert.Len(t, *order, 2)
	assert.Empty(t, p.closers)
}
