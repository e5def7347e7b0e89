package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/finishpro/admin-backend/pkg/config"
)

type widget struct {
	ID   int
	Name string `gorm:"uniqueIndex"`
}

func openSQLite(t *testing.T) *Client {
	t.Helper()
	client, err := New(context.Background(), config.DBConfig{
		Driver:       " SQLite ",
		DSN:          fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
		MaxOpenConns: 1,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.DB().AutoMigrate(&widget{}))
	return client
}

func countWidgets(t *testing.T, client *Client) int64 {
	t.Helper()
	var n int64
	require.NoError(t, client.DB().Model(&widget{}).Count(&n).Error)
	return n
}

func TestWithTx(t *testing.T) {
	client := openSQLite(t)
	ctx := context.Background()

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&widget{Name: "kept"}).Error
	}))

	boom := errors.New("boom")
	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		require.NoError(t, tx.Create(&widget{Name: "dropped"}).Error)
		return boom
	})
	require.ErrorIs(t, err, boom)

	assert.Panics(t, func() {
		_ = client.WithTx(ctx, func(tx *gorm.DB) error {
			require.NoError(t, tx.Create(&widget{Name: "panicked"}).Error)
			panic("boom")
		})
	})

	assert.Equal(t, int64(1), countWidgets(t, client))
	require.NoError(t, client.Ping(ctx))
}

func TestIsUniqueViolation(t *testing.T) {
	client := openSQLite(t)
	require.NoError(t, client.DB().Create(&widget{Name: "dup"}).Error)

	err := client.DB().Create(&widget{Name: "dup"}).Error
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err, ""))

	pgErr := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "invoice_intents_active_order_uidx"})
	assert.True(t, IsUniqueViolation(pgErr, "invoice_intents_active_order_uidx"))
	assert.False(t, IsUniqueViolation(pgErr, "other_constraint"))
	assert.False(t, IsUniqueViolation(errors.New("boom"), ""))
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(context.Background(), config.DBConfig{Driver: "postgres"}, nil)
	require.EqualError(t, err, "database DSN is required")

	_, err = New(context.Background(), config.DBConfig{DSN: "x", Driver: "mysql"}, nil)
	require.EqualError(t, err, `unsupported db driver "mysql"`)
}
