package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryLockStore struct {
	values map[string]string
	err    error
}

func (m *memoryLockStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memoryLockStore) DeleteIfValue(_ context.Context, key, value string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if m.values[key] != value {
		return false, nil
	}
	delete(m.values, key)
	return true, nil
}

func TestRedisLockIsExclusiveAndOwnerScoped(t *testing.T) {
	ctx := context.Background()
	store := &memoryLockStore{values: map[string]string{}}
	first, err := NewRedisLock(store, "finishpro:cron:lock", 0)
	require.NoError(t, err)
	second, err := NewRedisLock(store, "finishpro:cron:lock", time.Minute)
	require.NoError(t, err)

	won, err := first.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, won)

	won, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, won, "held lock must not be shared")

	require.NoError(t, second.Release(ctx))
	assert.Contains(t, store.values, "finishpro:cron:lock")

	require.NoError(t, first.Release(ctx))
	won, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, won)
}

func TestRedisLockLeavesForeignLease(t *testing.T) {
	ctx := context.Background()
	store := &memoryLockStore{values: map[string]string{}}
	lock, err := NewRedisLock(store, "k", time.Minute)
	require.NoError(t, err)

	won, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, won)

	// lease expired and another worker took it
	store.values["k"] = "someone-else"
	require.NoError(t, lock.Release(ctx))
	assert.Equal(t, "someone-else", store.values["k"])
}

func TestRedisLockErrors(t *testing.T) {
	_, err := NewRedisLock(nil, "k", time.Minute)
	assert.Error(t, err)
	_, err = NewRedisLock(&memoryLockStore{}, "", time.Minute)
	assert.Error(t, err)

	lock, err := NewRedisLock(&memoryLockStore{values: map[string]string{}, err: errors.New("conn reset")}, "k", time.Minute)
	require.NoError(t, err)
	_, err = lock.Acquire(context.Background())
	assert.ErrorContains(t, err, "conn reset")
}
