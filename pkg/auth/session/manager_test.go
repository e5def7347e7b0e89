package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finishpro/admin-backend/pkg/config"
)

type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = ttl
	return nil
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return v, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryStore) DeleteIfValue(_ context.Context, key, value string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[key] != value {
		return false, nil
	}
	delete(m.data, key)
	return true, nil
}

func (m *memoryStore) AccessSessionKey(accessID string) string {
	return "sess:" + accessID
}

func newTestManager(store *memoryStore) *Manager {
	return &Manager{store: store, ttl: time.Hour, now: time.Now}
}

func TestGenerateAndRotate(t *testing.T) {
	store := newMemoryStore()
	manager := newTestManager(store)
	ctx := context.Background()
	userID := uuid.New()

	token, err := manager.Generate(ctx, "access-123", userID)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, store.ttls["sess:access-123"])

	ok, err := manager.HasSession(ctx, "access-123")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = manager.Rotate(ctx, "access-123", "wrong")
	require.ErrorIs(t, err, ErrInvalidRefreshToken)

	next, err := manager.Rotate(ctx, "access-123", token)
	require.NoError(t, err)
	assert.Equal(t, userID, next.UserID)
	assert.NotEqual(t, token, next.RefreshToken)
	assert.NotContains(t, store.data, "sess:access-123")

	ok, err = manager.HasSession(ctx, next.AccessID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = manager.Rotate(ctx, "access-123", token)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRotateOnlyOnceUnderRace(t *testing.T) {
	store := newMemoryStore()
	manager := newTestManager(store)
	ctx := context.Background()
	token, err := manager.Generate(ctx, "access-race", uuid.New())
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := manager.Rotate(ctx, "access-race", token)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	}
	assert.Equal(t, 1, wins)
}

func TestRevoke(t *testing.T) {
	manager := newTestManager(newMemoryStore())
	ctx := context.Background()

	_, err := manager.Generate(ctx, "access-1", uuid.New())
	require.NoError(t, err)
	require.NoError(t, manager.Revoke(ctx, "access-1"))

	ok, err := manager.HasSession(ctx, "access-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestValidation(t *testing.T) {
	manager := newTestManager(newMemoryStore())
	ctx := context.Background()

	_, err := manager.Generate(ctx, " ", uuid.New())
	assert.ErrorIs(t, err, errAccessIDRequired)
	_, err = manager.Generate(ctx, "access", uuid.Nil)
	assert.Error(t, err)
	assert.ErrorIs(t, manager.Revoke(ctx, ""), errAccessIDRequired)
	_, err = manager.Rotate(ctx, "access", "")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestNewManagerChecksTTLs(t *testing.T) {
	_, err := NewManager(nil, config.JWTConfig{})
	require.EqualError(t, err, "redis client is required")
}
