// Package session keeps admin refresh sessions in Redis, keyed by the access
// token's jti. A session exists for as long as its refresh token is valid.
package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/finishpro/admin-backend/pkg/config"
	redisclient "github.com/finishpro/admin-backend/pkg/redis"
)

const refreshTokenBytes = 32

var (
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	errAccessIDRequired    = errors.New("access id is required")
)

type store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	DeleteIfValue(ctx context.Context, key, value string) (bool, error)
	AccessSessionKey(accessID string) string
}

type record struct {
	UserID       uuid.UUID `json:"user_id"`
	RefreshToken string    `json:"refresh_token"`
	IssuedAt     time.Time `json:"issued_at"`
}

// Session is a freshly issued access id and refresh token pair.
type Session struct {
	AccessID     string
	RefreshToken string
	UserID       uuid.UUID
}

// AccessSessionChecker is the read side used by the auth middleware.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

type Manager struct {
	store store
	ttl   time.Duration
	now   func() time.Time
}

// NewManager requires the refresh TTL to outlive the access token, otherwise
// a client could never refresh.
func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	ttl := cfg.RefreshTokenTTL()
	accessTTL := time.Duration(cfg.ExpirationMinutes) * time.Minute
	switch {
	case ttl <= 0:
		return nil, errors.New("refresh token ttl must be positive")
	case ttl <= accessTTL:
		return nil, fmt.Errorf("refresh token ttl (%s) must exceed access token ttl (%s)", ttl, accessTTL)
	}
	return &Manager{store: client, ttl: ttl, now: time.Now}, nil
}

// NewAccessID returns the identifier used as JWT jti and session key.
func NewAccessID() string {
	return uuid.NewString()
}

// Generate stores a new session under accessID and returns its refresh token.
func (m *Manager) Generate(ctx context.Context, accessID string, userID uuid.UUID) (string, error) {
	if strings.TrimSpace(accessID) == "" {
		return "", errAccessIDRequired
	}
	if userID == uuid.Nil {
		return "", errors.New("user id is required")
	}
	return m.issue(ctx, accessID, userID)
}

// Rotate trades a refresh token for a new session. The old session is
// removed with a compare-and-delete, so two concurrent rotations of the same
// token cannot both succeed.
func (m *Manager) Rotate(ctx context.Context, oldAccessID, provided string) (*Session, error) {
	if strings.TrimSpace(oldAccessID) == "" || strings.TrimSpace(provided) == "" {
		return nil, ErrInvalidRefreshToken
	}

	key := m.store.AccessSessionKey(oldAccessID)
	raw, err := m.store.Get(ctx, key)
	if errors.Is(err, redislib.Nil) {
		return nil, ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, err
	}
	var stored record
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, ErrInvalidRefreshToken
	}
	if subtle.ConstantTimeCompare([]byte(stored.RefreshToken), []byte(provided)) != 1 {
		return nil, ErrInvalidRefreshToken
	}

	claimed, err := m.store.DeleteIfValue(ctx, key, raw)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, ErrInvalidRefreshToken
	}

	next := &Session{AccessID: NewAccessID(), UserID: stored.UserID}
	if next.RefreshToken, err = m.issue(ctx, next.AccessID, stored.UserID); err != nil {
		return nil, err
	}
	return next, nil
}

func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return errAccessIDRequired
	}
	return m.store.Del(ctx, m.store.AccessSessionKey(accessID))
}

func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, errAccessIDRequired
	}
	_, err := m.store.Get(ctx, m.store.AccessSessionKey(accessID))
	switch {
	case errors.Is(err, redislib.Nil):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

func (m *Manager) issue(ctx context.Context, accessID string, userID uuid.UUID) (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating refresh token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(buf)

	payload, err := json.Marshal(record{UserID: userID, RefreshToken: token, IssuedAt: m.now().UTC()})
	if err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}
	if err := m.store.Set(ctx, m.store.AccessSessionKey(accessID), string(payload), m.ttl); err != nil {
		return "", err
	}
	return token, nil
}
