package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finishpro/admin-backend/pkg/auth"
	"github.com/finishpro/admin-backend/pkg/auth/session"
	"github.com/finishpro/admin-backend/pkg/config"
)

const testCookie = "fp_admin_session"

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "finishpro", ExpirationMinutes: 60}

type sessionsStub struct {
	live bool
	err  error
}

func (s sessionsStub) HasSession(context.Context, string) (bool, error) {
	return s.live, s.err
}

func mintToken(t *testing.T, userID uuid.UUID, role string) string {
	t.Helper()
	token, err := auth.MintAccessToken(testJWT, time.Now(), auth.AccessTokenPayload{
		UserID: userID,
		Role:   role,
		JTI:    session.NewAccessID(),
	})
	require.NoError(t, err)
	return token
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthStatuses(t *testing.T) {
	valid := mintToken(t, uuid.New(), "admin")
	cases := []struct {
		name     string
		prepare  func(*http.Request)
		sessions sessionsStub
		want     int
	}{
		{"missing token", func(*http.Request) {}, sessionsStub{live: true}, http.StatusUnauthorized},
		{"garbage token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer invalid") }, sessionsStub{live: true}, http.StatusUnauthorized},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "bearer "+valid) }, sessionsStub{live: true}, http.StatusOK},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: testCookie, Value: valid}) }, sessionsStub{live: true}, http.StatusOK},
		{"revoked session", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+valid) }, sessionsStub{}, http.StatusUnauthorized},
		{"session store down", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+valid) }, sessionsStub{err: errors.New("redis down")}, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tc.prepare(req)
			rec := httptest.NewRecorder()

			Auth(testJWT, testCookie, tc.sessions, nil)(okHandler()).ServeHTTP(rec, req)

			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestAuthSeedsContext(t *testing.T) {
	userID := uuid.New()
	var user, role, access string
	handler := Auth(testJWT, testCookie, sessionsStub{live: true}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user = UserIDFromContext(r.Context())
		role = RoleFromContext(r.Context())
		access = AccessIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, userID, "admin"))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, userID.String(), user)
	assert.Equal(t, "admin", role)
	assert.NotEmpty(t, access)
}

func TestAccessTokenPrefersHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: testCookie, Value: "from-cookie"})
	assert.Equal(t, "from-cookie", AccessToken(req, testCookie))
	assert.Empty(t, AccessToken(req, ""))

	req.Header.Set("Authorization", "Bearer from-header")
	assert.Equal(t, "from-header", AccessToken(req, testCookie))
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(nil, "admin")(okHandler())

	for role, want := range map[string]int{"viewer": http.StatusForbidden, "": http.StatusForbidden, "admin": http.StatusOK} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithRole(req.Context(), role))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, "role %q", role)
	}
}
