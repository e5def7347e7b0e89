package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/finishpro/admin-backend/internal/auth"
	"github.com/finishpro/admin-backend/pkg/config"
	pkgerrors "github.com/finishpro/admin-backend/pkg/errors"
)

type stubAuthService struct {
	loginFn   func(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error)
	refreshFn func(ctx context.Context, accessToken, refreshToken string) (*auth.TokenPair, error)
	logoutFn  func(ctx context.Context, accessToken string) error
}

func (s *stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	return s.loginFn(ctx, req)
}

func (s *stubAuthService) Refresh(ctx context.Context, accessToken, refreshToken string) (*auth.TokenPair, error) {
	return s.refreshFn(ctx, accessToken, refreshToken)
}

func (s *stubAuthService) Logout(ctx context.Context, accessToken string) error {
	return s.logoutFn(ctx, accessToken)
}

var testSessionConfig = config.SessionConfig{CookieName: "fp_admin_session", CookieSecure: true}

func sessionCookie(resp *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range resp.Result().Cookies() {
		if c.Name == testSessionConfig.CookieName {
			return c
		}
	}
	return nil
}

func TestAuthLoginSetsSessionCookie(t *testing.T) {
	expires := time.Now().Add(15 * time.Minute)
	svc := &stubAuthService{loginFn: func(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
		if req.Email != "ops@finishpro.test" || req.Password != "correct horse battery" {
			t.Fatalf("unexpected credentials %+v", req)
		}
		return &auth.LoginResponse{TokenPair: auth.TokenPair{
			AccessToken:  "access-1",
			RefreshToken: "refresh-1",
			ExpiresAt:    expires,
		}}, nil
	}}

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/auth/login",
		strings.NewReader(`{"email":"ops@finishpro.test","password":"correct horse battery"}`))
	resp := httptest.NewRecorder()
	AuthLogin(svc, testSessionConfig, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	cookie := sessionCookie(resp)
	if cookie == nil {
		t.Fatal("session cookie not set")
	}
	if cookie.Value != "access-1" || !cookie.HttpOnly || !cookie.Secure {
		t.Fatalf("unexpected cookie %+v", cookie)
	}
}

func TestAuthLoginInvalidCredentials(t *testing.T) {
	svc := &stubAuthService{loginFn: func(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}}
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/auth/login",
		strings.NewReader(`{"email":"ops@finishpro.test","password":"wrong"}`))
	resp := httptest.NewRecorder()
	AuthLogin(svc, testSessionConfig, testLogger())(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
	if sessionCookie(resp) != nil {
		t.Fatal("cookie must not be set on failure")
	}
}

func TestAuthLoginValidatesBody(t *testing.T) {
	svc := &stubAuthService{loginFn: func(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
		t.Fatal("service should not be called")
		return nil, nil
	}}
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/auth/login", strings.NewReader(`{"email":"not-an-email"}`))
	resp := httptest.NewRecorder()
	AuthLogin(svc, testSessionConfig, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAuthRefreshUsesCookieToken(t *testing.T) {
	svc := &stubAuthService{refreshFn: func(ctx context.Context, accessToken, refreshToken string) (*auth.TokenPair, error) {
		if accessToken != "old-access" || refreshToken != "refresh-1" {
			t.Fatalf("unexpected tokens %q %q", accessToken, refreshToken)
		}
		return &auth.TokenPair{AccessToken: "new-access", RefreshToken: "refresh-2", ExpiresAt: time.Now().Add(time.Minute)}, nil
	}}
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/auth/refresh", strings.NewReader(`{"refresh_token":"refresh-1"}`))
	req.AddCookie(&http.Cookie{Name: testSessionConfig.CookieName, Value: "old-access"})
	resp := httptest.NewRecorder()
	AuthRefresh(svc, testSessionConfig, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if cookie := sessionCookie(resp); cookie == nil || cookie.Value != "new-access" {
		t.Fatalf("expected rotated cookie, got %+v", cookie)
	}
}

func TestAuthRefreshRequiresAccessToken(t *testing.T) {
	svc := &stubAuthService{}
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/auth/refresh", strings.NewReader(`{"refresh_token":"refresh-1"}`))
	resp := httptest.NewRecorder()
	AuthRefresh(svc, testSessionConfig, testLogger())(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthLogoutClearsCookie(t *testing.T) {
	var revoked string
	svc := &stubAuthService{logoutFn: func(ctx context.Context, accessToken string) error {
		revoked = accessToken
		return nil
	}}
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer bearer-token")
	resp := httptest.NewRecorder()
	AuthLogout(svc, testSessionConfig, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if revoked != "bearer-token" {
		t.Fatalf("unexpected token revoked %q", revoked)
	}
	cookie := sessionCookie(resp)
	if cookie == nil || cookie.MaxAge >= 0 {
		t.Fatalf("expected expired cookie, got %+v", cookie)
	}
}
