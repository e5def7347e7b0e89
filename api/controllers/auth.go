package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/finishpro/admin-backend/api/middleware"
	"github.com/finishpro/admin-backend/api/responses"
	"github.com/finishpro/admin-backend/api/validators"
	"github.com/finishpro/admin-backend/internal/auth"
	"github.com/finishpro/admin-backend/pkg/config"
	pkgerrors "github.com/finishpro/admin-backend/pkg/errors"
	"github.com/finishpro/admin-backend/pkg/logger"
)

// AuthLogin signs an admin in and sets the session cookie.
func AuthLogin(svc auth.Service, cookie config.SessionConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		setSessionCookie(w, cookie, result.AccessToken, result.ExpiresAt)
		responses.WriteSuccess(w, result)
	}
}

// AuthRefresh rotates the refresh session for the presented access token.
func AuthRefresh(svc auth.Service, cookie config.SessionConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		accessToken := middleware.AccessToken(r, cookie.CookieName)
		if accessToken == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "access token required"))
			return
		}

		var body auth.RefreshRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		tokens, err := svc.Refresh(r.Context(), accessToken, strings.TrimSpace(body.RefreshToken))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		setSessionCookie(w, cookie, tokens.AccessToken, tokens.ExpiresAt)
		responses.WriteSuccess(w, tokens)
	}
}

// AuthLogout revokes the session and clears the cookie.
func AuthLogout(svc auth.Service, cookie config.SessionConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		accessToken := middleware.AccessToken(r, cookie.CookieName)
		if accessToken == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "access token required"))
			return
		}

		if err := svc.Logout(r.Context(), accessToken); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		clearSessionCookie(w, cookie)
		responses.WriteSuccess(w, map[string]bool{"logged_out": true})
	}
}

func setSessionCookie(w http.ResponseWriter, cfg config.SessionConfig, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.CookieName,
		Value:    token,
		Path:     "/",
		Domain:   cfg.CookieDomain,
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter, cfg config.SessionConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.CookieName,
		Value:    "",
		Path:     "/",
		Domain:   cfg.CookieDomain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
