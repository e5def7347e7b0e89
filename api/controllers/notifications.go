package controllers

import (
	"net/http"
	"strings"

	"github.com/finishpro/admin-backend/api/responses"
	"github.com/finishpro/admin-backend/api/validators"
	"github.com/finishpro/admin-backend/internal/notifications"
	"github.com/finishpro/admin-backend/pkg/enums"
	pkgerrors "github.com/finishpro/admin-backend/pkg/errors"
	"github.com/finishpro/admin-backend/pkg/logger"
)

// notificationHandler wraps a feed action so every route shares the missing
// service guard and error rendering.
func notificationHandler(svc notifications.Service, logg *logger.Logger, fn func(*http.Request) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}
		data, err := fn(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, data)
	}
}

// ListNotifications serves GET /notifications?limit&cursor&unreadOnly&type.
func ListNotifications(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return notificationHandler(svc, logg, func(r *http.Request) (any, error) {
		page, err := validators.ParsePagination(r)
		if err != nil {
			return nil, err
		}
		unreadOnly, err := validators.ParseQueryBool(r, "unreadOnly")
		if err != nil {
			return nil, err
		}
		params := notifications.ListParams{Limit: page.Limit, Cursor: page.Cursor, UnreadOnly: unreadOnly}
		if raw := strings.TrimSpace(r.URL.Query().Get("type")); raw != "" {
			kind, err := enums.ParseNotificationType(raw)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid notification type").WithDetails(map[string]any{"field": "type"})
			}
			params.Type = &kind
		}
		return svc.List(r.Context(), params)
	})
}

func MarkNotificationRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return notificationHandler(svc, logg, func(r *http.Request) (any, error) {
		id, err := validators.ParseUUIDParam(r, "notificationId", "notification id")
		if err != nil {
			return nil, err
		}
		if err := svc.MarkRead(r.Context(), id); err != nil {
			return nil, err
		}
		return map[string]bool{"read": true}, nil
	})
}

func MarkAllNotificationsRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return notificationHandler(svc, logg, func(r *http.Request) (any, error) {
		updated, err := svc.MarkAllRead(r.Context())
		if err != nil {
			return nil, err
		}
		return map[string]int64{"updated": updated}, nil
	})
}
