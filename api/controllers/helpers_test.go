package controllers

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/finishpro/admin-backend/api/middleware"
	"github.com/finishpro/admin-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func addRouteParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.RouteContext(req.Context())
	if routeCtx == nil {
		routeCtx = chi.NewRouteContext()
	}
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func withActor(req *http.Request, userID string) *http.Request {
	ctx := middleware.WithUserID(req.Context(), userID)
	ctx = middleware.WithRole(ctx, "admin")
	return req.WithContext(ctx)
}
