package middleware

import "context"

type contextKey int

const (
	ctxUserID contextKey = iota
	ctxRole
	ctxAccessID
)

func stringFrom(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

func UserIDFromContext(ctx context.Context) string {
	return stringFrom(ctx, ctxUserID)
}

func RoleFromContext(ctx context.Context) string {
	return stringFrom(ctx, ctxRole)
}

// AccessIDFromContext returns the session id (JWT jti) of the caller.
func AccessIDFromContext(ctx context.Context) string {
	return stringFrom(ctx, ctxAccessID)
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxUserID, userID)
}

func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, ctxRole, role)
}
