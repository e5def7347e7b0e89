package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/finishpro/admin-backend/api/responses"
	pkgerrors "github.com/finishpro/admin-backend/pkg/errors"
	"github.com/finishpro/admin-backend/pkg/logger"
	pkgredis "github.com/finishpro/admin-backend/pkg/redis"
)

const (
	idempotencyHeader = "Idempotency-Key"
	replayHeader      = "Idempotent-Replayed"

	shortReplayTTL   = 24 * time.Hour
	financeReplayTTL = 7 * 24 * time.Hour
	minInFlightTTL   = 2 * time.Minute
	inFlightMargin   = 30 * time.Second
)

// replayRoutes lists the mutating admin routes that honour Idempotency-Key.
// Patterns use path.Match syntax so '*' is one segment.
var replayRoutes = []struct {
	pattern string
	ttl     time.Duration
}{
	{"/api/admin/v1/distributor-orders/*/approve", financeReplayTTL},
	{"/api/admin/v1/distributor-orders/*/reject", shortReplayTTL},
	{"/api/admin/v1/invoice-intents/*/resolve", financeReplayTTL},
	{"/api/admin/v1/notifications/*/read", shortReplayTTL},
	{"/api/admin/v1/notifications/read-all", shortReplayTTL},
}

// replayTTL reports how long responses for a POST to urlPath are kept.
func replayTTL(method, urlPath string) (time.Duration, bool) {
	if method != http.MethodPost {
		return 0, false
	}
	for _, route := range replayRoutes {
		if ok, _ := path.Match(route.pattern, urlPath); ok {
			return route.ttl, true
		}
	}
	return 0, false
}

// storedResponse is what sits under an idempotency key. InFlight marks a key
// whose first request has not finished yet.
type storedResponse struct {
	Fingerprint string `json:"fingerprint"`
	InFlight    bool   `json:"in_flight,omitempty"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// Idempotency replays the first completed response for a repeated
// Idempotency-Key on the routes above. Requests without the header pass
// through. Reusing a key with a different body, or while the first request is
// still running, is a 409. Responses of 5xx are not kept so the caller can
// retry with the same key. The in-flight marker outlives maxRequest so a slow
// first request is never raced by a retry.
func Idempotency(store pkgredis.IdempotencyStore, maxRequest time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	inFlight := inFlightTTL(maxRequest)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			// group middleware runs before chi resolves the route pattern, so match on the raw path
			ttl, ok := replayTTL(r.Method, r.URL.Path)
			clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if !ok || store == nil || clientKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			fingerprint := fingerprintBody(body)
			key := store.IdempotencyKey(UserIDFromContext(ctx)+"|"+r.URL.Path, clientKey)

			reserved, err := reserveKey(ctx, store, key, fingerprint, inFlight)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "idempotency store unavailable"))
				return
			}
			if !reserved {
				replayStored(ctx, store, key, fingerprint, w, logg)
				return
			}

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			var captured bytes.Buffer
			ww.Tee(&captured)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			if status >= http.StatusInternalServerError {
				releaseKey(ctx, store, key, logg)
				return
			}
			saveResponse(ctx, store, key, storedResponse{
				Fingerprint: fingerprint,
				Status:      status,
				ContentType: ww.Header().Get("Content-Type"),
				Body:        captured.Bytes(),
			}, ttl, logg)
		})
	}
}

// reserveKey claims key for this request. False means another request
// already owns it.
func reserveKey(ctx context.Context, store pkgredis.IdempotencyStore, key, fingerprint string, ttl time.Duration) (bool, error) {
	marker, err := json.Marshal(storedResponse{Fingerprint: fingerprint, InFlight: true})
	if err != nil {
		return false, err
	}
	return store.SetNX(ctx, key, string(marker), ttl)
}

func replayStored(ctx context.Context, store pkgredis.IdempotencyStore, key, fingerprint string, w http.ResponseWriter, logg *logger.Logger) {
	raw, err := store.Get(ctx, key)
	if errors.Is(err, pkgredis.ErrNil) {
		// the first request failed and released the key between our SETNX and GET
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "request with this key is being retried, try again"))
		return
	}
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "idempotency store unavailable"))
		return
	}

	var stored storedResponse
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "corrupt idempotency record"))
		return
	}
	switch {
	case stored.Fingerprint != fingerprint:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
	case stored.InFlight:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "request with this key is still in progress"))
	default:
		if stored.ContentType != "" {
			w.Header().Set("Content-Type", stored.ContentType)
		}
		w.Header().Set(replayHeader, "true")
		w.WriteHeader(stored.Status)
		_, _ = w.Write(stored.Body)
	}
}

// saveResponse swaps the in-flight marker for the final response.
func saveResponse(ctx context.Context, store pkgredis.IdempotencyStore, key string, resp storedResponse, ttl time.Duration, logg *logger.Logger) {
	payload, err := json.Marshal(resp)
	if err != nil {
		logIdempotencyFailure(ctx, logg, "encode idempotency record", err)
		return
	}
	if err := store.Del(ctx, key); err != nil {
		logIdempotencyFailure(ctx, logg, "clear idempotency marker", err)
		return
	}
	if _, err := store.SetNX(ctx, key, string(payload), ttl); err != nil {
		logIdempotencyFailure(ctx, logg, "store idempotency record", err)
	}
}

func releaseKey(ctx context.Context, store pkgredis.IdempotencyStore, key string, logg *logger.Logger) {
	if err := store.Del(ctx, key); err != nil {
		logIdempotencyFailure(ctx, logg, "release idempotency key", err)
	}
}

func fingerprintBody(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func logIdempotencyFailure(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if logg != nil {
		logg.Error(ctx, msg, err)
	}
}
