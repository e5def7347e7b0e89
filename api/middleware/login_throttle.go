package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/finishpro/admin-backend/api/responses"
	"github.com/finishpro/admin-backend/pkg/config"
	pkgerrors "github.com/finishpro/admin-backend/pkg/errors"
	"github.com/finishpro/admin-backend/pkg/logger"
)

const (
	loginThrottlePrefix = "fp:login"
	maxLoginBodyBytes   = 16 << 10
)

type windowCounter interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// LoginThrottle caps login attempts per client address and per submitted
// email inside a fixed window. A zero limit disables that dimension.
type LoginThrottle struct {
	Window     time.Duration
	IPLimit    int64
	EmailLimit int64
}

func LoginThrottleFromConfig(cfg config.AuthRateLimitConfig) LoginThrottle {
	return LoginThrottle{
		Window:     cfg.LoginWindow,
		IPLimit:    int64(cfg.LoginIPLimit),
		EmailLimit: int64(cfg.LoginEmailLimit),
	}
}

func (t LoginThrottle) active() bool {
	return t.Window > 0 && (t.IPLimit > 0 || t.EmailLimit > 0)
}

type throttleBucket struct {
	dimension string
	key       string
	limit     int64
}

// buckets reads the login body to find the email and restores it for the
// next handler.
func (t LoginThrottle) buckets(r *http.Request) ([]throttleBucket, error) {
	var out []throttleBucket
	if t.IPLimit > 0 {
		if ip := remoteHost(r.RemoteAddr); ip != "" {
			out = append(out, throttleBucket{dimension: "ip", key: loginThrottlePrefix + ":ip:" + ip, limit: t.IPLimit})
		}
	}
	if t.EmailLimit > 0 && r.Body != nil {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxLoginBodyBytes))
		if err != nil {
			return nil, err
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		var payload struct {
			Email string `json:"email"`
		}
		if json.Unmarshal(body, &payload) == nil {
			if email := strings.ToLower(strings.TrimSpace(payload.Email)); email != "" {
				out = append(out, throttleBucket{dimension: "email", key: loginThrottlePrefix + ":email:" + emailDigest(email), limit: t.EmailLimit})
			}
		}
	}
	return out, nil
}

// ThrottleLogin rejects login attempts over the configured limits with 429 and
// a Retry-After hint. Counter failures fail closed.
func ThrottleLogin(t LoginThrottle, counter windowCounter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !t.active() || counter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			buckets, err := t.buckets(r)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable request body"))
				return
			}
			for _, b := range buckets {
				count, err := counter.IncrWithTTL(ctx, b.key, t.Window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "login throttle unavailable"))
					return
				}
				if count <= b.limit {
					continue
				}
				if logg != nil {
					logg.Warn(logg.WithFields(ctx, map[string]any{
						"dimension": b.dimension,
						"attempts":  count,
						"limit":     b.limit,
					}), "auth.login.throttled")
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(t.Window.Seconds())))
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many login attempts, try again later"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func remoteHost(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return strings.TrimSpace(addr)
}

// emailDigest keeps raw addresses out of Redis keys.
func emailDigest(email string) string {
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:16])
}
