package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/finishpro/admin-backend/api/controllers"
	webhookcontrollers "github.com/finishpro/admin-backend/api/controllers/webhooks"
	"github.com/finishpro/admin-backend/api/middleware"
	"github.com/finishpro/admin-backend/internal/approval"
	"github.com/finishpro/admin-backend/internal/auth"
	"github.com/finishpro/admin-backend/internal/distributororders"
	"github.com/finishpro/admin-backend/internal/invoices"
	"github.com/finishpro/admin-backend/internal/notifications"
	"github.com/finishpro/admin-backend/pkg/auth/session"
	"github.com/finishpro/admin-backend/pkg/config"
	"github.com/finishpro/admin-backend/pkg/db"
	"github.com/finishpro/admin-backend/pkg/db/models"
	"github.com/finishpro/admin-backend/pkg/logger"
	"github.com/finishpro/admin-backend/pkg/metrics"
	"github.com/finishpro/admin-backend/pkg/redis"
)

// redisStore is the subset of the Redis client the HTTP layer depends on.
type redisStore interface {
	redis.IdempotencyStore
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Ping(ctx context.Context) error
}

type signingSecretProvider interface {
	SigningSecret() string
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient redisStore,
	sessionManager session.AccessSessionChecker,
	authService auth.Service,
	ordersService distributororders.Service,
	approvalService approval.Service,
	invoicesService invoices.Service,
	notificationsService notifications.Service,
	stripeClient signingSecretProvider,
	stripeWebhookService webhookcontrollers.StripeWebhookService,
	gatherer prometheus.Gatherer,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		chimw.RealIP,
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	loginThrottle := middleware.LoginThrottleFromConfig(cfg.AuthRateLimit)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg.App.Env))
		r.Get("/ready", controllers.HealthReady(cfg.App.Env, map[string]controllers.Pinger{
			"database": dbP,
			"redis":    redisClient,
		}, logg))
	})

	if gatherer != nil {
		r.Handle("/metrics", metrics.Handler(gatherer))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(stripeWebhookService, stripeClient, logg))
	})

	r.Route("/api/admin/v1/auth", func(r chi.Router) {
		r.With(middleware.ThrottleLogin(loginThrottle, redisClient, logg)).Post("/login", controllers.AuthLogin(authService, cfg.Session, logg))
		r.Post("/refresh", controllers.AuthRefresh(authService, cfg.Session, logg))
		r.Post("/logout", controllers.AuthLogout(authService, cfg.Session, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, cfg.Session.CookieName, sessionManager, logg))
		r.Use(middleware.RequireRole(logg, models.SystemRoleAdmin))
		r.Use(middleware.Idempotency(redisClient, cfg.Approval.MaxDuration(), logg))

		r.Route("/distributor-orders", func(r chi.Router) {
			r.Get("/", controllers.ListDistributorOrders(ordersService, logg))
			r.Get("/{orderId}", controllers.GetDistributorOrder(ordersService, logg))
			r.Post("/{orderId}/approve", controllers.ApproveDistributorOrder(approvalService, logg))
			r.Post("/{orderId}/reject", controllers.RejectDistributorOrder(ordersService, logg))
		})

		r.Route("/invoices", func(r chi.Router) {
			r.Get("/", controllers.ListInvoices(invoicesService, logg))
			r.Get("/{invoiceId}", controllers.GetInvoice(invoicesService, logg))
		})

		r.Route("/invoice-intents", func(r chi.Router) {
			r.Get("/", controllers.ListInvoiceIntents(invoicesService, logg))
			r.Post("/{intentId}/resolve", controllers.ResolveInvoiceIntent(invoicesService, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
		})
	})

	return r
}
