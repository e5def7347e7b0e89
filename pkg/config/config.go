package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Session       SessionConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Eventing      EventingConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Stripe        StripeConfig
	Approval      ApprovalConfig
	Outbox        OutboxConfig
	Cron          CronConfig
	CORS          CORSConfig
	Metrics       MetricsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FINISHPRO_APP_ENV" required:"true"`
	Port         string `envconfig:"FINISHPRO_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FINISHPRO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FINISHPRO_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"FINISHPRO_LOG_FORMAT" default:"json"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"FINISHPRO_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"FINISHPRO_DB_DSN"`
	Driver string `envconfig:"FINISHPRO_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FINISHPRO_DB_HOST"`
	LegacyPort     int    `envconfig:"FINISHPRO_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FINISHPRO_DB_USER"`
	LegacyPassword string `envconfig:"FINISHPRO_DB_PASSWORD"`
	LegacyName     string `envconfig:"FINISHPRO_DB_NAME"`
	LegacySSLMode  string `envconfig:"FINISHPRO_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FINISHPRO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FINISHPRO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FINISHPRO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FINISHPRO_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FINISHPRO_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FINISHPRO_REDIS_ADDR"`
	Password     string        `envconfig:"FINISHPRO_REDIS_PASSWORD"`
	DB           int           `envconfig:"FINISHPRO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FINISHPRO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FINISHPRO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FINISHPRO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FINISHPRO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FINISHPRO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"FINISHPRO_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"FINISHPRO_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"FINISHPRO_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"FINISHPRO_REFRESH_TOKEN_TTL_MINUTES" default:"10080"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

// SessionConfig controls the admin console session cookie.
type SessionConfig struct {
	CookieName   string `envconfig:"FINISHPRO_SESSION_COOKIE_NAME" default:"fp_admin_session"`
	CookieDomain string `envconfig:"FINISHPRO_SESSION_COOKIE_DOMAIN"`
	CookieSecure bool   `envconfig:"FINISHPRO_SESSION_COOKIE_SECURE" default:"true"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"FINISHPRO_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"FINISHPRO_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"FINISHPRO_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"FINISHPRO_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"FINISHPRO_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"FINISHPRO_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"FINISHPRO_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"FINISHPRO_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"FINISHPRO_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"FINISHPRO_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"FINISHPRO_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON string `envconfig:"FINISHPRO_GCP_CREDENTIALS_JSON"`
	CredentialsFile string `envconfig:"FINISHPRO_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic              string `envconfig:"FINISHPRO_PUBSUB_DOMAIN_TOPIC" default:"fp-domain-events"`
	NotificationSubscription string `envconfig:"FINISHPRO_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"FINISHPRO_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"FINISHPRO_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"FINISHPRO_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type StripeConfig struct {
	APIKey              string `envconfig:"FINISHPRO_STRIPE_API_KEY"`
	Secret              string `envconfig:"FINISHPRO_STRIPE_SECRET"`
	Env                 string `envconfig:"FINISHPRO_STRIPE_ENV" default:"test"`
	InvoiceDaysUntilDue int64  `envconfig:"FINISHPRO_STRIPE_INVOICE_DAYS_UNTIL_DUE" default:"30"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// ApprovalConfig bounds the approval flow and its reconciliation sweep.
type ApprovalConfig struct {
	Timeout        time.Duration `envconfig:"FINISHPRO_APPROVAL_TIMEOUT" default:"60s"`
	VoidTimeout    time.Duration `envconfig:"FINISHPRO_APPROVAL_VOID_TIMEOUT" default:"20s"`
	ReconcileGrace time.Duration `envconfig:"FINISHPRO_APPROVAL_RECONCILE_GRACE" default:"15m"`
	ReconcileLimit int           `envconfig:"FINISHPRO_APPROVAL_RECONCILE_LIMIT" default:"50"`
}

// MaxDuration is the longest an approval request can run: the approval
// deadline followed by a detached void.
func (c ApprovalConfig) MaxDuration() time.Duration {
	return c.Timeout + c.VoidTimeout
}

// CronConfig controls the cron worker cadence and its distributed lock.
type CronConfig struct {
	Interval                  time.Duration `envconfig:"FINISHPRO_CRON_INTERVAL" default:"5m"`
	LockKey                   string        `envconfig:"FINISHPRO_CRON_LOCK_KEY" default:"finishpro:cron:lock"`
	LockTTL                   time.Duration `envconfig:"FINISHPRO_CRON_LOCK_TTL" default:"10m"`
	OutboxRetentionDays       int           `envconfig:"FINISHPRO_CRON_OUTBOX_RETENTION_DAYS" default:"30"`
	NotificationRetentionDays int           `envconfig:"FINISHPRO_CRON_NOTIFICATION_RETENTION_DAYS" default:"30"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"FINISHPRO_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}

// MetricsConfig controls the Prometheus listener of the background workers.
// The api serves /metrics on its own router instead.
type MetricsConfig struct {
	Addr string `envconfig:"FINISHPRO_METRICS_ADDR"`
}
