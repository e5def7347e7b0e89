package config

const (
	EnvPrefix = "FINISHPRO"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv                 = "FINISHPRO_APP_ENV"
	EnvPort                   = "FINISHPRO_APP_PORT"
	EnvDBDSN                  = "FINISHPRO_DB_DSN"
	EnvDBHost                 = "FINISHPRO_DB_HOST"
	EnvDBUser                 = "FINISHPRO_DB_USER"
	EnvDBName                 = "FINISHPRO_DB_NAME"
	EnvRedisURL               = "FINISHPRO_REDIS_URL"
	EnvJWTSecret              = "FINISHPRO_JWT_SECRET"
	EnvJWTIssuer              = "FINISHPRO_JWT_ISSUER"
	EnvJWTExpMins             = "FINISHPRO_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "FINISHPRO_REFRESH_TOKEN_TTL_MINUTES"
	EnvGCPProjectID           = "FINISHPRO_GCP_PROJECT_ID"
	EnvPubSubDomainTopic      = "FINISHPRO_PUBSUB_DOMAIN_TOPIC"
	EnvPubSubNotificationSub  = "FINISHPRO_PUBSUB_NOTIFICATION_SUBSCRIPTION"
	EnvApprovalTimeout        = "FINISHPRO_APPROVAL_TIMEOUT"
	EnvApprovalReconcileGrace = "FINISHPRO_APPROVAL_RECONCILE_GRACE"
	EnvCORSAllowedOrigins     = "FINISHPRO_CORS_ALLOWED_ORIGINS"
)

// legacyDBEnvVars lists the discrete connection vars accepted when no DSN is set.
var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
