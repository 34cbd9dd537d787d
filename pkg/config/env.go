package config

const (
	EnvPrefix = "QD"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv   = "QD_APP_ENV"
	EnvPort     = "QD_APP_PORT"
	EnvLogLevel = "QD_LOG_LEVEL"

	EnvDBDSN    = "QD_DB_DSN"
	EnvDBDriver = "QD_DB_DRIVER"
	EnvDBHost   = "QD_DB_HOST"
	EnvDBUser   = "QD_DB_USER"
	EnvDBName   = "QD_DB_NAME"

	EnvRedisURL = "QD_REDIS_URL"

	EnvJWTSecret               = "QD_JWT_SECRET"
	EnvJWTIssuer               = "QD_JWT_ISSUER"
	EnvJWTExpMins              = "QD_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes  = "QD_REFRESH_TOKEN_TTL_MINUTES"
	EnvPaymentsPollInterval    = "QD_PAYMENTS_POLL_INTERVAL"
	EnvPaymentsMaxPollAttempts = "QD_PAYMENTS_MAX_POLL_ATTEMPTS"
	EnvLifecycleTickInterval   = "QD_LIFECYCLE_TICK_INTERVAL"
	EnvLifecycleLockTTL        = "QD_LIFECYCLE_LOCK_TTL"
	EnvLifecycleJobTimeout     = "QD_LIFECYCLE_JOB_TIMEOUT"
	EnvGCPProjectID            = "QD_GCP_PROJECT_ID"
	EnvPubSubDomainTopic       = "QD_PUBSUB_DOMAIN_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
