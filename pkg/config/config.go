package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	OTP          OTPConfig
	Payments     PaymentsConfig
	Lifecycle    LifecycleConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if cfg.Lifecycle.JobTimeout >= cfg.Lifecycle.LockTTL {
		return nil, fmt.Errorf("%s (%s) must be shorter than %s (%s)",
			EnvLifecycleJobTimeout, cfg.Lifecycle.JobTimeout, EnvLifecycleLockTTL, cfg.Lifecycle.LockTTL)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"QD_APP_ENV" required:"true"`
	Port         string `envconfig:"QD_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"QD_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"QD_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type DBConfig struct {
	DSN    string `envconfig:"QD_DB_DSN"`
	Driver string `envconfig:"QD_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"QD_DB_HOST"`
	LegacyPort     int    `envconfig:"QD_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"QD_DB_USER"`
	LegacyPassword string `envconfig:"QD_DB_PASSWORD"`
	LegacyName     string `envconfig:"QD_DB_NAME"`
	LegacySSLMode  string `envconfig:"QD_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"QD_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"QD_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"QD_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"QD_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"QD_DB_SLOW_QUERY" default:"200ms"`
}

// IsSQLite reports whether the ledger runs on the embedded sqlite driver.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"QD_REDIS_URL" required:"true"`
	Address      string        `envconfig:"QD_REDIS_ADDR"`
	Password     string        `envconfig:"QD_REDIS_PASSWORD"`
	DB           int           `envconfig:"QD_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"QD_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"QD_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"QD_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"QD_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"QD_REDIS_WRITE_TIMEOUT" default:"5s"`
	SessionTTL   time.Duration `envconfig:"QD_CART_SESSION_TTL" default:"720h"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"QD_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"QD_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"QD_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"QD_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

// OTPConfig drives phone login codes. Argon parameters hash the codes at rest.
type OTPConfig struct {
	TTL              time.Duration `envconfig:"QD_OTP_TTL" default:"5m"`
	CodeLength       int           `envconfig:"QD_OTP_CODE_LENGTH" default:"6"`
	MaxAttempts      int           `envconfig:"QD_OTP_MAX_ATTEMPTS" default:"5"`
	RequestWindow    time.Duration `envconfig:"QD_OTP_REQUEST_WINDOW" default:"10m"`
	RequestLimit     int           `envconfig:"QD_OTP_REQUEST_LIMIT" default:"3"`
	IPLimit          int           `envconfig:"QD_OTP_IP_LIMIT" default:"30"`
	DemoMode         bool          `envconfig:"QD_OTP_DEMO_MODE" default:"true"`
	ArgonMemoryKB    int           `envconfig:"QD_ARGON_MEMORY_KB" default:"19456"`
	ArgonTime        int           `envconfig:"QD_ARGON_TIME" default:"2"`
	ArgonParallelism int           `envconfig:"QD_ARGON_PARALLELISM" default:"1"`
	ArgonSaltLen     int           `envconfig:"QD_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int           `envconfig:"QD_ARGON_KEY_LEN" default:"32"`
}

type PaymentsConfig struct {
	MerchantID      string        `envconfig:"QD_PAYMENTS_MERCHANT_ID" default:"QUICKDELIVERY"`
	PayeeVPA        string        `envconfig:"QD_PAYMENTS_PAYEE_VPA" default:"6302829644@ybl"`
	RedirectBaseURL string        `envconfig:"QD_PAYMENTS_REDIRECT_BASE_URL" default:"http://localhost:5173"`
	PollInterval    time.Duration `envconfig:"QD_PAYMENTS_POLL_INTERVAL" default:"3s"`
	MaxPollAttempts int           `envconfig:"QD_PAYMENTS_MAX_POLL_ATTEMPTS" default:"40"`
	PendingTTL      time.Duration `envconfig:"QD_PAYMENTS_PENDING_TTL" default:"24h"`
	WebhookTTL      time.Duration `envconfig:"QD_PAYMENTS_WEBHOOK_TTL" default:"720h"`

	// The simulated gateway settles a pending transaction on its own once it is
	// older than GatewaySettleAfter. Zero waits for a callback.
	GatewaySettleAfter time.Duration `envconfig:"QD_GATEWAY_SETTLE_AFTER" default:"10s"`
	GatewaySuccessRate float64       `envconfig:"QD_GATEWAY_SUCCESS_RATE" default:"0.9"`
	GatewayTTL         time.Duration `envconfig:"QD_GATEWAY_TXN_TTL" default:"48h"`

	// Callback checksums are SHA256(response + SaltKey) + "###" + SaltIndex.
	SaltKey   string `envconfig:"QD_PHONEPE_SALT_KEY" default:"quickdelivery-demo-salt"`
	SaltIndex string `envconfig:"QD_PHONEPE_SALT_INDEX" default:"1"`
}

type LifecycleConfig struct {
	TickInterval time.Duration `envconfig:"QD_LIFECYCLE_TICK_INTERVAL" default:"15s"`
	LockTTL      time.Duration `envconfig:"QD_LIFECYCLE_LOCK_TTL" default:"1m"`
	JobTimeout   time.Duration `envconfig:"QD_LIFECYCLE_JOB_TIMEOUT" default:"45s"`
	BatchSize    int           `envconfig:"QD_LIFECYCLE_BATCH_SIZE" default:"200"`
	MetricsAddr  string        `envconfig:"QD_CRON_METRICS_ADDR" default:":9100"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"QD_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"QD_GCP_PROJECT_ID"`
	ApplicationCredentials string `envconfig:"QD_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic string `envconfig:"QD_PUBSUB_DOMAIN_TOPIC" default:"qd-domain-events"`
	// CreateTopic creates a missing domain topic on startup. Meant for the emulator.
	CreateTopic bool `envconfig:"QD_PUBSUB_CREATE_TOPIC" default:"false"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"QD_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"QD_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"QD_OUTBOX_MAX_ATTEMPTS" default:"10"`

	Retention      time.Duration `envconfig:"QD_OUTBOX_RETENTION" default:"720h"`
	DLQRetention   time.Duration `envconfig:"QD_OUTBOX_DLQ_RETENTION" default:"2160h"`
	RetentionEvery time.Duration `envconfig:"QD_OUTBOX_RETENTION_EVERY" default:"24h"`
	MetricsAddr    string        `envconfig:"QD_OUTBOX_METRICS_ADDR" default:":9101"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = "file:quickdelivery.db?cache=shared"
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
