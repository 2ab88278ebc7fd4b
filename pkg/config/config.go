package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App            AppConfig
	Service        ServiceConfig
	DB             DBConfig
	Redis          RedisConfig
	JWT            JWTConfig
	FeatureFlags   FeatureFlagsConfig
	GCP            GCPConfig
	PubSub         PubSubConfig
	Outbox         OutboxConfig
	Checkout       CheckoutConfig
	PaymentWebhook PaymentWebhookConfig
	PaymentQueue   PaymentQueueConfig
	Cron           CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.App.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Checkout.validate(); err != nil {
		return nil, err
	}
	if cfg.App.IsProd() && cfg.PaymentWebhook.APIKey == "" {
		return nil, fmt.Errorf("%s is required in production", EnvPaymentWebhookAPIKey)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"VENDORA_APP_ENV" required:"true"`
	Port         string   `envconfig:"VENDORA_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"VENDORA_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"VENDORA_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"VENDORA_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

var logLevels = []string{"trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled"}

func (a AppConfig) validate() error {
	for _, level := range logLevels {
		if strings.EqualFold(a.LogLevel, level) {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of %s, got %q", EnvLogLevel, strings.Join(logLevels, ", "), a.LogLevel)
}

type ServiceConfig struct {
	Kind string `envconfig:"VENDORA_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"VENDORA_DB_DSN"`
	Driver string `envconfig:"VENDORA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"VENDORA_DB_HOST"`
	LegacyPort     int    `envconfig:"VENDORA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"VENDORA_DB_USER"`
	LegacyPassword string `envconfig:"VENDORA_DB_PASSWORD"`
	LegacyName     string `envconfig:"VENDORA_DB_NAME"`
	LegacySSLMode  string `envconfig:"VENDORA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VENDORA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VENDORA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VENDORA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VENDORA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VENDORA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"VENDORA_REDIS_ADDR"`
	Password     string        `envconfig:"VENDORA_REDIS_PASSWORD"`
	DB           int           `envconfig:"VENDORA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VENDORA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VENDORA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VENDORA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VENDORA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VENDORA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig only covers verification; tokens are minted by the auth service.
type JWTConfig struct {
	Secret            string `envconfig:"VENDORA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"VENDORA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"VENDORA_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"VENDORA_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"VENDORA_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"VENDORA_GCP_PROJECT_ID"`
	ApplicationCredentials string `envconfig:"VENDORA_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic string `envconfig:"VENDORA_PUBSUB_ORDERS_TOPIC" default:"vd-order-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"VENDORA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"VENDORA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"VENDORA_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"VENDORA_OUTBOX_RETENTION_DAYS" default:"30"`
}

// CheckoutConfig drives order creation and the unpaid-order timer.
type CheckoutConfig struct {
	CommissionRate    float64       `envconfig:"VENDORA_COMMISSION_RATE" default:"8.0"`
	PaymentCodePrefix string        `envconfig:"VENDORA_PAYMENT_CODE_PREFIX" default:"DH"`
	CancelTimeout     time.Duration `envconfig:"VENDORA_PAYMENT_CANCEL_TIMEOUT" default:"15m"`
}

func (c CheckoutConfig) validate() error {
	if c.CommissionRate < 0 || c.CommissionRate > 100 {
		return fmt.Errorf("%s must be between 0 and 100", EnvCommissionRate)
	}
	if strings.TrimSpace(c.PaymentCodePrefix) == "" {
		return fmt.Errorf("%s is required", EnvPaymentCodePrefix)
	}
	if c.CancelTimeout <= 0 {
		return fmt.Errorf("%s must be positive", EnvPaymentCancelTimeout)
	}
	return nil
}

type PaymentWebhookConfig struct {
	APIKey         string        `envconfig:"VENDORA_PAYMENT_WEBHOOK_API_KEY"`
	IdempotencyTTL time.Duration `envconfig:"VENDORA_PAYMENT_WEBHOOK_IDEMPOTENCY_TTL" default:"10m"`
}

type PaymentQueueConfig struct {
	PollInterval time.Duration `envconfig:"VENDORA_PAYMENT_QUEUE_POLL_INTERVAL" default:"1s"`
	BatchSize    int           `envconfig:"VENDORA_PAYMENT_QUEUE_BATCH_SIZE" default:"20"`
	MaxAttempts  int           `envconfig:"VENDORA_PAYMENT_QUEUE_MAX_ATTEMPTS" default:"8"`
	RetryBackoff time.Duration `envconfig:"VENDORA_PAYMENT_QUEUE_RETRY_BACKOFF" default:"5s"`
}

type CronConfig struct {
	Interval   time.Duration `envconfig:"VENDORA_CRON_INTERVAL" default:"1m"`
	SweepGrace time.Duration `envconfig:"VENDORA_CRON_SWEEP_GRACE" default:"5m"`
	SweepLimit int           `envconfig:"VENDORA_CRON_SWEEP_LIMIT" default:"100"`
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
