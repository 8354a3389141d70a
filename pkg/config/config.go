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
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Listings     ListingsConfig
	Orders       OrdersConfig
	Cron         CronConfig
	Webhooks     WebhooksConfig
	RateLimit    RateLimitConfig
	Outbox       OutboxConfig
	Stripe       StripeConfig
	PubSub       PubSubConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"LISTINGZ_APP_ENV" required:"true"`
	Port         string `envconfig:"LISTINGZ_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"LISTINGZ_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LISTINGZ_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"LISTINGZ_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"LISTINGZ_DB_DSN"`
	Driver string `envconfig:"LISTINGZ_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"LISTINGZ_DB_HOST"`
	LegacyPort     int    `envconfig:"LISTINGZ_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LISTINGZ_DB_USER"`
	LegacyPassword string `envconfig:"LISTINGZ_DB_PASSWORD"`
	LegacyName     string `envconfig:"LISTINGZ_DB_NAME"`
	LegacySSLMode  string `envconfig:"LISTINGZ_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LISTINGZ_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LISTINGZ_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LISTINGZ_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LISTINGZ_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LISTINGZ_REDIS_URL"`
	Address      string        `envconfig:"LISTINGZ_REDIS_ADDR"`
	Password     string        `envconfig:"LISTINGZ_REDIS_PASSWORD"`
	DB           int           `envconfig:"LISTINGZ_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LISTINGZ_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LISTINGZ_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LISTINGZ_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LISTINGZ_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LISTINGZ_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"LISTINGZ_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"LISTINGZ_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"LISTINGZ_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"LISTINGZ_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"LISTINGZ_AUTO_MIGRATE" default:"false"`
}

// ListingsConfig tunes the listing lifecycle and report gate.
type ListingsConfig struct {
	ExpiringLookaheadDays int `envconfig:"LISTINGZ_LISTING_EXPIRING_LOOKAHEAD_DAYS" default:"8"`
	DefaultDurationDays   int `envconfig:"LISTINGZ_LISTING_DEFAULT_DURATION_DAYS" default:"30"`
	ReportThreshold       int `envconfig:"LISTINGZ_LISTING_REPORT_THRESHOLD" default:"10"`
	SweepBatchSize        int `envconfig:"LISTINGZ_LISTING_SWEEP_BATCH_SIZE" default:"500"`
}

// ExpiringLookahead returns the look-ahead window used by the expiration sweep.
func (l ListingsConfig) ExpiringLookahead() time.Duration {
	if l.ExpiringLookaheadDays <= 0 {
		return 0
	}
	return time.Duration(l.ExpiringLookaheadDays) * 24 * time.Hour
}

type OrdersConfig struct {
	PendingTTLHours int    `envconfig:"LISTINGZ_ORDER_PENDING_TTL_HOURS" default:"48"`
	Currency        string `envconfig:"LISTINGZ_ORDER_CURRENCY" default:"usd"`
}

// PendingTTL returns how long an order may wait for payment before it expires.
func (o OrdersConfig) PendingTTL() time.Duration {
	if o.PendingTTLHours <= 0 {
		return 0
	}
	return time.Duration(o.PendingTTLHours) * time.Hour
}

type CronConfig struct {
	Interval                  time.Duration `envconfig:"LISTINGZ_CRON_INTERVAL" default:"1h"`
	LockTTL                   time.Duration `envconfig:"LISTINGZ_CRON_LOCK_TTL" default:"2h"`
	NotificationRetentionDays int           `envconfig:"LISTINGZ_CRON_NOTIFICATION_RETENTION_DAYS" default:"30"`
	OutboxRetentionDays       int           `envconfig:"LISTINGZ_CRON_OUTBOX_RETENTION_DAYS" default:"30"`
}

type WebhooksConfig struct {
	IdempotencyTTL time.Duration `envconfig:"LISTINGZ_WEBHOOK_IDEMPOTENCY_TTL" default:"168h"`
}

type RateLimitConfig struct {
	ReportWindow time.Duration `envconfig:"LISTINGZ_RATE_LIMIT_REPORT_WINDOW" default:"1h"`
	ReportLimit  int           `envconfig:"LISTINGZ_RATE_LIMIT_REPORT_LIMIT" default:"20"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"LISTINGZ_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"LISTINGZ_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"LISTINGZ_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type StripeConfig struct {
	APIKey string `envconfig:"LISTINGZ_STRIPE_API_KEY"`
	Secret string `envconfig:"LISTINGZ_STRIPE_SECRET"`
	Env    string `envconfig:"LISTINGZ_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type PubSubConfig struct {
	ProjectID   string `envconfig:"LISTINGZ_GCP_PROJECT_ID"`
	DomainTopic string `envconfig:"LISTINGZ_PUBSUB_DOMAIN_TOPIC" default:"listingz-domain-events"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" {
		if useSQLite {
			db.Driver = "sqlite"
		}
		return nil
	}
	if useSQLite {
		db.DSN = defaultSQLiteDSN
		db.Driver = "sqlite"
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
