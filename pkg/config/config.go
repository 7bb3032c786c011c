package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix  = ""
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Cart         CartConfig
	Tax          TaxConfig
	Shipping     ShippingConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	RateLimit    RateLimitConfig
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
	Env          string `envconfig:"MARKETCART_APP_ENV" required:"true"`
	Port         string `envconfig:"MARKETCART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MARKETCART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MARKETCART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"MARKETCART_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"MARKETCART_DB_DSN"`
	Driver string `envconfig:"MARKETCART_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MARKETCART_DB_HOST"`
	LegacyPort     int    `envconfig:"MARKETCART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MARKETCART_DB_USER"`
	LegacyPassword string `envconfig:"MARKETCART_DB_PASSWORD"`
	LegacyName     string `envconfig:"MARKETCART_DB_NAME"`
	LegacySSLMode  string `envconfig:"MARKETCART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MARKETCART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MARKETCART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MARKETCART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MARKETCART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.LegacyHost == "" || d.LegacyUser == "" || d.LegacyName == "" {
		return fmt.Errorf("either MARKETCART_DB_DSN or MARKETCART_DB_HOST/USER/NAME must be set")
	}
	userInfo := url.User(d.LegacyUser)
	if d.LegacyPassword != "" {
		userInfo = url.UserPassword(d.LegacyUser, d.LegacyPassword)
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     userInfo,
		Host:     fmt.Sprintf("%s:%d", d.LegacyHost, d.LegacyPort),
		Path:     d.LegacyName,
		RawQuery: "sslmode=" + d.LegacySSLMode,
	}
	d.DSN = u.String()
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"MARKETCART_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MARKETCART_REDIS_ADDR"`
	Password     string        `envconfig:"MARKETCART_REDIS_PASSWORD"`
	DB           int           `envconfig:"MARKETCART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MARKETCART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MARKETCART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MARKETCART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MARKETCART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MARKETCART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig describes how identity-provider access tokens are verified.
// The service never issues tokens; it only validates what the edge sends.
type JWTConfig struct {
	Secret   string `envconfig:"MARKETCART_JWT_SECRET" required:"true"`
	Issuer   string `envconfig:"MARKETCART_JWT_ISSUER" required:"true"`
	Audience string `envconfig:"MARKETCART_JWT_AUDIENCE" default:"marketcart"`
}

type CartConfig struct {
	TTL                 time.Duration `envconfig:"MARKETCART_CART_TTL" default:"720h"`
	DefaultCurrency     string        `envconfig:"MARKETCART_CART_DEFAULT_CURRENCY" default:"USD"`
	DefaultJurisdiction string        `envconfig:"MARKETCART_CART_DEFAULT_JURISDICTION" default:"US-DEFAULT"`
}

type TaxConfig struct {
	DefaultRate string `envconfig:"MARKETCART_TAX_DEFAULT_RATE" default:"0"`
}

type ShippingConfig struct {
	StandardBaseCents  int `envconfig:"MARKETCART_SHIPPING_STANDARD_BASE_CENTS" default:"599"`
	StandardPerItem    int `envconfig:"MARKETCART_SHIPPING_STANDARD_PER_ITEM_CENTS" default:"100"`
	ExpeditedBaseCents int `envconfig:"MARKETCART_SHIPPING_EXPEDITED_BASE_CENTS" default:"1499"`
	ExpeditedPerItem   int `envconfig:"MARKETCART_SHIPPING_EXPEDITED_PER_ITEM_CENTS" default:"250"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MARKETCART_FEATURE_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"MARKETCART_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	DomainTopic string `envconfig:"MARKETCART_PUBSUB_DOMAIN_TOPIC" default:"marketcart-domain-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"MARKETCART_OUTBOX_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"MARKETCART_OUTBOX_POLL_INTERVAL_MS" default:"500"`
	MaxAttempts    int `envconfig:"MARKETCART_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"MARKETCART_CRON_INTERVAL" default:"1h"`
}

// RateLimitConfig throttles the checkout surface. Zero limits disable the
// middleware entirely.
type RateLimitConfig struct {
	CheckoutWindow     time.Duration `envconfig:"MARKETCART_RL_CHECKOUT_WINDOW" default:"1m"`
	CheckoutIPLimit    int           `envconfig:"MARKETCART_RL_CHECKOUT_IP_LIMIT" default:"30"`
	CheckoutOwnerLimit int           `envconfig:"MARKETCART_RL_CHECKOUT_OWNER_LIMIT" default:"10"`
}
