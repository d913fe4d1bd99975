package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App        AppConfig
	Service    ServiceConfig
	DB         DBConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Stripe     StripeConfig
	PubSub     PubSubConfig
	Settlement SettlementConfig
	Payout     PayoutConfig
	Flags      FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Settlement.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"LOADHUB_APP_ENV" required:"true"`
	Port         string `envconfig:"LOADHUB_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"LOADHUB_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LOADHUB_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"LOADHUB_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"LOADHUB_DB_DSN"`
	Driver string `envconfig:"LOADHUB_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"LOADHUB_DB_HOST"`
	Port     int    `envconfig:"LOADHUB_DB_PORT" default:"5432"`
	User     string `envconfig:"LOADHUB_DB_USER"`
	Password string `envconfig:"LOADHUB_DB_PASSWORD"`
	Name     string `envconfig:"LOADHUB_DB_NAME"`
	SSLMode  string `envconfig:"LOADHUB_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LOADHUB_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LOADHUB_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LOADHUB_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LOADHUB_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	AutoMigrate bool `envconfig:"LOADHUB_DB_AUTO_MIGRATE" default:"false"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("either LOADHUB_DB_DSN or host/user/name must be set")
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.Name,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	d.DSN = u.String()
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"LOADHUB_REDIS_URL" required:"true"`
	Address      string        `envconfig:"LOADHUB_REDIS_ADDR"`
	Password     string        `envconfig:"LOADHUB_REDIS_PASSWORD"`
	DB           int           `envconfig:"LOADHUB_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LOADHUB_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LOADHUB_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LOADHUB_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LOADHUB_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LOADHUB_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"LOADHUB_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"LOADHUB_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"LOADHUB_JWT_EXPIRATION_MINUTES" default:"60"`
}

type StripeConfig struct {
	APIKey      string `envconfig:"LOADHUB_STRIPE_API_KEY"`
	Secret      string `envconfig:"LOADHUB_STRIPE_WEBHOOK_SECRET"`
	RawEnv      string `envconfig:"LOADHUB_STRIPE_ENV" default:"test"`
	CurrencyISO string `envconfig:"LOADHUB_STRIPE_CURRENCY" default:"usd"`
}

func (s StripeConfig) Environment() string {
	return s.RawEnv
}

type PubSubConfig struct {
	ProjectID         string `envconfig:"LOADHUB_PUBSUB_PROJECT_ID"`
	NotificationTopic string `envconfig:"LOADHUB_PUBSUB_NOTIFICATION_TOPIC" default:"lh-notification-events"`
}

// SettlementConfig holds the fee rates applied when money moves.
//
// SystemFeeRate is the owner-facing platform fee charged on top of the
// accepted bid. PlatformFeeRate is the driver-facing cut taken when earnings
// are finalized on delivery for bids submitted directly by drivers. The two
// are intentionally distinct knobs.
type SettlementConfig struct {
	SystemFeeRate           decimal.Decimal `envconfig:"LOADHUB_SETTLEMENT_SYSTEM_FEE_RATE" default:"0.20"`
	TaxRate                 decimal.Decimal `envconfig:"LOADHUB_SETTLEMENT_TAX_RATE" default:"0.10"`
	PlatformFeeRate         decimal.Decimal `envconfig:"LOADHUB_SETTLEMENT_PLATFORM_FEE_RATE" default:"0.15"`
	DispatcherCommissionMax decimal.Decimal `envconfig:"LOADHUB_SETTLEMENT_DISPATCHER_COMMISSION_MAX" default:"0.50"`
	InvoiceTermDays         int             `envconfig:"LOADHUB_SETTLEMENT_INVOICE_TERM_DAYS" default:"7"`
}

func (s SettlementConfig) validate() error {
	one := decimal.NewFromInt(1)
	for name, rate := range map[string]decimal.Decimal{
		"system fee rate":           s.SystemFeeRate,
		"tax rate":                  s.TaxRate,
		"platform fee rate":         s.PlatformFeeRate,
		"dispatcher commission max": s.DispatcherCommissionMax,
	} {
		if rate.IsNegative() || rate.GreaterThan(one) {
			return fmt.Errorf("%s must be within [0,1], got %s", name, rate)
		}
	}
	if s.InvoiceTermDays <= 0 {
		return fmt.Errorf("invoice term days must be positive, got %d", s.InvoiceTermDays)
	}
	return nil
}

type PayoutConfig struct {
	Interval time.Duration `envconfig:"LOADHUB_PAYOUT_INTERVAL" default:"1h"`
	LockTTL  time.Duration `envconfig:"LOADHUB_PAYOUT_LOCK_TTL" default:"2h"`
}

type FeatureFlagsConfig struct {
	ForcePayoutRun bool `envconfig:"LOADHUB_FEATURE_FORCE_PAYOUT_RUN" default:"false"`
}
