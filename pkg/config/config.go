package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Orders       OrdersConfig
	Pricing      PricingConfig
	Stripe       StripeConfig
	Cron         CronConfig
	Outbox       OutboxConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Kafka        KafkaConfig
	Presence     PresenceConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Outbox.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"EASYSHOP_APP_ENV" required:"true"`
	Port         string   `envconfig:"EASYSHOP_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"EASYSHOP_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"EASYSHOP_LOG_WARN_STACK" default:"false"`
	LogFormat    string   `envconfig:"EASYSHOP_LOG_FORMAT" default:"json"`
	FrontendURL  string   `envconfig:"EASYSHOP_FRONTEND_URL" default:"http://localhost:3000"`
	CORSOrigins  []string `envconfig:"EASYSHOP_CORS_ORIGINS" default:"http://localhost:3000,http://localhost:3001,http://localhost:4200"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"EASYSHOP_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"EASYSHOP_DB_DSN"`
	Driver string `envconfig:"EASYSHOP_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"EASYSHOP_DB_HOST"`
	LegacyPort     int    `envconfig:"EASYSHOP_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"EASYSHOP_DB_USER"`
	LegacyPassword string `envconfig:"EASYSHOP_DB_PASSWORD"`
	LegacyName     string `envconfig:"EASYSHOP_DB_NAME"`
	LegacySSLMode  string `envconfig:"EASYSHOP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"EASYSHOP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"EASYSHOP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"EASYSHOP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"EASYSHOP_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// Queries slower than this are logged at warn; zero disables it.
	SlowQueryThreshold time.Duration `envconfig:"EASYSHOP_DB_SLOW_QUERY_THRESHOLD" default:"200ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"EASYSHOP_REDIS_URL" required:"true"`
	Address      string        `envconfig:"EASYSHOP_REDIS_ADDR"`
	Password     string        `envconfig:"EASYSHOP_REDIS_PASSWORD"`
	DB           int           `envconfig:"EASYSHOP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"EASYSHOP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"EASYSHOP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"EASYSHOP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"EASYSHOP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"EASYSHOP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"EASYSHOP_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"EASYSHOP_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"EASYSHOP_JWT_EXPIRATION_MINUTES" default:"10080"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"EASYSHOP_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"EASYSHOP_AUTO_MIGRATE" default:"false"`
}

// OrdersConfig controls checkout and unpaid expiry.
type OrdersConfig struct {
	PaymentExpiry   time.Duration `envconfig:"EASYSHOP_ORDER_PAYMENT_EXPIRY" default:"15s"`
	ExpiryBatchSize int           `envconfig:"EASYSHOP_ORDER_EXPIRY_BATCH_SIZE" default:"100"`
	WarehouseLabel  string        `envconfig:"EASYSHOP_ORDER_WAREHOUSE_LABEL" default:"Easy Main Warehouse"`
}

type PricingConfig struct {
	CommissionPercent  int64  `envconfig:"EASYSHOP_PRICING_COMMISSION_PERCENT" default:"5"`
	ShippingFeePerShop string `envconfig:"EASYSHOP_PRICING_SHIPPING_FEE_PER_SELLER" default:"20"`
	Currency           string `envconfig:"EASYSHOP_PRICING_CURRENCY" default:"usd"`
}

// ShippingFee returns the flat per-seller shipping fee.
func (p PricingConfig) ShippingFee() decimal.Decimal {
	fee, err := decimal.NewFromString(strings.TrimSpace(p.ShippingFeePerShop))
	if err != nil || fee.IsNegative() {
		return decimal.NewFromInt(DefaultShippingFeePerSeller)
	}
	return fee
}

type StripeConfig struct {
	APIKey          string        `envconfig:"EASYSHOP_STRIPE_API_KEY"`
	Secret          string        `envconfig:"EASYSHOP_STRIPE_SECRET"`
	Env             string        `envconfig:"EASYSHOP_STRIPE_ENV" default:"test"`
	TransferTimeout time.Duration `envconfig:"EASYSHOP_STRIPE_TRANSFER_TIMEOUT" default:"15s"`
	ConnectCountry  string        `envconfig:"EASYSHOP_STRIPE_CONNECT_COUNTRY" default:"US"`
	MaxRetries      int64         `envconfig:"EASYSHOP_STRIPE_MAX_RETRIES" default:"2"`
	HTTPTimeout     time.Duration `envconfig:"EASYSHOP_STRIPE_HTTP_TIMEOUT" default:"30s"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type CronConfig struct {
	Interval        time.Duration `envconfig:"EASYSHOP_CRON_INTERVAL" default:"5s"`
	LockTTL         time.Duration `envconfig:"EASYSHOP_CRON_LOCK_TTL" default:"1m"`
	OutboxRetention time.Duration `envconfig:"EASYSHOP_CRON_OUTBOX_RETENTION" default:"720h"`
	// MetricsAddr serves /metrics for the cron worker; empty disables it.
	MetricsAddr     string        `envconfig:"EASYSHOP_CRON_METRICS_ADDR" default:":9103"`
}

type OutboxConfig struct {
	BatchSize      int    `envconfig:"EASYSHOP_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int    `envconfig:"EASYSHOP_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int    `envconfig:"EASYSHOP_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Transport      string `envconfig:"EASYSHOP_OUTBOX_TRANSPORT" default:"pubsub"`

	PublishTimeout time.Duration `envconfig:"EASYSHOP_OUTBOX_PUBLISH_TIMEOUT" default:"15s"`
	MaxBackoff     time.Duration `envconfig:"EASYSHOP_OUTBOX_MAX_BACKOFF" default:"10s"`
	// MetricsAddr serves /metrics for the publisher; empty disables it.
	MetricsAddr    string        `envconfig:"EASYSHOP_OUTBOX_METRICS_ADDR" default:":9102"`
}

func (o OutboxConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(o.Transport)) {
	case OutboxTransportPubSub, OutboxTransportKafka:
		return nil
	default:
		return fmt.Errorf("%s must be one of %s, %s", EnvOutboxTransport, OutboxTransportPubSub, OutboxTransportKafka)
	}
}

// TransportName returns the normalized transport identifier.
func (o OutboxConfig) TransportName() string {
	return strings.ToLower(strings.TrimSpace(o.Transport))
}

type GCPConfig struct {
	ProjectID string `envconfig:"EASYSHOP_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OrdersTopic         string `envconfig:"EASYSHOP_PUBSUB_ORDERS_TOPIC" default:"easyshop-order-events"`
	OrdersSubscription  string `envconfig:"EASYSHOP_PUBSUB_ORDERS_SUBSCRIPTION"`
	PayoutsTopic        string `envconfig:"EASYSHOP_PUBSUB_PAYOUTS_TOPIC" default:"easyshop-payout-events"`
	PayoutsSubscription string `envconfig:"EASYSHOP_PUBSUB_PAYOUTS_SUBSCRIPTION"`
}

type KafkaConfig struct {
	Brokers      []string `envconfig:"EASYSHOP_KAFKA_BROKERS" default:"localhost:9092"`
	OrdersTopic  string   `envconfig:"EASYSHOP_KAFKA_ORDERS_TOPIC" default:"easyshop.orders"`
	PayoutsTopic string   `envconfig:"EASYSHOP_KAFKA_PAYOUTS_TOPIC" default:"easyshop.payouts"`
}

type PresenceConfig struct {
	SendBuffer   int           `envconfig:"EASYSHOP_PRESENCE_SEND_BUFFER" default:"32"`
	PingInterval time.Duration `envconfig:"EASYSHOP_PRESENCE_PING_INTERVAL" default:"30s"`
	WriteWait    time.Duration `envconfig:"EASYSHOP_PRESENCE_WRITE_WAIT" default:"10s"`
	MaxMessage   int64         `envconfig:"EASYSHOP_PRESENCE_MAX_MESSAGE_BYTES" default:"65536"`
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
