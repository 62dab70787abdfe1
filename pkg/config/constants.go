package config

const (
	EnvPrefix = "EASYSHOP"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "EASYSHOP_APP_ENV"
	EnvPort     = "EASYSHOP_APP_PORT"
	EnvLogLevel = "EASYSHOP_LOG_LEVEL"

	EnvDBDSN  = "EASYSHOP_DB_DSN"
	EnvDBHost = "EASYSHOP_DB_HOST"
	EnvDBUser = "EASYSHOP_DB_USER"
	EnvDBName = "EASYSHOP_DB_NAME"

	EnvRedisURL = "EASYSHOP_REDIS_URL"

	EnvJWTSecret  = "EASYSHOP_JWT_SECRET"
	EnvJWTIssuer  = "EASYSHOP_JWT_ISSUER"
	EnvJWTExpMins = "EASYSHOP_JWT_EXPIRATION_MINUTES"

	EnvOrderPaymentExpiry = "EASYSHOP_ORDER_PAYMENT_EXPIRY"
	EnvShippingFee        = "EASYSHOP_PRICING_SHIPPING_FEE_PER_SELLER"
	EnvOutboxTransport    = "EASYSHOP_OUTBOX_TRANSPORT"
	EnvKafkaBrokers       = "EASYSHOP_KAFKA_BROKERS"

	OutboxTransportPubSub = "pubsub"
	OutboxTransportKafka  = "kafka"

	DefaultShippingFeePerSeller = 20
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
