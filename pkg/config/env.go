package config

const EnvPrefix = "VENDORA"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "VENDORA_APP_ENV"
	EnvPort     = "VENDORA_APP_PORT"
	EnvLogLevel = "VENDORA_LOG_LEVEL"

	EnvDBDSN  = "VENDORA_DB_DSN"
	EnvDBHost = "VENDORA_DB_HOST"
	EnvDBUser = "VENDORA_DB_USER"
	EnvDBName = "VENDORA_DB_NAME"

	EnvRedisURL = "VENDORA_REDIS_URL"

	EnvJWTSecret = "VENDORA_JWT_SECRET"
	EnvJWTIssuer = "VENDORA_JWT_ISSUER"

	EnvGCPProjectID         = "VENDORA_GCP_PROJECT_ID"
	EnvPubSubOrdersTopic    = "VENDORA_PUBSUB_ORDERS_TOPIC"
	EnvCommissionRate       = "VENDORA_COMMISSION_RATE"
	EnvPaymentCodePrefix    = "VENDORA_PAYMENT_CODE_PREFIX"
	EnvPaymentCancelTimeout = "VENDORA_PAYMENT_CANCEL_TIMEOUT"
	EnvPaymentWebhookAPIKey = "VENDORA_PAYMENT_WEBHOOK_API_KEY"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
