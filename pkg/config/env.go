package config

// EnvPrefix is passed to envconfig; every field carries its full variable name.
const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev = "dev"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv                 = "STOREFRONT_APP_ENV"
	EnvPort                   = "STOREFRONT_APP_PORT"
	EnvDBDSN                  = "STOREFRONT_DB_DSN"
	EnvDBDriver               = "STOREFRONT_DB_DRIVER"
	EnvDBHost                 = "STOREFRONT_DB_HOST"
	EnvDBUser                 = "STOREFRONT_DB_USER"
	EnvDBName                 = "STOREFRONT_DB_NAME"
	EnvDBPassword             = "STOREFRONT_DB_PASSWORD"
	EnvRedisURL               = "STOREFRONT_REDIS_URL"
	EnvJWTSecret              = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer              = "STOREFRONT_JWT_ISSUER"
	EnvJWTExpMins             = "STOREFRONT_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "STOREFRONT_REFRESH_TOKEN_TTL_MINUTES"
	EnvStripeAPIKey           = "STOREFRONT_STRIPE_API_KEY"
	EnvStripeWebhookSecret    = "STOREFRONT_STRIPE_WEBHOOK_SECRET"
	EnvStripeCurrency         = "STOREFRONT_STRIPE_CURRENCY"
	EnvCheckoutShippingPrice  = "STOREFRONT_CHECKOUT_SHIPPING_PRICE"
	EnvCheckoutTaxPrice       = "STOREFRONT_CHECKOUT_TAX_PRICE"
	EnvPubSubOrdersTopic      = "STOREFRONT_PUBSUB_ORDERS_TOPIC"
	EnvGCPProjectID           = "STOREFRONT_GCP_PROJECT_ID"
)
