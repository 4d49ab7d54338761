package config

// EnvPrefix namespaces every environment variable the service reads.
const EnvPrefix = "SELLARO"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "SELLARO_APP_ENV"
	EnvPort     = "SELLARO_APP_PORT"
	EnvDBDSN    = "SELLARO_DB_DSN"
	EnvDBHost   = "SELLARO_DB_HOST"
	EnvDBUser   = "SELLARO_DB_USER"
	EnvDBName   = "SELLARO_DB_NAME"
	EnvRedisURL = "SELLARO_REDIS_URL"

	EnvCommissionRate     = "SELLARO_CHECKOUT_COMMISSION_RATE"
	EnvCheckoutLockTTL    = "SELLARO_CHECKOUT_LOCK_TTL"
	EnvSquareAccessToken  = "SELLARO_SQUARE_ACCESS_TOKEN"
	EnvSquareEnvironment  = "SELLARO_SQUARE_ENV"
	EnvSquareLocationID   = "SELLARO_SQUARE_LOCATION_ID"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
