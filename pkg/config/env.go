package config

const (
	EnvPrefix = "LISTINGZ"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv       = "LISTINGZ_APP_ENV"
	EnvPort         = "LISTINGZ_APP_PORT"
	EnvDBDSN        = "LISTINGZ_DB_DSN"
	EnvDBHost       = "LISTINGZ_DB_HOST"
	EnvDBUser       = "LISTINGZ_DB_USER"
	EnvDBName       = "LISTINGZ_DB_NAME"
	EnvUseSQLite    = "LISTINGZ_USE_SQLITE"
	EnvRedisURL     = "LISTINGZ_REDIS_URL"
	EnvJWTSecret    = "LISTINGZ_JWT_SECRET"
	EnvJWTIssuer    = "LISTINGZ_JWT_ISSUER"
	EnvJWTExpMins   = "LISTINGZ_JWT_EXPIRATION_MINUTES"
	EnvLookahead    = "LISTINGZ_LISTING_EXPIRING_LOOKAHEAD_DAYS"
	EnvThreshold    = "LISTINGZ_LISTING_REPORT_THRESHOLD"
	EnvPendingTTL   = "LISTINGZ_ORDER_PENDING_TTL_HOURS"
	EnvStripeKey    = "LISTINGZ_STRIPE_API_KEY"
	EnvStripeEnv    = "LISTINGZ_STRIPE_ENV"
	EnvCronInterval = "LISTINGZ_CRON_INTERVAL"

	defaultSQLiteDSN = "file:listingz.db?cache=shared&_foreign_keys=on"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
