package config

// EnvPrefix is passed to envconfig; every field tag carries the full name.
const EnvPrefix = "SURPLUS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv                 = "SURPLUS_APP_ENV"
	EnvPort                   = "SURPLUS_APP_PORT"
	EnvLogFormat              = "SURPLUS_LOG_FORMAT"
	EnvDBDSN                  = "SURPLUS_DB_DSN"
	EnvDBHost                 = "SURPLUS_DB_HOST"
	EnvDBUser                 = "SURPLUS_DB_USER"
	EnvDBName                 = "SURPLUS_DB_NAME"
	EnvUseSQLite              = "SURPLUS_USE_SQLITE"
	EnvRedisURL               = "SURPLUS_REDIS_URL"
	EnvRedisAddr              = "SURPLUS_REDIS_ADDR"
	EnvJWTSecret              = "SURPLUS_JWT_SECRET"
	EnvJWTIssuer              = "SURPLUS_JWT_ISSUER"
	EnvJWTExpMins             = "SURPLUS_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "SURPLUS_REFRESH_TOKEN_TTL_MINUTES"
	EnvGCSBucket              = "SURPLUS_GCS_BUCKET_NAME"
	EnvMaxUploadMB            = "SURPLUS_MAX_UPLOAD_MB"
	EnvPubSubOrdersTopic      = "SURPLUS_PUBSUB_ORDERS_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
