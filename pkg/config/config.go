package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	GCP           GCPConfig
	GCS           GCSConfig
	Media         MediaConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Cron          CronConfig
	Tracing       TracingConfig
	CORS          CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Redis.URL) == "" && strings.TrimSpace(cfg.Redis.Address) == "" {
		return nil, fmt.Errorf("%s or %s is required", EnvRedisURL, EnvRedisAddr)
	}
	if cfg.JWT.RefreshTokenTTL() <= cfg.JWT.AccessTokenTTL() {
		return nil, fmt.Errorf("%s must be greater than %s", EnvRefreshTokenTTLMinutes, EnvJWTExpMins)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SURPLUS_APP_ENV" required:"true"`
	Port         string `envconfig:"SURPLUS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SURPLUS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SURPLUS_LOG_WARN_STACK" default:"false"`
	// WorkerMetricsAddr, when set, exposes /metrics from background workers.
	WorkerMetricsAddr string `envconfig:"SURPLUS_WORKER_METRICS_ADDR"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev) || strings.EqualFold(a.Env, "development")
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type DBConfig struct {
	DSN        string `envconfig:"SURPLUS_DB_DSN"`
	Driver     string `envconfig:"SURPLUS_DB_DRIVER" default:"postgres"`
	SQLitePath string `envconfig:"SURPLUS_SQLITE_PATH" default:"surplus.db"`

	LegacyHost     string `envconfig:"SURPLUS_DB_HOST"`
	LegacyPort     int    `envconfig:"SURPLUS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SURPLUS_DB_USER"`
	LegacyPassword string `envconfig:"SURPLUS_DB_PASSWORD"`
	LegacyName     string `envconfig:"SURPLUS_DB_NAME"`
	LegacySSLMode  string `envconfig:"SURPLUS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SURPLUS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SURPLUS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SURPLUS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SURPLUS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	// Statements slower than this are logged at warn level; 0 disables.
	SlowQueryThreshold time.Duration `envconfig:"SURPLUS_DB_SLOW_QUERY_THRESHOLD" default:"250ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SURPLUS_REDIS_URL"`
	Address      string        `envconfig:"SURPLUS_REDIS_ADDR"`
	Password     string        `envconfig:"SURPLUS_REDIS_PASSWORD"`
	DB           int           `envconfig:"SURPLUS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SURPLUS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SURPLUS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SURPLUS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SURPLUS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SURPLUS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"SURPLUS_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"SURPLUS_JWT_ISSUER" default:"surplus"`
	ExpirationMinutes      int    `envconfig:"SURPLUS_JWT_EXPIRATION_MINUTES" default:"1440"`
	RefreshTokenTTLMinutes int    `envconfig:"SURPLUS_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// AccessTokenTTL returns the access token lifetime.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"SURPLUS_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"SURPLUS_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"SURPLUS_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"SURPLUS_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"SURPLUS_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"SURPLUS_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"SURPLUS_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"SURPLUS_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"SURPLUS_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"SURPLUS_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"SURPLUS_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SURPLUS_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SURPLUS_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SURPLUS_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"SURPLUS_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SURPLUS_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName        string        `envconfig:"SURPLUS_GCS_BUCKET_NAME"`
	PublicBaseURL     string        `envconfig:"SURPLUS_GCS_PUBLIC_BASE_URL" default:"https://storage.googleapis.com"`
	UploadURLExpiry   time.Duration `envconfig:"SURPLUS_GCS_UPLOAD_URL_EXPIRY" default:"15m"`
	DownloadURLExpiry time.Duration `envconfig:"SURPLUS_GCS_DOWNLOAD_URL_EXPIRY" default:"24h"`
}

// Enabled reports whether product image uploads can be signed.
func (g GCSConfig) Enabled() bool {
	return strings.TrimSpace(g.BucketName) != ""
}

type MediaConfig struct {
	MaxUploadMB       int      `envconfig:"SURPLUS_MAX_UPLOAD_MB" default:"16"`
	AllowedExtensions []string `envconfig:"SURPLUS_MEDIA_ALLOWED_EXTENSIONS" default:"png,jpg,jpeg,gif,webp"`
}

// MaxUploadBytes returns the upload ceiling in bytes.
func (m MediaConfig) MaxUploadBytes() int64 {
	return int64(m.MaxUploadMB) * 1024 * 1024
}

type PubSubConfig struct {
	OrdersTopic  string `envconfig:"SURPLUS_PUBSUB_ORDERS_TOPIC" default:"sp-order-events"`
	CatalogTopic string `envconfig:"SURPLUS_PUBSUB_CATALOG_TOPIC" default:"sp-catalog-events"`
	DLQTopic     string `envconfig:"SURPLUS_PUBSUB_DLQ_TOPIC"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SURPLUS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SURPLUS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SURPLUS_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	IntervalMinutes     int  `envconfig:"SURPLUS_CRON_INTERVAL_MINUTES" default:"60"`
	OutboxRetentionDays int  `envconfig:"SURPLUS_CRON_OUTBOX_RETENTION_DAYS" default:"14"`
	ExpireListings      bool `envconfig:"SURPLUS_CRON_EXPIRE_LISTINGS" default:"true"`
}

func (c CronConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

type TracingConfig struct {
	Enabled        bool    `envconfig:"SURPLUS_TRACING_ENABLED" default:"false"`
	JaegerEndpoint string  `envconfig:"SURPLUS_TRACING_JAEGER_ENDPOINT" default:"http://localhost:14268/api/traces"`
	SampleRatio    float64 `envconfig:"SURPLUS_TRACING_SAMPLE_RATIO" default:"1"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"SURPLUS_CORS_ALLOWED_ORIGINS" default:"*"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" || useSQLite {
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
