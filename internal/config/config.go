package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENV" default:"development"`
	Port        string `envconfig:"PORT" default:"8080"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"debug"`

	// Comma separated; ignored in development where every origin is allowed.
	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS"`

	// Database settings
	DBConnectionString string        `envconfig:"DB_CONNECTION_STRING" required:"true"`
	DBMaxConns         int32         `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns         int32         `envconfig:"DB_MIN_CONNS" default:"2"`
	DBMaxConnIdleTime  time.Duration `envconfig:"DB_MAX_CONN_IDLE_TIME" default:"5m"`
	DBRetryAttempts    int           `envconfig:"DB_RETRY_ATTEMPTS" default:"3"`
	DBRetryInterval    time.Duration `envconfig:"DB_RETRY_INTERVAL" default:"2s"`
	DBAutoMigrate      bool          `envconfig:"DB_AUTO_MIGRATE" default:"false"`

	// Usage ledger settings. UsageBackend is "postgres" or "redis".
	UsageBackend   string `envconfig:"USAGE_BACKEND" default:"postgres"`
	RedisURL       string `envconfig:"REDIS_URL"`
	DailyFreeLimit int    `envconfig:"DAILY_FREE_LIMIT" default:"10"`

	// Auth settings. Either an HMAC secret or a PEM public key.
	JWTSecret string `envconfig:"SUPABASE_JWT_SECRET" required:"true"`

	// Creem settings
	CreemAPIKey         string `envconfig:"CREEM_API_KEY"`
	CreemWebhookSecret  string `envconfig:"CREEM_WEBHOOK_SECRET"`
	CreemAPIBaseURL     string `envconfig:"CREEM_API_BASE_URL" default:"https://api.creem.io"`
	CreemMonthlyProduct string `envconfig:"CREEM_MONTHLY_PRODUCT_ID" default:"prod_5Q6pDwFdu9YD73YyMUwT1V"`
	CreemYearlyProduct  string `envconfig:"CREEM_YEARLY_PRODUCT_ID" default:"prod_2B1by8Crg9NMeFC7abO1kA"`

	// PayPal settings
	PayPalClientID     string `envconfig:"PAYPAL_CLIENT_ID"`
	PayPalClientSecret string `envconfig:"PAYPAL_CLIENT_SECRET"`
	PayPalWebhookID    string `envconfig:"PAYPAL_WEBHOOK_ID"`
	PayPalAPIBaseURL   string `envconfig:"PAYPAL_API_BASE_URL" default:"https://api-m.sandbox.paypal.com"`

	// Stripe settings
	StripeWebhookSecret string `envconfig:"STRIPE_WEBHOOK_SECRET"`

	// ConvertAPI settings
	ConvertAPISecret  string        `envconfig:"CONVERTAPI_SECRET"`
	ConvertAPIBaseURL string        `envconfig:"CONVERTAPI_BASE_URL" default:"https://v2.convertapi.com"`
	ConvertAPITimeout time.Duration `envconfig:"CONVERTAPI_TIMEOUT" default:"60s"`
	MaxUploadSizeMB   int64         `envconfig:"MAX_UPLOAD_SIZE_MB" default:"10"`
	DownloadURLTTL    time.Duration `envconfig:"DOWNLOAD_URL_TTL" default:"3h"`

	// S3 settings
	S3URL       string `envconfig:"S3_URL"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"conversions"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY"`

	// GCP settings
	GCPProjectID       string `envconfig:"GCP_PROJECT_ID"`
	PubSubOrdersTopic  string `envconfig:"PUBSUB_ORDERS_TOPIC" default:"billing-orders"`
	PubSubEmulatorHost string `envconfig:"PUBSUB_EMULATOR_HOST"`

	// Dead-letter push subscription. Audience is the full URL of /v1/dlq.
	DLQEndpointURL                string `envconfig:"DLQ_ENDPOINT_URL"`
	PubSubPushServiceAccountEmail string `envconfig:"PUBSUB_PUSH_SERVICE_ACCOUNT_EMAIL"`

	// Expiry orchestrator settings
	ExpirySweepInterval time.Duration `envconfig:"EXPIRY_SWEEP_INTERVAL" default:"5m"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsDevelopment reports whether the service runs against local infrastructure.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// MaxUploadSizeBytes returns the upload limit in bytes.
func (c *Config) MaxUploadSizeBytes() int64 {
	return c.MaxUploadSizeMB << 20
}

// SecretFields returns pointers to every field that may hold an sm:// reference.
func (c *Config) SecretFields() []*string {
	return []*string{
		&c.DBConnectionString,
		&c.JWTSecret,
		&c.CreemAPIKey,
		&c.CreemWebhookSecret,
		&c.PayPalClientSecret,
		&c.StripeWebhookSecret,
		&c.ConvertAPISecret,
		&c.S3SecretKey,
	}
}
