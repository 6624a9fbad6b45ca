package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Store backend names accepted in STORE_BACKEND.
const (
	StoreBackendDynamoDB = "dynamodb"
	StoreBackendPostgres = "postgres"
	StoreBackendMemory   = "memory"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	AWS       AWSConfig
	Transcode TranscodeConfig
	Delivery  DeliveryConfig
	Webhook   WebhookConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// StoreConfig selects and sizes the video record store.
type StoreConfig struct {
	Backend  string // dynamodb | postgres | memory
	Table    string // DynamoDB table name
	PageSize int    // catalog listing page size
}

// DatabaseConfig holds PostgreSQL connection settings (postgres backend only).
type DatabaseConfig struct {
	URL      string // if set, used as-is
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings for the event queues.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AWSConfig holds AWS credentials and bucket names.
type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	UploadsBucket   string
	OutputsBucket   string
	UploadExpireSec int // presigned upload URL TTL
}

// TranscodeConfig holds transcode engine (MediaConvert) settings.
type TranscodeConfig struct {
	RoleARN     string
	JobTemplate string
	Endpoint    string // optional account-specific endpoint
}

// DeliveryConfig holds the public CDN origin playback URLs are built from.
type DeliveryConfig struct {
	Origin string // e.g. https://dxxxx.cloudfront.net
}

// WebhookConfig holds the shared secret for event webhook auth. Empty
// disables webhook authentication (local development).
type WebhookConfig struct {
	Secret string
}

// DSN returns the PostgreSQL connection string.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		Store: StoreConfig{
			Backend:  strings.ToLower(getEnv("STORE_BACKEND", StoreBackendDynamoDB)),
			Table:    getEnv("VIDEOS_TABLE", "videos"),
			PageSize: getEnvInt("LIST_PAGE_SIZE", 10),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "videos"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			UploadsBucket:   getEnv("UPLOADS_BUCKET", ""),
			OutputsBucket:   getEnv("OUTPUTS_BUCKET", ""),
			UploadExpireSec: getEnvInt("UPLOAD_URL_EXPIRE_SEC", 3600),
		},
		Transcode: TranscodeConfig{
			RoleARN:     getEnv("MEDIACONVERT_ROLE_ARN", ""),
			JobTemplate: getEnv("MEDIACONVERT_JOB_TEMPLATE", ""),
			Endpoint:    getEnv("MEDIACONVERT_ENDPOINT", ""),
		},
		Delivery: DeliveryConfig{
			Origin: strings.TrimRight(getEnv("DELIVERY_ORIGIN", ""), "/"),
		},
		Webhook: WebhookConfig{
			Secret: getEnv("WEBHOOK_SECRET", ""),
		},
	}
	return cfg, nil
}

// Validate checks required settings once at startup. Handlers never read the
// environment mid-operation, so this is the only place a configuration error
// can surface.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case StoreBackendDynamoDB:
		if c.Store.Table == "" {
			return fmt.Errorf("VIDEOS_TABLE is required for the dynamodb backend")
		}
	case StoreBackendPostgres, StoreBackendMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend)
	}
	if c.Store.PageSize <= 0 {
		return fmt.Errorf("LIST_PAGE_SIZE must be positive")
	}
	if c.AWS.UploadsBucket == "" {
		return fmt.Errorf("UPLOADS_BUCKET is required")
	}
	if c.AWS.OutputsBucket == "" {
		return fmt.Errorf("OUTPUTS_BUCKET is required")
	}
	if c.AWS.UploadExpireSec <= 0 {
		return fmt.Errorf("UPLOAD_URL_EXPIRE_SEC must be positive")
	}
	if c.Transcode.RoleARN == "" {
		return fmt.Errorf("MEDIACONVERT_ROLE_ARN is required")
	}
	if c.Transcode.JobTemplate == "" {
		return fmt.Errorf("MEDIACONVERT_JOB_TEMPLATE is required")
	}
	if c.Delivery.Origin == "" {
		return fmt.Errorf("DELIVERY_ORIGIN is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
