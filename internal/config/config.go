package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort  string
	AppEnv   string
	LogLevel string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	// VCCSURL is the verification service base URL. Empty selects the
	// in-process bcrypt service, which is refused outside development.
	VCCSURL     string
	VCCSTimeout time.Duration

	SyncTopicARN string

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration

	SMTPHost     string // empty disables mail and password recovery
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	PasswordMinLength  int
	PasswordMinEntropy float64 // zxcvbn entropy in bits, 0 disables the check

	RecoveryCodeTTL     time.Duration
	RecoveryMaxAttempts int

	AllowedOrigins []string // CORS allowed origins

	OTLPEndpoint string
	StatsPrefix  string
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users         string
	Verifications string
}

// IsDevelopment reports whether the service runs with development defaults.
func (c *Config) IsDevelopment() bool { return c.AppEnv == "development" }

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:        getEnv("APP_PORT", "3000"),
		AppEnv:         getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Users:         getEnv("DYNAMO_TABLE_USERS", "users"),
			Verifications: getEnv("DYNAMO_TABLE_USER_VERIFICATIONS", "user_verifications"),
		},
		VCCSURL:             getEnv("VCCS_URL", ""),
		VCCSTimeout:         getEnvDuration("VCCS_TIMEOUT", 5*time.Second),
		SyncTopicARN:        getEnv("SYNC_TOPIC_ARN", ""),
		JWTPrivateKeyPath:   getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:    getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:           getEnvDuration("JWT_EXPIRY", 24*time.Hour),
		SMTPHost:            getEnv("SMTP_HOST", ""),
		SMTPPort:            getEnv("SMTP_PORT", "1025"),
		SMTPFrom:            getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername:        getEnv("SMTP_USERNAME", ""),
		SMTPPassword:        getEnv("SMTP_PASSWORD", ""),
		PasswordMinLength:   getEnvInt("PASSWORD_MIN_LENGTH", 10),
		PasswordMinEntropy:  getEnvFloat("PASSWORD_MIN_ENTROPY", 25),
		RecoveryCodeTTL:     getEnvDuration("RECOVERY_CODE_TTL", 15*time.Minute),
		RecoveryMaxAttempts: getEnvInt("RECOVERY_MAX_ATTEMPTS", 5),
		AllowedOrigins:      strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		OTLPEndpoint:        getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		StatsPrefix:         getEnv("STATS_PREFIX", "credentials"),
	}
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

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
