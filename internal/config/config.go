package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Environment is "development" or "production"; it controls the Secure
	// flag on the session cookie
	Environment string

	// Database Configuration
	Database DatabaseConfig

	// Redis Configuration
	Redis RedisConfig

	// Auth Configuration
	Auth AuthConfig

	// Logging Configuration
	Logging LoggingConfig

	// SeedFile is an optional YAML catalog of categories and events loaded
	// at startup
	SeedFile string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Address string // Redis address (host:port)
}

// AuthConfig holds token signing and OTP configuration
type AuthConfig struct {
	// TokenSecret signs session tokens. It is mandatory: the process refuses
	// to start without it rather than falling back to a built-in value.
	TokenSecret string

	// TokenLifetime is the single session token lifetime. The cookie max-age
	// is fixed at 30 days; the (usually shorter) token expiry governs.
	TokenLifetime time.Duration

	// OTPMode selects the code verifier: "fixed" (constant code, the default)
	// or "store" (random code held in an expiring store, delivered by the
	// worker)
	OTPMode string

	// OTPCode is the expected code in fixed mode
	OTPCode string

	// OTPLifetime is how long a store-issued code stays valid
	OTPLifetime time.Duration
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	environment := os.Getenv("ENVIRONMENT")
	if environment == "" {
		environment = "development"
	}

	// Database URL - default to ticketbay.sqlite, allow override for dev
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		dbURL = "ticketbay.sqlite"
	}

	// Redis address - default to localhost:6379, allow override for dev/docker
	redisAddr := os.Getenv("REDIS_ADDRESS")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	// Token secret is required; there is deliberately no default
	tokenSecret := os.Getenv("TOKEN_SECRET")
	if tokenSecret == "" {
		return nil, fmt.Errorf("TOKEN_SECRET is not set; refusing to start without a signing secret")
	}

	tokenLifetime := 24 * time.Hour
	if v := os.Getenv("TOKEN_LIFETIME"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid TOKEN_LIFETIME %q: %w", v, err)
		}
		tokenLifetime = d
	}

	otpMode := os.Getenv("OTP_MODE")
	if otpMode == "" {
		otpMode = "fixed"
	}
	if otpMode != "fixed" && otpMode != "store" {
		return nil, fmt.Errorf("invalid OTP_MODE %q: must be \"fixed\" or \"store\"", otpMode)
	}

	otpCode := os.Getenv("OTP_CODE")
	if otpCode == "" {
		otpCode = "123456"
	}

	otpLifetime := 5 * time.Minute
	if v := os.Getenv("OTP_LIFETIME"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid OTP_LIFETIME %q: %w", v, err)
		}
		otpLifetime = d
	}

	// Logging configuration - defaults suitable for production
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	logFormat := os.Getenv("LOG_FORMAT")
	if logFormat == "" {
		logFormat = "json"
	}

	return &Config{
		Environment: environment,
		Database: DatabaseConfig{
			URL: dbURL,
		},
		Redis: RedisConfig{
			Address: redisAddr,
		},
		Auth: AuthConfig{
			TokenSecret:   tokenSecret,
			TokenLifetime: tokenLifetime,
			OTPMode:       otpMode,
			OTPCode:       otpCode,
			OTPLifetime:   otpLifetime,
		},
		Logging: LoggingConfig{
			Level:  logLevel,
			Format: logFormat,
		},
		SeedFile: os.Getenv("SEED_FILE"),
	}, nil
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
