// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	Email       EmailConfig
	Geo         GeoConfig
	Jobs        JobsConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int
}

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	LogLevel     string
}

// DSN renders the keyword/value connection string for the postgres driver.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

type JWTConfig struct {
	SecretKey       string
	AccessTokenTTL  int // in hours
	RefreshTokenTTL int // in hours
}

type EmailConfig struct {
	ResendAPIKey string
	FromEmail    string
	FromName     string
}

type GeoConfig struct {
	ForwardEndpoint string // templated with {ip}
	ReverseEndpoint string
	APIKey          string
	RequestTimeout  int // seconds
	MaxLookupWait   int // seconds, total wall clock per lookup
	RetrySleep      int // seconds between retries on 429/5xx
}

type JobsConfig struct {
	BackfillInterval  int // minutes
	BackfillLockTTL   int // minutes, must exceed the interval
	CleanupInterval   int // hours
	ViewRetentionDays int
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "localhost"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:  getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "homedar"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "silent"),
		},
		JWT: JWTConfig{
			SecretKey:       getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			AccessTokenTTL:  getEnvAsInt("JWT_ACCESS_TTL", 24),   // 24 hours
			RefreshTokenTTL: getEnvAsInt("JWT_REFRESH_TTL", 168), // 7 days
		},
		Email: EmailConfig{
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
			FromEmail:    getEnv("FROM_EMAIL", "noreply@homedar.com"),
			FromName:     getEnv("FROM_NAME", "HomeDar"),
		},
		Geo: GeoConfig{
			ForwardEndpoint: getEnv("IP_GEO_ENDPOINT", "https://ipapi.co/{ip}/json/"),
			ReverseEndpoint: getEnv("REVERSE_GEO_ENDPOINT", "https://nominatim.openstreetmap.org/reverse"),
			APIKey:          getEnv("IP_GEO_API_KEY", ""),
			RequestTimeout:  getEnvAsInt("GEO_REQUEST_TIMEOUT", 5),
			MaxLookupWait:   getEnvAsInt("GEO_MAX_LOOKUP_WAIT", 60),
			RetrySleep:      getEnvAsInt("GEO_RETRY_SLEEP", 1),
		},
		Jobs: JobsConfig{
			BackfillInterval:  getEnvAsInt("BACKFILL_INTERVAL_MINUTES", 5),
			BackfillLockTTL:   getEnvAsInt("BACKFILL_LOCK_TTL_MINUTES", 15),
			CleanupInterval:   getEnvAsInt("CLEANUP_INTERVAL_HOURS", 24),
			ViewRetentionDays: getEnvAsInt("VIEW_RETENTION_DAYS", 30),
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	if c.JWT.SecretKey == "your-secret-key-change-in-production" && c.Environment == "production" {
		return fmt.Errorf("JWT secret key must be changed in production")
	}

	if c.Database.Password == "" && c.Environment == "production" {
		return fmt.Errorf("database password is required in production")
	}

	if c.Jobs.BackfillLockTTL <= c.Jobs.BackfillInterval {
		return fmt.Errorf("backfill lock TTL must exceed the backfill interval")
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.ToLower(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
