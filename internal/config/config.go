// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultJWTSecret is the development session secret; production refuses it.
const DefaultJWTSecret = "your-secret-key-change-in-production"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port           string `mapstructure:"PORT"`
	Env            string `mapstructure:"APP_ENV"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`
	FeatureFlags   string `mapstructure:"FEATURE_FLAGS"`
	AppBaseURL     string `mapstructure:"APP_BASE_URL"`

	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	DBHost       string `mapstructure:"DB_HOST"`
	DBPort       string `mapstructure:"DB_PORT"`
	DBUser       string `mapstructure:"DB_USER"`
	DBPassword   string `mapstructure:"DB_PASSWORD"`
	DBName       string `mapstructure:"DB_NAME"`
	DBSSLMode    string `mapstructure:"DB_SSLMODE"`
	DBSchemaMode string `mapstructure:"DB_SCHEMA_MODE"`

	DBRetryAttempts int           `mapstructure:"DB_RETRY_ATTEMPTS"`
	DBRetryDelay    time.Duration `mapstructure:"DB_RETRY_DELAY"`

	RedisURL string `mapstructure:"REDIS_URL"`

	// Session tokens are verified with the shared secret, or against the
	// identity provider's JWKS when AUTH_JWKS_URL is set.
	JWTSecret  string `mapstructure:"AUTH_JWT_SECRET"`
	JWKSURL    string `mapstructure:"AUTH_JWKS_URL"`
	AuthIssuer string `mapstructure:"AUTH_ISSUER"`

	IdentityAPIURL    string `mapstructure:"IDENTITY_API_URL"`
	IdentitySecretKey string `mapstructure:"IDENTITY_SECRET_KEY"`

	GoogleClientID     string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURI  string `mapstructure:"GOOGLE_REDIRECT_URI"`
	GoogleStateSecret  string `mapstructure:"GOOGLE_STATE_SECRET"`

	CacheUserSize       int           `mapstructure:"CACHE_USER_SIZE"`
	CacheUserTTL        time.Duration `mapstructure:"CACHE_USER_TTL"`
	CacheListSize       int           `mapstructure:"CACHE_LIST_SIZE"`
	CacheListTTL        time.Duration `mapstructure:"CACHE_LIST_TTL"`
	CacheItemSize       int           `mapstructure:"CACHE_ITEM_SIZE"`
	CacheItemTTL        time.Duration `mapstructure:"CACHE_ITEM_TTL"`
	CacheReportInterval time.Duration `mapstructure:"CACHE_REPORT_INTERVAL"`

	SentryDSN           string  `mapstructure:"SENTRY_DSN"`
	TracingEnabled      bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter     string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint        string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSamplerRatio float64 `mapstructure:"TRACING_SAMPLER_RATIO"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base file is optional; defaults and env cover a bare checkout.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("PORT", "5000")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173")
	viper.SetDefault("FEATURE_FLAGS", "google_calendar=on")
	viper.SetDefault("APP_BASE_URL", "http://localhost:5173")

	viper.SetDefault("DATABASE_URL", "")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "contentflow")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_SCHEMA_MODE", "hybrid")
	viper.SetDefault("DB_RETRY_ATTEMPTS", 3)
	viper.SetDefault("DB_RETRY_DELAY", "1s")

	viper.SetDefault("REDIS_URL", "localhost:6379")

	viper.SetDefault("AUTH_JWT_SECRET", DefaultJWTSecret)
	viper.SetDefault("AUTH_JWKS_URL", "")
	viper.SetDefault("AUTH_ISSUER", "")
	viper.SetDefault("IDENTITY_API_URL", "https://api.clerk.com/v1")
	viper.SetDefault("IDENTITY_SECRET_KEY", "")

	viper.SetDefault("GOOGLE_CLIENT_ID", "")
	viper.SetDefault("GOOGLE_CLIENT_SECRET", "")
	viper.SetDefault("GOOGLE_REDIRECT_URI", "http://localhost:5000/api/google/callback")
	viper.SetDefault("GOOGLE_STATE_SECRET", "")

	viper.SetDefault("CACHE_USER_SIZE", 500)
	viper.SetDefault("CACHE_USER_TTL", "10m")
	viper.SetDefault("CACHE_LIST_SIZE", 200)
	viper.SetDefault("CACHE_LIST_TTL", "2m")
	viper.SetDefault("CACHE_ITEM_SIZE", 1000)
	viper.SetDefault("CACHE_ITEM_TTL", "5m")
	viper.SetDefault("CACHE_REPORT_INTERVAL", "30m")

	viper.SetDefault("SENTRY_DSN", "")
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLER_RATIO", 1.0)
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.DBSSLMode = strings.ToLower(strings.TrimSpace(c.DBSSLMode))
	c.DBSchemaMode = strings.ToLower(strings.TrimSpace(c.DBSchemaMode))
	c.AppBaseURL = strings.TrimRight(strings.TrimSpace(c.AppBaseURL), "/")
	c.IdentityAPIURL = strings.TrimRight(strings.TrimSpace(c.IdentityAPIURL), "/")
}

// IsProduction reports whether the production rules apply.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// GoogleEnabled reports whether Google OAuth credentials are configured.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// StateSecret returns the key used to sign OAuth state, falling back to the
// session secret.
func (c *Config) StateSecret() string {
	if c.GoogleStateSecret != "" {
		return c.GoogleStateSecret
	}
	return c.JWTSecret
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" && c.JWKSURL == "" {
		return errors.New("one of AUTH_JWT_SECRET or AUTH_JWKS_URL is required")
	}
	switch c.DBSchemaMode {
	case "", "hybrid", "sql", "auto":
	default:
		return fmt.Errorf("DB_SCHEMA_MODE must be one of hybrid, sql, auto (got %q)", c.DBSchemaMode)
	}
	if c.DBRetryAttempts < 1 {
		return errors.New("DB_RETRY_ATTEMPTS must be at least 1")
	}
	if c.CacheUserSize < 1 || c.CacheListSize < 1 || c.CacheItemSize < 1 {
		return errors.New("cache sizes must be positive")
	}

	if c.IsProduction() {
		if c.JWKSURL == "" {
			if c.JWTSecret == DefaultJWTSecret {
				return errors.New("AUTH_JWT_SECRET must be changed from the default value in production")
			}
			if len(c.JWTSecret) < 32 {
				return errors.New("AUTH_JWT_SECRET must be at least 32 characters in production")
			}
		}
		if c.DatabaseURL == "" && (c.DBPassword == "password" || c.DBPassword == "") {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.GoogleEnabled() && c.GoogleStateSecret == "" {
			return errors.New("GOOGLE_STATE_SECRET is required in production when Google Calendar is configured")
		}
		if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
			log.Println("WARNING: DB_SSLMODE is 'disable' in production. It is highly recommended to use SSL for database connections.")
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if c.JWKSURL == "" && len(c.JWTSecret) < 32 {
		log.Println("WARNING: AUTH_JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}

// DSN returns the Postgres connection string.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode)
}
