package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:            "5000",
		Env:             "development",
		JWTSecret:       "secure-secret-at-least-32-chars-long",
		DBPassword:      "secure-password",
		DBSSLMode:       "require",
		DBSchemaMode:    "hybrid",
		DBRetryAttempts: 3,
		CacheUserSize:   500,
		CacheListSize:   200,
		CacheItemSize:   1000,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"valid development", func(c *Config) {}, false},
		{"missing port", func(c *Config) { c.Port = "" }, true},
		{"no secret and no jwks", func(c *Config) { c.JWTSecret = "" }, true},
		{"jwks without secret", func(c *Config) { c.JWTSecret = ""; c.JWKSURL = "https://idp.example.com/.well-known/jwks.json" }, false},
		{"unknown schema mode", func(c *Config) { c.DBSchemaMode = "magic" }, true},
		{"zero retry attempts", func(c *Config) { c.DBRetryAttempts = 0 }, true},
		{"zero cache size", func(c *Config) { c.CacheItemSize = 0 }, true},
		{"production default secret", func(c *Config) { c.Env = "production"; c.JWTSecret = DefaultJWTSecret }, true},
		{"production short secret", func(c *Config) { c.Env = "prod"; c.JWTSecret = "short" }, true},
		{"production weak db password", func(c *Config) { c.Env = "production"; c.DBPassword = "password" }, true},
		{"production database url skips password check", func(c *Config) {
			c.Env = "production"
			c.DBPassword = ""
			c.DatabaseURL = "postgres://u:p@db/contentflow"
		}, false},
		{"production google without state secret", func(c *Config) {
			c.Env = "production"
			c.GoogleClientID = "id"
			c.GoogleClientSecret = "secret"
		}, true},
		{"production google with state secret", func(c *Config) {
			c.Env = "production"
			c.GoogleClientID = "id"
			c.GoogleClientSecret = "secret"
			c.GoogleStateSecret = "state-secret"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_StateSecretFallsBackToSessionSecret(t *testing.T) {
	c := validConfig()
	assert.Equal(t, c.JWTSecret, c.StateSecret())

	c.GoogleStateSecret = "dedicated"
	assert.Equal(t, "dedicated", c.StateSecret())
}

func TestConfig_DSN(t *testing.T) {
	c := validConfig()
	c.DBHost = "db"
	c.DBUser = "app"
	c.DBName = "contentflow"
	c.DBPort = "5432"
	assert.Equal(t, "host=db user=app password=secure-password dbname=contentflow port=5432 sslmode=require", c.DSN())

	c.DatabaseURL = "postgres://app@db/contentflow"
	assert.Equal(t, "postgres://app@db/contentflow", c.DSN())
}

func TestLoadConfig_DefaultsAndNormalization(t *testing.T) {
	defer viper.Reset()

	t.Setenv("APP_ENV", "development")
	t.Setenv("DB_SSLMODE", "  DISABLE  ")
	t.Setenv("CACHE_LIST_TTL", "90s")

	c, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, 500, c.CacheUserSize)
	assert.Equal(t, 10*time.Minute, c.CacheUserTTL)
	assert.Equal(t, 90*time.Second, c.CacheListTTL)
	assert.Equal(t, 1000, c.CacheItemSize)
	assert.Equal(t, 5*time.Minute, c.CacheItemTTL)
	assert.Equal(t, 30*time.Minute, c.CacheReportInterval)
	assert.Equal(t, 3, c.DBRetryAttempts)
	assert.Equal(t, "hybrid", c.DBSchemaMode)
}
