package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
	"podgraph/backend/internal/constants"
	perrors "podgraph/backend/pkg/errors"
)

// Config holds all application configuration
type Config struct {
	// App
	Port     string
	Env      string
	LogLevel string

	// Pod access
	ProxyURL      string // Base URL of the URI-rewriting proxy; empty talks to pods directly
	SessionCookie string // Cookie header value sent with every request

	// Identity, handed in by the session layer
	WebID   string
	Storage string

	// Traversal
	FetchTimeout         time.Duration
	MaxConcurrentFetches int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 getEnv("PORT", "8080"),
		Env:                  getEnv("ENV", "development"),
		LogLevel:             getEnv("LOG_LEVEL", ""),
		ProxyURL:             getEnv("PROXY_URL", ""),
		SessionCookie:        getEnv("SESSION_COOKIE", ""),
		WebID:                getEnv("WEBID", ""),
		Storage:              getEnv("STORAGE", ""),
		FetchTimeout:         getEnvDuration("FETCH_TIMEOUT", constants.DefaultFetchTimeoutSeconds*time.Second),
		MaxConcurrentFetches: getEnvInt("MAX_CONCURRENT_FETCHES", constants.DefaultMaxConcurrentFetches),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that configured values are usable. WEBID and STORAGE are
// optional: without them only read operations on explicit URIs work.
func (c *Config) Validate() error {
	if c.Port == "" {
		return perrors.NewConfigMissingRequired("PORT")
	}
	if c.ProxyURL != "" {
		if err := checkAbsoluteURL(c.ProxyURL); err != nil {
			return perrors.NewConfigValidationFailed("PROXY_URL", err.Error())
		}
	}
	if c.WebID != "" {
		if err := checkAbsoluteURL(c.WebID); err != nil {
			return perrors.NewConfigValidationFailed("WEBID", err.Error())
		}
	}
	if c.Storage != "" {
		if err := checkAbsoluteURL(c.Storage); err != nil {
			return perrors.NewConfigValidationFailed("STORAGE", err.Error())
		}
	}
	if c.FetchTimeout <= 0 {
		return perrors.NewConfigValidationFailed("FETCH_TIMEOUT", "must be positive")
	}
	if c.MaxConcurrentFetches < 1 {
		return perrors.NewConfigValidationFailed("MAX_CONCURRENT_FETCHES", "must be at least 1")
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// HasIdentity reports whether a current user has been configured
func (c *Config) HasIdentity() bool {
	return c.WebID != ""
}

func checkAbsoluteURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%q is not an absolute URL", raw)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
