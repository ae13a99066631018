// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/aristath/trading212/pkg/trading212"
	"github.com/joho/godotenv"
)

// Config holds CLI configuration
type Config struct {
	Username        string
	Password        string
	AccountType     string // demo or live
	TradingType     string // cfd or equity
	SessionTTL      time.Duration
	RateLimitCalls  int
	RateLimitWindow time.Duration
	HTTPTimeout     time.Duration
	LogLevel        string
	LogPretty       bool
}

// Load reads configuration from a .env file (if present) and environment variables
func Load() (*Config, error) {
	// Missing .env is fine
	_ = godotenv.Load()

	cfg := &Config{
		Username:        getEnv("T212_USERNAME", ""),
		Password:        getEnv("T212_PASSWORD", ""),
		AccountType:     getEnv("T212_ACCOUNT_TYPE", string(trading212.AccountDemo)),
		TradingType:     getEnv("T212_TRADING_TYPE", string(trading212.TradingCFD)),
		SessionTTL:      getEnvAsDuration("T212_SESSION_TTL", trading212.DefaultSessionTTL),
		RateLimitCalls:  getEnvAsInt("T212_RATE_LIMIT_CALLS", trading212.DefaultRateLimitCalls),
		RateLimitWindow: getEnvAsDuration("T212_RATE_LIMIT_WINDOW", trading212.DefaultRateLimitWindow),
		HTTPTimeout:     getEnvAsDuration("T212_HTTP_TIMEOUT", trading212.DefaultHTTPTimeout),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogPretty:       getEnvAsBool("LOG_PRETTY", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks enums and limits. Credentials are checked by RequireCredentials
// so commands that never log in can run without them.
func (c *Config) Validate() error {
	if _, err := trading212.ParseAccountType(c.AccountType); err != nil {
		return fmt.Errorf("T212_ACCOUNT_TYPE: %w", err)
	}
	if _, err := trading212.ParseTradingType(c.TradingType); err != nil {
		return fmt.Errorf("T212_TRADING_TYPE: %w", err)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("T212_SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	if c.RateLimitCalls <= 0 {
		return fmt.Errorf("T212_RATE_LIMIT_CALLS must be positive, got %d", c.RateLimitCalls)
	}
	if c.RateLimitWindow <= 0 {
		return fmt.Errorf("T212_RATE_LIMIT_WINDOW must be positive, got %s", c.RateLimitWindow)
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("T212_HTTP_TIMEOUT must not be negative, got %s", c.HTTPTimeout)
	}
	return nil
}

// RequireCredentials fails when username or password is missing.
func (c *Config) RequireCredentials() error {
	if c.Username == "" || c.Password == "" {
		return fmt.Errorf("T212_USERNAME and T212_PASSWORD are required")
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
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("90s", "5m") or bare seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
