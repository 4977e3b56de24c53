// Package config provides configuration loading and management for the toolkit.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	// StakingRewards API credential
	APIKey string

	// GraphQL endpoint and billing status URL
	APIEndpoint string
	BillingURL  string

	// Response cache location; empty disables caching
	CacheDir     string
	CacheEnabled bool

	// Per-request timeout
	RequestTimeout time.Duration

	// Client-side rate limiting toward the upstream API
	RateLimitRPS   float64
	RateLimitBurst int

	// OpenTelemetry endpoint for observability
	OtelEndpoint string
}

// Load creates a new Config from environment variables
func Load() Config {
	return Config{
		APIKey:         GetEnvOrDefault("X_API_KEY", ""),
		APIEndpoint:    GetEnvOrDefault("SR_API_ENDPOINT", "https://api.stakingrewards.com/public/query"),
		BillingURL:     GetEnvOrDefault("SR_BILLING_URL", "https://api.stakingrewards.com/public/billing/status"),
		CacheDir:       GetEnvOrDefault("SR_CACHE_DIR", "api_response_cache"),
		CacheEnabled:   GetEnvAsBool("SR_CACHE_ENABLED", true),
		RequestTimeout: GetEnvAsDuration("REQUEST_TIMEOUT", 30*time.Second),
		RateLimitRPS:   GetEnvAsFloat("RATE_LIMIT_RPS", 5.0),
		RateLimitBurst: GetEnvAsInt("RATE_LIMIT_BURST", 10),
		OtelEndpoint:   GetEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}
}

// GetEnv retrieves an environment variable and whether it exists
func GetEnv(key string) (string, bool) {
	value, exists := os.LookupEnv(key)
	return value, exists
}

// GetEnvOrDefault retrieves an environment variable or returns the default value if not set
func GetEnvOrDefault(key, defaultValue string) string {
	if value, exists := GetEnv(key); exists {
		return value
	}
	return defaultValue
}

// GetEnvAsInt retrieves an environment variable as an integer with a default value
func GetEnvAsInt(key string, defaultValue int) int {
	if value, exists := GetEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// GetEnvAsFloat retrieves an environment variable as a float with a default value
func GetEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := GetEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// GetEnvAsBool retrieves an environment variable as a boolean with a default value
func GetEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := GetEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// GetEnvAsDuration retrieves an environment variable as a duration with a default value
func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := GetEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
