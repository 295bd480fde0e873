// Package config provides application configuration management.
// It loads settings from environment variables (optionally from a .env file)
// and validates them before the application starts.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // Embedded zone database for minimal container images

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server Configuration
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration
	ServiceName     string

	// Data Configuration
	DataDir  string // Data directory for the SQLite database
	Timezone string // IANA zone used to resolve "today" (default: Europe/Paris)

	// Metrics Authentication
	MetricsUsername string // Username for /metrics Basic Auth (default: "prometheus")
	MetricsPassword string // Password for /metrics Basic Auth (empty = no auth)

	// LLM Configuration
	LLMEnabled     bool
	LLMProviders   []string // Provider order, e.g. ["gemini", "groq"]
	GeminiAPIKey   string
	GroqAPIKey     string
	CerebrasAPIKey string
	GeminiModels   []string // Empty = package defaults
	GroqModels     []string
	CerebrasModels []string
	LLMTimeout     time.Duration

	// Appreciation rate limits, per teacher
	LLMRateBurst  float64 // Maximum burst tokens (default: 20)
	LLMRateRefill float64 // Tokens refilled per hour (default: 30)
	LLMRateDaily  int     // Maximum requests per rolling 24h (default: 200, 0 = disabled)

	// R2 Snapshot Configuration
	R2Enabled          bool
	R2AccountID        string
	R2Endpoint         string // Overrides the endpoint derived from R2AccountID
	R2AccessKeyID      string
	R2SecretAccessKey  string
	R2BucketName       string
	R2SnapshotKey      string
	R2ExportPrefix     string
	R2SnapshotInterval time.Duration
	R2LockKey          string // Guards snapshot uploads across instances

	// Sentry Configuration
	SentryEnabled     bool
	SentryToken       string
	SentryHost        string
	SentryEnvironment string
	SentrySampleRate  float64

	// Better Stack Configuration
	BetterStackToken    string
	BetterStackEndpoint string
}

// Load reads configuration from environment variables
// It attempts to load .env file first, then reads from env vars
func Load() (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv(EnvPort, "10000"),
		LogLevel:        getEnv(EnvLogLevel, "info"),
		ShutdownTimeout: getDurationEnv(EnvShutdownTimeout, GracefulShutdown),
		ServiceName:     getEnv(EnvServiceName, "classroom-planner"),

		DataDir:  getEnv(EnvDataDir, getDefaultDataDir()),
		Timezone: getEnv(EnvTimezone, "Europe/Paris"),

		MetricsUsername: getEnv(EnvMetricsUsername, "prometheus"),
		MetricsPassword: getEnv(EnvMetricsPassword, ""),

		LLMEnabled:     getBoolEnv(EnvLLMEnabled, true),
		LLMProviders:   getListEnv(EnvLLMProviders, []string{"gemini", "groq"}),
		GeminiAPIKey:   getEnv(EnvGeminiAPIKey, ""),
		GroqAPIKey:     getEnv(EnvGroqAPIKey, ""),
		CerebrasAPIKey: getEnv(EnvCerebrasAPIKey, ""),
		GeminiModels:   getListEnv(EnvGeminiModels, nil),
		GroqModels:     getListEnv(EnvGroqModels, nil),
		CerebrasModels: getListEnv(EnvCerebrasModels, nil),
		LLMTimeout:     getDurationEnv(EnvLLMTimeout, AppreciationRequest),

		LLMRateBurst:  getFloatEnv(EnvLLMRateBurst, 20),
		LLMRateRefill: getFloatEnv(EnvLLMRateRefill, 30),
		LLMRateDaily:  getIntEnv(EnvLLMRateDaily, 200),

		R2Enabled:          getBoolEnv(EnvR2Enabled, false),
		R2AccountID:        getEnv(EnvR2AccountID, ""),
		R2Endpoint:         getEnv(EnvR2Endpoint, ""),
		R2AccessKeyID:      getEnv(EnvR2AccessKeyID, ""),
		R2SecretAccessKey:  getEnv(EnvR2SecretAccessKey, ""),
		R2BucketName:       getEnv(EnvR2BucketName, ""),
		R2SnapshotKey:      getEnv(EnvR2SnapshotKey, "snapshots/classroom.db.zst"),
		R2ExportPrefix:     getEnv(EnvR2ExportPrefix, "exports"),
		R2SnapshotInterval: getDurationEnv(EnvR2SnapshotInterval, DefaultSnapshotInterval),
		R2LockKey:          getEnv(EnvR2LockKey, "locks/snapshot.lock"),

		SentryEnabled:     getBoolEnv(EnvSentryEnabled, false),
		SentryToken:       getEnv(EnvSentryToken, ""),
		SentryHost:        getEnv(EnvSentryHost, ""),
		SentryEnvironment: getEnv(EnvSentryEnvironment, "production"),
		SentrySampleRate:  getFloatEnv(EnvSentrySampleRate, 1.0),
	}

	if getBoolEnv(EnvBetterStackEnabled, false) {
		cfg.BetterStackToken = getEnv(EnvBetterStackToken, "")
		cfg.BetterStackEndpoint = getEnv(EnvBetterStackEndpoint, "")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if required configuration values are set
func (c *Config) Validate() error {
	var errs []error

	if c.Port == "" {
		errs = append(errs, errors.New("PORT is required"))
	}
	if c.DataDir == "" {
		errs = append(errs, errors.New("DATA_DIR is required"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("SHUTDOWN_TIMEOUT must be positive, got %v", c.ShutdownTimeout))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE %q is invalid: %w", c.Timezone, err))
	}

	if c.LLMEnabled {
		if c.LLMTimeout <= 0 {
			errs = append(errs, fmt.Errorf("LLM_TIMEOUT must be positive, got %v", c.LLMTimeout))
		}
		if c.LLMRateBurst <= 0 {
			errs = append(errs, fmt.Errorf("LLM_RATE_BURST must be positive, got %v", c.LLMRateBurst))
		}
		if c.LLMRateRefill < 0 {
			errs = append(errs, fmt.Errorf("LLM_RATE_REFILL cannot be negative, got %v", c.LLMRateRefill))
		}
		if c.LLMRateDaily < 0 {
			errs = append(errs, fmt.Errorf("LLM_RATE_DAILY cannot be negative, got %d", c.LLMRateDaily))
		}
		for _, p := range c.LLMProviders {
			switch p {
			case "gemini", "groq", "cerebras":
			default:
				errs = append(errs, fmt.Errorf("LLM_PROVIDERS contains unknown provider %q", p))
			}
		}
	}

	if c.R2Enabled {
		if c.R2AccountID == "" && c.R2Endpoint == "" {
			errs = append(errs, errors.New("R2_ACCOUNT_ID or R2_ENDPOINT is required when R2 is enabled"))
		}
		if c.R2AccessKeyID == "" || c.R2SecretAccessKey == "" {
			errs = append(errs, errors.New("R2 credentials are required when R2 is enabled"))
		}
		if c.R2BucketName == "" {
			errs = append(errs, errors.New("R2_BUCKET_NAME is required when R2 is enabled"))
		}
		if c.R2SnapshotInterval <= 0 {
			errs = append(errs, fmt.Errorf("R2_SNAPSHOT_INTERVAL must be positive, got %v", c.R2SnapshotInterval))
		}
	}

	if c.SentryEnabled && (c.SentryToken == "" || c.SentryHost == "") {
		errs = append(errs, errors.New("SENTRY_TOKEN and SENTRY_HOST are required when Sentry is enabled"))
	}
	if c.SentrySampleRate < 0 || c.SentrySampleRate > 1 {
		errs = append(errs, fmt.Errorf("SENTRY_SAMPLE_RATE must be within [0, 1], got %v", c.SentrySampleRate))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv retrieves integer environment variable with fallback to default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getFloatEnv retrieves float64 environment variable with fallback to default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getBoolEnv retrieves boolean environment variable with fallback to default value
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getDurationEnv retrieves duration environment variable with fallback to default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getListEnv splits a comma-separated variable, dropping blanks.
func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, strings.ToLower(item))
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}

// getDefaultDataDir returns platform-specific default data directory
func getDefaultDataDir() string {
	if runtime.GOOS == "windows" {
		return "./data"
	}
	return "/data"
}

// SQLitePath returns the full path to the SQLite database file
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "classroom.db")
}

// HasLLMProvider returns true if LLM is enabled and at least one provider has a key.
func (c *Config) HasLLMProvider() bool {
	if !c.LLMEnabled {
		return false
	}
	return c.GeminiAPIKey != "" || c.GroqAPIKey != "" || c.CerebrasAPIKey != ""
}

// R2EndpointURL returns the S3-compatible endpoint for R2.
func (c *Config) R2EndpointURL() string {
	if c.R2Endpoint != "" {
		return c.R2Endpoint
	}
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.R2AccountID)
}
