package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(EnvDataDir, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "10000", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "Europe/Paris", cfg.Timezone)
	assert.Equal(t, GracefulShutdown, cfg.ShutdownTimeout)
	assert.Equal(t, []string{"gemini", "groq"}, cfg.LLMProviders)
	assert.False(t, cfg.R2Enabled)
	assert.False(t, cfg.HasLLMProvider())
	assert.Empty(t, cfg.BetterStackToken)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv(EnvDataDir, t.TempDir())
	t.Setenv(EnvPort, "8080")
	t.Setenv(EnvLLMProviders, " Groq , ,cerebras")
	t.Setenv(EnvGroqAPIKey, "gsk-test")
	t.Setenv(EnvLLMRateDaily, "50")
	t.Setenv(EnvShutdownTimeout, "5s")
	t.Setenv(EnvBetterStackToken, "token-ignored-when-disabled")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, []string{"groq", "cerebras"}, cfg.LLMProviders)
	assert.Equal(t, 50, cfg.LLMRateDaily)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	assert.True(t, cfg.HasLLMProvider())
	assert.Empty(t, cfg.BetterStackToken)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:            "10000",
			DataDir:         "/tmp",
			ShutdownTimeout: time.Second,
			Timezone:        "Europe/Paris",
			LLMEnabled:      true,
			LLMProviders:    []string{"gemini"},
			LLMTimeout:      time.Second,
			LLMRateBurst:    1,
		}
	}

	tests := []struct {
		name        string
		mutate      func(c *Config)
		errContains []string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name: "collects every failure",
			mutate: func(c *Config) {
				c.Port = ""
				c.Timezone = "Mars/Olympus"
				c.LLMProviders = []string{"openai"}
			},
			errContains: []string{"PORT is required", "TIMEZONE", "unknown provider \"openai\""},
		},
		{
			name: "r2 enabled without credentials",
			mutate: func(c *Config) {
				c.R2Enabled = true
				c.R2SnapshotInterval = time.Hour
			},
			errContains: []string{"R2_ACCOUNT_ID", "R2 credentials", "R2_BUCKET_NAME"},
		},
		{
			name: "sentry enabled without token",
			mutate: func(c *Config) {
				c.SentryEnabled = true
			},
			errContains: []string{"SENTRY_TOKEN"},
		},
		{
			name: "llm checks skipped when disabled",
			mutate: func(c *Config) {
				c.LLMEnabled = false
				c.LLMRateBurst = 0
				c.LLMProviders = []string{"unknown"}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if len(tt.errContains) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, want := range tt.errContains {
				assert.True(t, strings.Contains(err.Error(), want), "error %q should contain %q", err.Error(), want)
			}
		})
	}
}

func TestPaths(t *testing.T) {
	cfg := &Config{DataDir: "/srv/data", R2AccountID: "abc123"}

	assert.Equal(t, filepath.Join("/srv/data", "classroom.db"), cfg.SQLitePath())
	assert.Equal(t, "https://abc123.r2.cloudflarestorage.com", cfg.R2EndpointURL())

	cfg.R2Endpoint = "http://localhost:9000"
	assert.Equal(t, "http://localhost:9000", cfg.R2EndpointURL())
}
