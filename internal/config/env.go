// Package config defines environment variable keys for configuration.
package config

//nolint:gosec,revive // Environment variable keys are not credentials and do not need per-const comments.
const (
	// Server
	EnvPort            = "CLASSROOM_PORT"
	EnvLogLevel        = "CLASSROOM_LOG_LEVEL"
	EnvShutdownTimeout = "CLASSROOM_SHUTDOWN_TIMEOUT"
	EnvServiceName     = "CLASSROOM_SERVICE_NAME"

	// Data
	EnvDataDir  = "CLASSROOM_DATA_DIR"
	EnvTimezone = "CLASSROOM_TIMEZONE"

	// Metrics
	EnvMetricsUsername = "CLASSROOM_METRICS_USERNAME"
	EnvMetricsPassword = "CLASSROOM_METRICS_PASSWORD"

	// LLM Feature
	EnvLLMEnabled      = "CLASSROOM_LLM_ENABLED"
	EnvLLMProviders    = "CLASSROOM_LLM_PROVIDERS"
	EnvGeminiAPIKey    = "CLASSROOM_GEMINI_API_KEY"
	EnvGroqAPIKey      = "CLASSROOM_GROQ_API_KEY"
	EnvCerebrasAPIKey  = "CLASSROOM_CEREBRAS_API_KEY"
	EnvGeminiModels    = "CLASSROOM_GEMINI_MODELS"
	EnvGroqModels      = "CLASSROOM_GROQ_MODELS"
	EnvCerebrasModels  = "CLASSROOM_CEREBRAS_MODELS"
	EnvLLMRateBurst    = "CLASSROOM_LLM_RATE_BURST"
	EnvLLMRateRefill   = "CLASSROOM_LLM_RATE_REFILL"
	EnvLLMRateDaily    = "CLASSROOM_LLM_RATE_DAILY"
	EnvLLMTimeout      = "CLASSROOM_LLM_TIMEOUT"

	// R2 Snapshot Feature
	EnvR2Enabled          = "CLASSROOM_R2_ENABLED"
	EnvR2AccountID        = "CLASSROOM_R2_ACCOUNT_ID"
	EnvR2Endpoint         = "CLASSROOM_R2_ENDPOINT"
	EnvR2AccessKeyID      = "CLASSROOM_R2_ACCESS_KEY_ID"
	EnvR2SecretAccessKey  = "CLASSROOM_R2_SECRET_ACCESS_KEY"
	EnvR2BucketName       = "CLASSROOM_R2_BUCKET_NAME"
	EnvR2SnapshotKey      = "CLASSROOM_R2_SNAPSHOT_KEY"
	EnvR2ExportPrefix     = "CLASSROOM_R2_EXPORT_PREFIX"
	EnvR2SnapshotInterval = "CLASSROOM_R2_SNAPSHOT_INTERVAL"
	EnvR2LockKey          = "CLASSROOM_R2_LOCK_KEY"

	// Sentry Feature
	EnvSentryEnabled     = "CLASSROOM_SENTRY_ENABLED"
	EnvSentryToken       = "CLASSROOM_SENTRY_TOKEN"
	EnvSentryHost        = "CLASSROOM_SENTRY_HOST"
	EnvSentryEnvironment = "CLASSROOM_SENTRY_ENVIRONMENT"
	EnvSentrySampleRate  = "CLASSROOM_SENTRY_SAMPLE_RATE"

	// Better Stack Feature
	EnvBetterStackEnabled  = "CLASSROOM_BETTERSTACK_ENABLED"
	EnvBetterStackToken    = "CLASSROOM_BETTERSTACK_TOKEN"
	EnvBetterStackEndpoint = "CLASSROOM_BETTERSTACK_ENDPOINT"
)
