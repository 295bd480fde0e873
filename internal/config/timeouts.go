// Package config provides centralized timeout constants for the application.
//
// Session generation and period planning are in-memory computations bounded
// by the number of weeks in a school year, so the request budget is
// dominated by SQLite writes and, for appreciations, LLM latency.
package config

import "time"

// HTTP server timeouts
const (
	// HTTPRead is the HTTP server read timeout. Requests are small JSON bodies.
	HTTPRead = 10 * time.Second

	// HTTPWrite is the HTTP server write timeout.
	// Must cover AppreciationRequest plus response serialization.
	HTTPWrite = 65 * time.Second

	// HTTPIdle is the HTTP server idle timeout for keep-alive connections.
	HTTPIdle = 120 * time.Second

	// ReadinessCheckTimeout bounds the database ping behind /readyz.
	ReadinessCheckTimeout = 3 * time.Second
)

// Database timeouts
const (
	// DatabaseBusyTimeout is SQLite busy_timeout pragma value.
	// Materializing a school year replaces a few thousand rows in one transaction.
	DatabaseBusyTimeout = 30 * time.Second

	// DatabaseConnMaxLifetime is the maximum lifetime of database connections.
	DatabaseConnMaxLifetime = time.Hour
)

// Planning timeouts
const (
	// MaterializeYear bounds one school-year materialization, shared by every
	// caller waiting on the same teacher and year.
	MaterializeYear = 30 * time.Second
)

// LLM timeouts
const (
	// AppreciationRequest is the default budget for generating one appreciation,
	// retries and provider fallback included.
	AppreciationRequest = 60 * time.Second

	// LLMRetryInitial is the initial backoff between attempts on one provider.
	LLMRetryInitial = 500 * time.Millisecond

	// LLMRetryMax caps the backoff between attempts.
	LLMRetryMax = 8 * time.Second
)

// Snapshot timeouts
const (
	// SnapshotUpload bounds a compressed snapshot upload to R2.
	SnapshotUpload = 5 * time.Minute

	// SnapshotRestore bounds the startup download of the latest snapshot.
	SnapshotRestore = 2 * time.Minute

	// ExportUpload bounds the upload of one school-year schedule export.
	ExportUpload = 30 * time.Second

	// SnapshotLockTTL is how long an instance may hold the upload lock
	// before another one can take it over.
	SnapshotLockTTL = 10 * time.Minute
)

// Background job intervals
const (
	// MetricsUpdateInterval is how often the rate limiter gauges are refreshed.
	MetricsUpdateInterval = 5 * time.Minute

	// RateLimiterCleanupInterval is how often inactive per-teacher limiters are dropped.
	RateLimiterCleanupInterval = 5 * time.Minute

	// DefaultSnapshotInterval is how often the database is uploaded to R2.
	DefaultSnapshotInterval = 6 * time.Hour
)

// Graceful shutdown
const (
	// GracefulShutdown is the timeout for graceful server shutdown.
	// Allows in-flight requests to complete before forceful termination.
	GracefulShutdown = 30 * time.Second
)
