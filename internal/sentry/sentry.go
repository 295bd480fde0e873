// Package sentry wires the Sentry SDK for error reporting. Any ingest host
// speaking the Sentry protocol works (self-hosted Sentry, Better Stack Errors).
package sentry

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/garyellow/classroom-planner/internal/ctxutil"
)

// Config holds Sentry configuration.
type Config struct {
	// Token is the public key of the project DSN.
	Token string

	// Host is the ingesting host (e.g., "errors.betterstack.com").
	Host string

	// Environment identifies the deployment environment (e.g., "production", "staging").
	Environment string

	// Release identifies the application release version.
	Release string

	// SampleRate controls error sampling (0.0-1.0, default 1.0 = 100%).
	SampleRate float64

	// ServiceName is attached to every event as the "service" tag.
	ServiceName string

	Debug bool
}

// DSN builds https://$TOKEN@$HOST/1. The project ID is required by the SDK
// and ignored by hosts that route on the token alone.
func (c Config) DSN() string {
	return fmt.Sprintf("https://%s@%s/1", c.Token, c.Host)
}

// Initialize sets up the Sentry SDK.
// If Token is empty, Sentry is disabled and nil is returned.
func Initialize(cfg Config) error {
	if cfg.Token == "" {
		return nil
	}

	if cfg.Host == "" {
		return fmt.Errorf("sentry host is required when token is provided")
	}

	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN(),
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		SampleRate:       sampleRate,
		Debug:            cfg.Debug,
		AttachStacktrace: true,
	})
	if err != nil {
		return fmt.Errorf("sentry init: %w", err)
	}

	if cfg.ServiceName != "" {
		sentry.ConfigureScope(func(scope *sentry.Scope) {
			scope.SetTag("service", cfg.ServiceName)
		})
	}
	return nil
}

// Flush waits for buffered events to be sent to the server.
// Returns true if all events were sent within the timeout.
func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}

// IsEnabled returns true if Sentry is initialized and active.
func IsEnabled() bool {
	return sentry.CurrentHub().Client() != nil
}

// CaptureException captures an error and sends it to Sentry.
func CaptureException(err error) {
	sentry.CaptureException(err)
}

// CaptureExceptionWithContext captures err on the request hub (set by the gin
// middleware) and tags it with the teacher and request IDs found in ctx.
func CaptureExceptionWithContext(ctx context.Context, err error) {
	if err == nil {
		return
	}
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range contextTags(ctx) {
			scope.SetTag(k, v)
		}
		hub.CaptureException(err)
	})
}

// contextTags extracts the tracing values that become event tags.
func contextTags(ctx context.Context) map[string]string {
	tags := make(map[string]string, 2)
	if teacherID := ctxutil.GetTeacherID(ctx); teacherID != "" {
		tags["teacher_id"] = teacherID
	}
	if requestID, ok := ctxutil.GetRequestID(ctx); ok && requestID != "" {
		tags["request_id"] = requestID
	}
	return tags
}

// CaptureMessage captures a message and sends it to Sentry.
func CaptureMessage(message string) {
	sentry.CaptureMessage(message)
}
