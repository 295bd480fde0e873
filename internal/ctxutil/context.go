// Package ctxutil provides type-safe context value management.
// Uses private key types to prevent collisions.
package ctxutil

import (
	"context"
)

type contextKey string

const (
	teacherIDKey contextKey = "ctxutil.teacherID"
	requestIDKey contextKey = "ctxutil.requestID"
)

// WithTeacherID adds a teacher ID to the context.
// The teacher ID scopes every repository query and rate limit.
func WithTeacherID(ctx context.Context, teacherID string) context.Context {
	return context.WithValue(ctx, teacherIDKey, teacherID)
}

// GetTeacherID retrieves the teacher ID from the context.
// Returns the teacher ID if found, empty string otherwise.
func GetTeacherID(ctx context.Context) string {
	if v := ctx.Value(teacherIDKey); v != nil {
		if teacherID, ok := v.(string); ok && teacherID != "" {
			return teacherID
		}
	}
	return ""
}

// MustGetTeacherID retrieves the teacher ID from the context.
// Panics if the teacher ID is not found. Use this only behind the
// teacher middleware, which rejects requests without one.
func MustGetTeacherID(ctx context.Context) string {
	teacherID, ok := ctx.Value(teacherIDKey).(string)
	if !ok || teacherID == "" {
		panic("ctxutil: teacherID not found")
	}
	return teacherID
}

// WithRequestID adds a request ID to the context for tracing.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
// Returns the request ID and true if found, empty string and false otherwise.
func GetRequestID(ctx context.Context) (string, bool) {
	requestID, ok := ctx.Value(requestIDKey).(string)
	return requestID, ok
}

// PreserveTracing creates a detached context that keeps tracing values.
// The new context is independent of the parent's cancellation and deadlines,
// for work such as snapshot uploads that outlive the HTTP request.
func PreserveTracing(ctx context.Context) context.Context {
	newCtx := context.Background()

	if teacherID := GetTeacherID(ctx); teacherID != "" {
		newCtx = WithTeacherID(newCtx, teacherID)
	}
	if requestID, ok := GetRequestID(ctx); ok && requestID != "" {
		newCtx = WithRequestID(newCtx, requestID)
	}

	return newCtx
}
