package app

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/garyellow/classroom-planner/internal/ctxutil"
	"github.com/garyellow/classroom-planner/internal/logger"
	"github.com/garyellow/classroom-planner/internal/metrics"
)

const (
	headerRequestID = "X-Request-Id"
	headerTeacherID = "X-Teacher-Id"
)

// requestIDMiddleware propagates the caller's request ID or assigns one.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(headerRequestID)
		if requestID == "" {
			requestID = c.GetHeader("X-Correlation-Id")
		}
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(headerRequestID, requestID)
		c.Request = c.Request.WithContext(ctxutil.WithRequestID(c.Request.Context(), requestID))
		c.Next()
	}
}

// teacherMiddleware scopes every API call to the teacher named in the header.
// Authentication happens upstream; this service only trusts the header.
func teacherMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		teacherID := strings.TrimSpace(c.GetHeader(headerTeacherID))
		if teacherID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "En-tête " + headerTeacherID + " manquant"})
			return
		}
		c.Request = c.Request.WithContext(ctxutil.WithTeacherID(c.Request.Context(), teacherID))
		c.Next()
	}
}

func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'none'")
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}

// loggingMiddleware logs one line per request and feeds the HTTP counter.
// The route label is the pattern, never the raw path.
func loggingMiddleware(log *logger.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordHTTPRequest(route, strconv.Itoa(status))

		ctx := c.Request.Context()
		attrs := []any{
			"http_method", c.Request.Method,
			"http_path", c.Request.URL.Path,
			"http_status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		switch {
		case status >= 500:
			log.ErrorContext(ctx, "HTTP request failed", attrs...)
		case status == http.StatusNotFound:
			log.DebugContext(ctx, "HTTP request not found", attrs...)
		case status >= 400:
			log.WarnContext(ctx, "HTTP request rejected", attrs...)
		default:
			log.DebugContext(ctx, "HTTP request completed", attrs...)
		}
	}
}
