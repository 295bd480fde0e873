package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	domerrors "github.com/garyellow/classroom-planner/internal/errors"
	"github.com/garyellow/classroom-planner/internal/sentry"
)

// writeError maps a domain error onto a status code and JSON body.
// Unexpected errors are logged and reported; their details never reach the client.
func writeError(c *gin.Context, err error) {
	ctx := c.Request.Context()

	if details := domerrors.AsValidation(err); len(details) > 0 {
		body := errorResponse{Error: "Données invalides", Details: make([]fieldDetail, 0, len(details))}
		if msg, ok := domerrors.UserMessage(err); ok {
			body.Error = msg
		}
		for _, d := range details {
			body.Details = append(body.Details, fieldDetail{Field: d.Field, Message: d.Message})
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, body)
		return
	}

	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(ctx, "request failed",
			"method", c.Request.Method,
			"route", c.FullPath(),
			"error", err)
		if status == http.StatusInternalServerError {
			sentry.CaptureExceptionWithContext(ctx, err)
			c.AbortWithStatusJSON(status, errorResponse{Error: "Erreur interne"})
			return
		}
	}
	c.AbortWithStatusJSON(status, errorResponse{Error: domerrors.GetUserMessage(err)})
}

func statusOf(err error) int {
	switch {
	case domerrors.IsInvalidInput(err):
		return http.StatusBadRequest
	case domerrors.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, domerrors.ErrConflict):
		return http.StatusConflict
	case domerrors.IsRateLimitExceeded(err):
		return http.StatusTooManyRequests
	case errors.Is(err, domerrors.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case domerrors.IsUnavailable(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// badRequest rejects a malformed body or query parameter.
func badRequest(c *gin.Context, field, message string) {
	writeError(c, domerrors.NewValidationError(field, message))
}
