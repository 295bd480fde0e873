package appreciation

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"google.golang.org/genai"
)

// ErrorAction is what the fallback chain does after a failed call.
type ErrorAction int

const (
	// ActionRetry retries the same model after a backoff.
	ActionRetry ErrorAction = iota
	// ActionFallback skips to the next model or provider.
	ActionFallback
	// ActionFail stops the chain.
	ActionFail
)

func (a ErrorAction) String() string {
	switch a {
	case ActionRetry:
		return "retry"
	case ActionFallback:
		return "fallback"
	case ActionFail:
		return "fail"
	default:
		return "unknown"
	}
}

// ErrEmptyResponse is returned when a provider answers without text.
var ErrEmptyResponse = errors.New("empty response")

// LLMError carries the provider and HTTP status of a failed call.
type LLMError struct {
	Err        error
	StatusCode int
	Provider   Provider
	RetryAfter time.Duration
}

func (e *LLMError) Error() string {
	if e.StatusCode > 0 {
		return e.Err.Error() + " (status: " + strconv.Itoa(e.StatusCode) + ")"
	}
	return e.Err.Error()
}

func (e *LLMError) Unwrap() error {
	return e.Err
}

// ClassifyError maps err to an ErrorAction. Status codes win over message
// patterns; unknown errors are retried.
func ClassifyError(err error) ErrorAction {
	if err == nil || errors.Is(err, context.Canceled) {
		return ActionFail
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ActionRetry
	}

	msg := strings.ToLower(err.Error())

	// Quota exhaustion shows up as 429 too, but retrying the same key is pointless.
	if containsAny(msg, "quota", "daily limit", "monthly limit", "billing") {
		return ActionFallback
	}

	var llmErr *LLMError
	if errors.As(err, &llmErr) && llmErr.StatusCode > 0 {
		return classifyStatusCode(llmErr.StatusCode)
	}

	switch {
	case containsAny(msg, "rate limit", "too many requests", "resource_exhausted", "429"):
		return ActionRetry
	case containsAny(msg, "unavailable", "overloaded", "capacity", "internal server error",
		"bad gateway", "gateway timeout", "500", "502", "503", "504"):
		return ActionRetry
	case containsAny(msg, "timeout", "deadline", "connection reset", "connection refused", "eof"):
		return ActionRetry
	case containsAny(msg, "401", "unauthorized", "unauthenticated", "invalid api key",
		"403", "forbidden", "permission denied"):
		return ActionFail
	case containsAny(msg, "404", "not found"):
		// A retired model: the next one in the chain may still exist.
		return ActionFallback
	case containsAny(msg, "400", "bad request", "malformed", "422", "unprocessable"):
		return ActionFail
	}
	return ActionRetry
}

func classifyStatusCode(code int) ErrorAction {
	switch {
	case code == http.StatusTooManyRequests,
		code == http.StatusRequestTimeout,
		code == http.StatusConflict,
		code >= 500 && code < 600:
		return ActionRetry
	case code == http.StatusNotFound:
		return ActionFallback
	case code >= 400 && code < 500:
		return ActionFail
	default:
		return ActionRetry
	}
}

// ParseRetryAfter reads retry-after-ms, then retry-after (seconds or
// HTTP date), then Groq's x-ratelimit-reset-tokens. Returns 0 when absent.
func ParseRetryAfter(headers http.Header) time.Duration {
	if v := headers.Get("retry-after-ms"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	if v := headers.Get("retry-after"); v != "" {
		if sec, err := strconv.Atoi(v); err == nil && sec > 0 {
			return time.Duration(sec) * time.Second
		}
		if t, err := http.ParseTime(v); err == nil {
			return max(0, time.Until(t))
		}
	}
	if v := headers.Get("x-ratelimit-reset-tokens"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return 0
}

// wrapSDKError extracts the HTTP status from genai and openai-go errors.
func wrapSDKError(err error, provider Provider) error {
	if err == nil {
		return nil
	}
	llmErr := &LLMError{Err: err, Provider: provider}

	var oaiErr *openai.Error
	var gemErr genai.APIError
	var gemErrPtr *genai.APIError
	switch {
	case errors.As(err, &oaiErr):
		llmErr.StatusCode = oaiErr.StatusCode
		if oaiErr.Response != nil {
			llmErr.RetryAfter = ParseRetryAfter(oaiErr.Response.Header)
		}
	case errors.As(err, &gemErr):
		llmErr.StatusCode = gemErr.Code
	case errors.As(err, &gemErrPtr):
		llmErr.StatusCode = gemErrPtr.Code
	}
	return llmErr
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
