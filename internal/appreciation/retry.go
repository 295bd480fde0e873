package appreciation

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"time"
)

// CalculateBackoff returns a full-jitter delay for attempt (1-based):
//
//	random(0, min(maxDelay, initial * 2^(attempt-1)))
func CalculateBackoff(attempt int, initial, maxDelay time.Duration) time.Duration {
	if attempt <= 0 || initial <= 0 {
		return 0
	}
	delay := initial
	for i := 1; i < attempt && delay < maxDelay; i++ {
		delay *= 2
	}
	delay = min(delay, maxDelay)
	if delay <= 0 {
		return 0
	}

	n, err := rand.Int(rand.Reader, big.NewInt(int64(delay)))
	if err != nil {
		return delay / 2
	}
	return time.Duration(n.Int64())
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HasSufficientBudget reports whether ctx leaves at least need before its
// deadline. A context without deadline always has budget.
func HasSufficientBudget(ctx context.Context, need time.Duration) bool {
	deadline, ok := ctx.Deadline()
	if !ok {
		return true
	}
	return time.Until(deadline) > need
}

// WithRetry calls fn up to cfg.MaxAttempts times. Only ActionRetry errors are
// retried; a server-provided retry delay replaces the jittered backoff when
// it is longer.
func WithRetry(ctx context.Context, cfg RetryConfig, onRetry func(attempt int, err error), fn func() error) error {
	attempts := max(1, cfg.MaxAttempts)
	var lastErr error
	for attempt := range attempts {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if ClassifyError(err) != ActionRetry || attempt == attempts-1 {
			return err
		}

		delay := CalculateBackoff(attempt+1, cfg.InitialDelay, cfg.MaxDelay)
		var llmErr *LLMError
		if errors.As(err, &llmErr) && llmErr.RetryAfter > delay {
			delay = min(llmErr.RetryAfter, cfg.MaxDelay)
		}
		if !HasSufficientBudget(ctx, delay) {
			return err
		}
		if onRetry != nil {
			onRetry(attempt+1, err)
		}
		if err := Sleep(ctx, delay); err != nil {
			return lastErr
		}
	}
	return lastErr
}
