package appreciation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCalculateBackoff(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		attempt  int
		initial  time.Duration
		maxDelay time.Duration
		upper    time.Duration
	}{
		{"no delay before first attempt", 0, time.Second, 10 * time.Second, 0},
		{"negative attempt", -1, time.Second, 10 * time.Second, 0},
		{"first retry", 1, time.Second, 10 * time.Second, time.Second},
		{"second retry doubles", 2, time.Second, 10 * time.Second, 2 * time.Second},
		{"capped", 10, time.Second, 5 * time.Second, 5 * time.Second},
		{"zero initial", 3, 0, time.Second, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			for range 20 {
				got := CalculateBackoff(tt.attempt, tt.initial, tt.maxDelay)
				assert.GreaterOrEqual(t, got, time.Duration(0))
				assert.LessOrEqual(t, got, tt.upper)
			}
		})
	}
}

func TestSleep(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Sleep(context.Background(), 0))
	assert.NoError(t, Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Minute), context.Canceled)
}

func TestHasSufficientBudget(t *testing.T) {
	t.Parallel()
	assert.True(t, HasSufficientBudget(context.Background(), time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	assert.True(t, HasSufficientBudget(ctx, time.Second))
	assert.False(t, HasSufficientBudget(ctx, time.Hour))
}

func TestWithRetry(t *testing.T) {
	t.Parallel()
	cfg := RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

	t.Run("succeeds after transient errors", func(t *testing.T) {
		t.Parallel()
		calls, retries := 0, 0
		err := WithRetry(context.Background(), cfg, func(int, error) { retries++ }, func() error {
			calls++
			if calls < 3 {
				return errors.New("503 unavailable")
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
		assert.Equal(t, 2, retries)
	})

	t.Run("stops on permanent error", func(t *testing.T) {
		t.Parallel()
		calls := 0
		err := WithRetry(context.Background(), cfg, nil, func() error {
			calls++
			return &LLMError{Err: errors.New("bad key"), StatusCode: 401}
		})
		assert.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("stops on quota error", func(t *testing.T) {
		t.Parallel()
		calls := 0
		err := WithRetry(context.Background(), cfg, nil, func() error {
			calls++
			return errors.New("daily limit reached")
		})
		assert.Equal(t, ActionFallback, ClassifyError(err))
		assert.Equal(t, 1, calls)
	})

	t.Run("returns last error when exhausted", func(t *testing.T) {
		t.Parallel()
		calls := 0
		err := WithRetry(context.Background(), cfg, nil, func() error {
			calls++
			return errors.New("overloaded")
		})
		assert.EqualError(t, err, "overloaded")
		assert.Equal(t, 3, calls)
	})

	t.Run("canceled context", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := WithRetry(ctx, cfg, nil, func() error { return nil })
		assert.ErrorIs(t, err, context.Canceled)
	})
}
