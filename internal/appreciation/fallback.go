package appreciation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/garyellow/classroom-planner/internal/metrics"
)

// FallbackGenerator tries a chain of generators in order. Each one is retried
// on transient errors; quota and missing-model errors move to the next one;
// permanent errors stop the chain.
type FallbackGenerator struct {
	chain   []Generator
	retry   RetryConfig
	metrics *metrics.Metrics
}

// NewFallbackGenerator builds a chain. Nil generators are skipped.
func NewFallbackGenerator(cfg RetryConfig, m *metrics.Metrics, generators ...Generator) *FallbackGenerator {
	chain := make([]Generator, 0, len(generators))
	for _, g := range generators {
		if g != nil {
			chain = append(chain, g)
		}
	}
	return &FallbackGenerator{chain: chain, retry: cfg, metrics: m}
}

// Generate returns the first successful result of the chain.
func (f *FallbackGenerator) Generate(ctx context.Context, req Request) (*Result, error) {
	if f == nil || len(f.chain) == 0 {
		return nil, errors.New("appreciation generator not configured")
	}

	start := time.Now()
	var lastErr error
	for i, g := range f.chain {
		provider := g.Provider()
		if i > 0 {
			prev := f.chain[i-1].Provider()
			slog.InfoContext(ctx, "falling back to next appreciation model",
				"from", prev,
				"to", provider,
				"position", i)
			f.metrics.RecordLLMFallback(prev.String(), provider.String())
		}

		var result *Result
		err := WithRetry(ctx, f.retry, func(attempt int, err error) {
			slog.DebugContext(ctx, "retrying appreciation generation",
				"provider", provider,
				"attempt", attempt,
				"error", err)
		}, func() error {
			var genErr error
			result, genErr = g.Generate(ctx, req)
			return genErr
		})
		if err == nil {
			f.metrics.RecordLLMRequest(provider.String(), "success")
			result.Duration = time.Since(start)
			return result, nil
		}

		lastErr = err
		action := ClassifyError(err)
		f.metrics.RecordLLMRequest(provider.String(), action.String())
		slog.WarnContext(ctx, "appreciation generation failed",
			"provider", provider,
			"action", action,
			"error", err)
		if action == ActionFail || ctx.Err() != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("all providers failed: %w", lastErr)
}

// Provider returns the provider of the first chain entry.
func (f *FallbackGenerator) Provider() Provider {
	if f == nil || len(f.chain) == 0 {
		return ""
	}
	return f.chain[0].Provider()
}

// Len returns the chain size.
func (f *FallbackGenerator) Len() int {
	if f == nil {
		return 0
	}
	return len(f.chain)
}

// Close closes every generator of the chain.
func (f *FallbackGenerator) Close() error {
	if f == nil {
		return nil
	}
	var errs []error
	for _, g := range f.chain {
		if err := g.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
