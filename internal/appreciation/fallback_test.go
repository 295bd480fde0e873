package appreciation

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/classroom-planner/internal/metrics"
)

// fakeGenerator returns the queued errors in order, then succeeds.
type fakeGenerator struct {
	provider Provider
	errs     []error
	calls    atomic.Int32
	closed   atomic.Bool
}

func (f *fakeGenerator) Generate(_ context.Context, req Request) (*Result, error) {
	n := int(f.calls.Add(1)) - 1
	if n < len(f.errs) {
		return nil, f.errs[n]
	}
	return &Result{Text: "Bon trimestre pour " + req.StudentName + ".", Provider: f.provider, Model: "fake"}, nil
}

func (f *fakeGenerator) Provider() Provider { return f.provider }

func (f *fakeGenerator) Close() error {
	f.closed.Store(true)
	return nil
}

func fastRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}
}

func testRequest() Request {
	return Request{StudentName: "Léa", Subject: "Français"}
}

func TestFallbackGenerator_PrimarySuccess(t *testing.T) {
	t.Parallel()
	primary := &fakeGenerator{provider: ProviderGemini}
	secondary := &fakeGenerator{provider: ProviderGroq}

	result, err := NewFallbackGenerator(fastRetry(), nil, primary, secondary).Generate(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, result.Provider)
	assert.Equal(t, "Bon trimestre pour Léa.", result.Text)
	assert.Equal(t, int32(1), primary.calls.Load())
	assert.Zero(t, secondary.calls.Load())
}

func TestFallbackGenerator_RetriesThenSucceeds(t *testing.T) {
	t.Parallel()
	primary := &fakeGenerator{provider: ProviderGemini, errs: []error{errors.New("503 unavailable")}}

	result, err := NewFallbackGenerator(fastRetry(), nil, primary).Generate(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, result.Provider)
	assert.Equal(t, int32(2), primary.calls.Load())
}

func TestFallbackGenerator_FallsBackOnQuota(t *testing.T) {
	t.Parallel()
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	primary := &fakeGenerator{provider: ProviderGemini, errs: []error{errors.New("quota exceeded")}}
	secondary := &fakeGenerator{provider: ProviderGroq}

	result, err := NewFallbackGenerator(fastRetry(), m, primary, secondary).Generate(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, ProviderGroq, result.Provider)
	assert.Equal(t, int32(1), primary.calls.Load())

	families, err := registry.Gather()
	require.NoError(t, err)
	var fallbacks float64
	for _, mf := range families {
		if mf.GetName() == "classroom_llm_fallback_total" {
			for _, metric := range mf.GetMetric() {
				fallbacks += metric.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, float64(1), fallbacks)
}

func TestFallbackGenerator_FallsBackAfterExhaustedRetries(t *testing.T) {
	t.Parallel()
	primary := &fakeGenerator{provider: ProviderGemini, errs: []error{
		errors.New("overloaded"), errors.New("overloaded"),
	}}
	secondary := &fakeGenerator{provider: ProviderCerebras}

	result, err := NewFallbackGenerator(fastRetry(), nil, primary, secondary).Generate(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, ProviderCerebras, result.Provider)
	assert.Equal(t, int32(2), primary.calls.Load())
}

func TestFallbackGenerator_PermanentErrorStops(t *testing.T) {
	t.Parallel()
	primary := &fakeGenerator{provider: ProviderGemini, errs: []error{&LLMError{Err: errors.New("bad key"), StatusCode: 401}}}
	secondary := &fakeGenerator{provider: ProviderGroq}

	_, err := NewFallbackGenerator(fastRetry(), nil, primary, secondary).Generate(context.Background(), testRequest())
	require.Error(t, err)
	assert.Zero(t, secondary.calls.Load())
}

func TestFallbackGenerator_AllFail(t *testing.T) {
	t.Parallel()
	quota := errors.New("quota exceeded")
	primary := &fakeGenerator{provider: ProviderGemini, errs: []error{quota}}
	secondary := &fakeGenerator{provider: ProviderGroq, errs: []error{quota}}

	_, err := NewFallbackGenerator(fastRetry(), nil, primary, secondary).Generate(context.Background(), testRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, quota)
	assert.Contains(t, err.Error(), "all providers failed")
}

func TestFallbackGenerator_EmptyAndClose(t *testing.T) {
	t.Parallel()
	var nilChain *FallbackGenerator
	_, err := nilChain.Generate(context.Background(), testRequest())
	assert.Error(t, err)
	assert.Equal(t, Provider(""), nilChain.Provider())
	assert.NoError(t, nilChain.Close())

	a := &fakeGenerator{provider: ProviderGroq}
	b := &fakeGenerator{provider: ProviderCerebras}
	chain := NewFallbackGenerator(fastRetry(), nil, a, nil, b)
	assert.Equal(t, 2, chain.Len())
	assert.Equal(t, ProviderGroq, chain.Provider())
	assert.NoError(t, chain.Close())
	assert.True(t, a.closed.Load())
	assert.True(t, b.closed.Load())
}
