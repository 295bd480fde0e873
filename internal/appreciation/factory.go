package appreciation

import (
	"context"
	"log/slog"

	"github.com/garyellow/classroom-planner/internal/metrics"
)

// New builds the fallback chain described by cfg: every model of every
// configured provider, in provider order. It returns nil without error when
// no provider has a key.
func New(ctx context.Context, cfg Config, m *metrics.Metrics) (Generator, error) {
	var generators []Generator
	for _, provider := range cfg.ConfiguredProviders() {
		pc := cfg.ProviderConfig(provider)
		models := pc.Models
		if len(models) == 0 {
			models = DefaultModels(provider)
		}
		for _, model := range models {
			g, err := newGenerator(ctx, provider, pc.APIKey, model)
			if err != nil {
				slog.WarnContext(ctx, "failed to create appreciation generator",
					"provider", provider,
					"model", model,
					"error", err)
				continue
			}
			generators = append(generators, g)
		}
	}

	if len(generators) == 0 {
		slog.InfoContext(ctx, "no LLM provider configured for appreciations")
		return nil, nil
	}

	retry := cfg.Retry
	if retry.MaxAttempts == 0 {
		retry = DefaultRetryConfig()
	}
	slog.InfoContext(ctx, "appreciation generator configured",
		"primary", generators[0].Provider(),
		"chain_size", len(generators))
	return NewFallbackGenerator(retry, m, generators...), nil
}

func newGenerator(ctx context.Context, provider Provider, apiKey, model string) (Generator, error) {
	if provider == ProviderGemini {
		return newGeminiGenerator(ctx, apiKey, model)
	}
	return newOpenAIGenerator(provider, apiKey, model)
}
