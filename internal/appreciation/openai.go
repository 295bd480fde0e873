package appreciation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// openaiGenerator calls one model of an OpenAI-compatible provider.
type openaiGenerator struct {
	client   openai.Client
	provider Provider
	model    string
}

func newOpenAIGenerator(provider Provider, apiKey, model string) (*openaiGenerator, error) {
	endpoint, ok := ProviderEndpoint[provider]
	if !ok {
		return nil, fmt.Errorf("provider %s is not OpenAI-compatible", provider)
	}
	if model == "" {
		model = DefaultModels(provider)[0]
	}
	client := openai.NewClient(
		option.WithBaseURL(endpoint),
		option.WithAPIKey(apiKey),
		// Retries are handled by WithRetry so that fallback stays predictable.
		option.WithMaxRetries(0),
	)
	return &openaiGenerator{client: client, provider: provider, model: model}, nil
}

func (g *openaiGenerator) Generate(ctx context.Context, req Request) (*Result, error) {
	params := openai.ChatCompletionNewParams{
		Model: g.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(BuildPrompt(req)),
		},
		Temperature: openai.Float(temperature),
		MaxTokens:   openai.Int(maxOutputTokens),
	}

	start := time.Now()
	resp, err := g.client.Chat.Completions.New(ctx, params)
	duration := time.Since(start)
	if err != nil {
		slog.WarnContext(ctx, "chat completion failed",
			"provider", g.provider,
			"model", g.model,
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return nil, wrapSDKError(fmt.Errorf("chat completion: %w", err), g.provider)
	}

	if resp == nil || len(resp.Choices) == 0 {
		return nil, &LLMError{Err: ErrEmptyResponse, Provider: g.provider}
	}
	out := cleanOutput(resp.Choices[0].Message.Content)
	if out == "" {
		return nil, &LLMError{Err: ErrEmptyResponse, Provider: g.provider}
	}

	slog.DebugContext(ctx, "appreciation generated",
		"provider", g.provider,
		"model", g.model,
		"input_tokens", resp.Usage.PromptTokens,
		"output_tokens", resp.Usage.CompletionTokens,
		"duration_ms", duration.Milliseconds())

	return &Result{
		Text:         out,
		Provider:     g.provider,
		Model:        g.model,
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
		Duration:     duration,
	}, nil
}

func (g *openaiGenerator) Provider() Provider {
	return g.provider
}

func (g *openaiGenerator) Close() error {
	return nil
}
