package appreciation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"
)

// geminiGenerator calls one Gemini model.
type geminiGenerator struct {
	client *genai.Client
	model  string
}

func newGeminiGenerator(ctx context.Context, apiKey, model string) (*geminiGenerator, error) {
	if model == "" {
		model = DefaultGeminiModels[0]
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &geminiGenerator{client: client, model: model}, nil
}

func (g *geminiGenerator) Generate(ctx context.Context, req Request) (*Result, error) {
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](temperature),
		MaxOutputTokens: maxOutputTokens,
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(BuildPrompt(req)), config)
	duration := time.Since(start)
	if err != nil {
		slog.WarnContext(ctx, "gemini generate content failed",
			"model", g.model,
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return nil, wrapSDKError(fmt.Errorf("generate content: %w", err), ProviderGemini)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, &LLMError{Err: ErrEmptyResponse, Provider: ProviderGemini}
	}
	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	out := cleanOutput(text.String())
	if out == "" {
		return nil, &LLMError{Err: ErrEmptyResponse, Provider: ProviderGemini}
	}

	result := &Result{
		Text:     out,
		Provider: ProviderGemini,
		Model:    g.model,
		Duration: duration,
	}
	if usage := resp.UsageMetadata; usage != nil {
		result.InputTokens = int(usage.PromptTokenCount)
		result.OutputTokens = int(usage.CandidatesTokenCount)
		slog.DebugContext(ctx, "appreciation generated",
			"provider", ProviderGemini,
			"model", g.model,
			"input_tokens", usage.PromptTokenCount,
			"output_tokens", usage.CandidatesTokenCount,
			"total_tokens", usage.TotalTokenCount,
			"duration_ms", duration.Milliseconds())
	}
	return result, nil
}

func (g *geminiGenerator) Provider() Provider {
	return ProviderGemini
}

// Close is a no-op: genai.Client holds no resources that need releasing.
func (g *geminiGenerator) Close() error {
	return nil
}
