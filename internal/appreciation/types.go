// Package appreciation drafts report-card comments ("appréciations") with an
// LLM.
//
// Gemini goes through google.golang.org/genai; Groq and Cerebras go through
// github.com/openai/openai-go/v3 against their OpenAI-compatible endpoints.
// Failures are handled in three layers:
//  1. the same model is retried with full-jitter backoff;
//  2. the next model of the same provider is tried;
//  3. the next configured provider is tried.
package appreciation

import (
	"context"
	"time"

	"github.com/garyellow/classroom-planner/internal/config"
)

// Provider represents an LLM provider.
type Provider string

// Supported providers.
const (
	ProviderGemini   Provider = "gemini"
	ProviderGroq     Provider = "groq"
	ProviderCerebras Provider = "cerebras"
)

// ProviderEndpoint is the base URL of each OpenAI-compatible provider.
var ProviderEndpoint = map[Provider]string{
	ProviderGroq:     "https://api.groq.com/openai/v1/",
	ProviderCerebras: "https://api.cerebras.ai/v1/",
}

// IsOpenAICompatible reports whether p is reached through openai-go.
func (p Provider) IsOpenAICompatible() bool {
	_, ok := ProviderEndpoint[p]
	return ok
}

func (p Provider) String() string {
	return string(p)
}

// Tone of the generated comment.
type Tone string

// Tones.
const (
	ToneNeutral     Tone = "neutral"
	ToneFormal      Tone = "formal"
	ToneEncouraging Tone = "encouraging"
)

// Request describes the student and period the comment is about.
// Average is on a 0-20 scale.
type Request struct {
	StudentName string   `json:"studentName" validate:"required,max=100"`
	Subject     string   `json:"subject" validate:"required,max=100"`
	PeriodName  string   `json:"periodName,omitempty" validate:"max=100"`
	Average     *float64 `json:"average,omitempty" validate:"omitempty,min=0,max=20"`
	Strengths   []string `json:"strengths,omitempty" validate:"max=10,dive,required,max=200"`
	Weaknesses  []string `json:"weaknesses,omitempty" validate:"max=10,dive,required,max=200"`
	Tone        Tone     `json:"tone,omitempty" validate:"omitempty,oneof=neutral formal encouraging"`
	MaxWords    int      `json:"maxWords,omitempty" validate:"omitempty,min=10,max=300"`
	Language    string   `json:"language,omitempty" validate:"omitempty,oneof=fr en"`
}

// Result is a generated comment.
type Result struct {
	Text         string        `json:"text"`
	Provider     Provider      `json:"provider"`
	Model        string        `json:"model"`
	InputTokens  int           `json:"inputTokens,omitempty"`
	OutputTokens int           `json:"outputTokens,omitempty"`
	Duration     time.Duration `json:"-"`
}

// Generator produces one comment per call.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Result, error)
	// Provider returns the provider type for metrics.
	Provider() Provider
	// Close releases any resources held by the generator.
	Close() error
}

// RetryConfig defines retry behavior for one model.
type RetryConfig struct {
	// MaxAttempts includes the first call.
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// ProviderConfig holds the key and model chain of one provider.
// The first model is primary, the rest are tried in order.
type ProviderConfig struct {
	APIKey string
	Models []string
}

// Config holds configuration for all providers.
type Config struct {
	// Providers is the fallback order. Providers without a key are skipped.
	Providers []Provider

	Gemini   ProviderConfig
	Groq     ProviderConfig
	Cerebras ProviderConfig

	Retry RetryConfig
}

// Default model chains.
var (
	DefaultGeminiModels   = []string{"gemini-2.5-flash", "gemini-2.5-flash-lite"}
	DefaultGroqModels     = []string{"llama-3.3-70b-versatile", "llama-3.1-8b-instant"}
	DefaultCerebrasModels = []string{"llama-3.3-70b", "llama-3.1-8b"}

	DefaultProviders = []Provider{ProviderGemini, ProviderGroq, ProviderCerebras}
)

// DefaultMaxRetryAttempts is the number of calls per model, the first included.
const DefaultMaxRetryAttempts = 2

// Generation settings shared by every provider.
const (
	DefaultMaxWords = 60
	temperature     = 0.7
	// maxOutputTokens leaves room for French text at about 1.5 tokens per word.
	maxOutputTokens = 600
)

// HasAnyProvider reports whether at least one API key is set.
func (c *Config) HasAnyProvider() bool {
	return c.Gemini.APIKey != "" || c.Groq.APIKey != "" || c.Cerebras.APIKey != ""
}

// ProviderConfig returns the configuration of p, or nil.
func (c *Config) ProviderConfig(p Provider) *ProviderConfig {
	switch p {
	case ProviderGemini:
		return &c.Gemini
	case ProviderGroq:
		return &c.Groq
	case ProviderCerebras:
		return &c.Cerebras
	default:
		return nil
	}
}

// ConfiguredProviders returns the providers that have an API key, in
// c.Providers order (DefaultProviders when empty).
func (c *Config) ConfiguredProviders() []Provider {
	order := c.Providers
	if len(order) == 0 {
		order = DefaultProviders
	}
	result := make([]Provider, 0, len(order))
	for _, p := range order {
		if pc := c.ProviderConfig(p); pc != nil && pc.APIKey != "" {
			result = append(result, p)
		}
	}
	return result
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  DefaultMaxRetryAttempts,
		InitialDelay: config.LLMRetryInitial,
		MaxDelay:     config.LLMRetryMax,
	}
}

// DefaultModels returns the default model chain of p.
func DefaultModels(p Provider) []string {
	switch p {
	case ProviderGemini:
		return DefaultGeminiModels
	case ProviderGroq:
		return DefaultGroqModels
	case ProviderCerebras:
		return DefaultCerebrasModels
	default:
		return nil
	}
}
