package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/abhisek/studycoach/internal/eventlog"
)

type constructor func(ctx context.Context, cfg Config) (Provider, error)

// constructors is keyed by Config.Provider.
var constructors = map[string]constructor{
	"groq": func(_ context.Context, cfg Config) (Provider, error) {
		return NewGroqProvider(cfg.Groq)
	},
	"openrouter": func(_ context.Context, cfg Config) (Provider, error) {
		return NewOpenRouterProvider(cfg.OpenRouter)
	},
	"openai": func(_ context.Context, cfg Config) (Provider, error) {
		return NewOpenAIProvider(cfg.OpenAI)
	},
	"anthropic": func(_ context.Context, cfg Config) (Provider, error) {
		return NewAnthropicProvider(cfg.Anthropic)
	},
	"gemini": func(ctx context.Context, cfg Config) (Provider, error) {
		return NewGeminiProvider(ctx, cfg.Gemini)
	},
	"mock": func(context.Context, Config) (Provider, error) {
		return &MockProvider{Responder: SampleResponder}, nil
	},
}

// NewProvider returns the configured provider wrapped so that every
// attempt is logged, failed attempts are retried, and the whole call is
// bounded by cfg.Timeout. A nil repo skips event persistence.
func NewProvider(ctx context.Context, cfg Config, repo eventlog.Repo, logger *slog.Logger) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	build, ok := constructors[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	base, err := build(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}
	return WithTimeout(WithRetry(WithLogging(base, cfg.Provider, repo, logger), cfg.Retry), cfg.Timeout), nil
}
