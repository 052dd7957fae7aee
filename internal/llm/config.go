package llm

import (
	"fmt"
	"os"
	"time"
)

// Config holds all LLM provider configuration.
type Config struct {
	// Provider selects which LLM provider to use.
	// Values: "groq", "anthropic", "openai", "gemini", "openrouter", "mock"
	Provider string

	Groq       CompatConfig
	Anthropic  AnthropicConfig
	OpenAI     OpenAIConfig
	Gemini     GeminiConfig
	OpenRouter CompatConfig
	Retry      RetryConfig

	// Timeout bounds a single LLM request including retries.
	Timeout time.Duration
}

// CompatConfig configures an OpenAI-compatible host (Groq, OpenRouter).
// An empty BaseURL selects the host's public endpoint.
type CompatConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// AnthropicConfig holds Anthropic-specific configuration.
type AnthropicConfig struct {
	APIKey string
	Model  string // Default: "claude-haiku"
}

// OpenAIConfig holds OpenAI-specific configuration.
type OpenAIConfig struct {
	APIKey  string
	Model   string // Default: "gpt-4o-mini"
	BaseURL string // Optional override for compatible APIs.
}

// GeminiConfig holds Gemini-specific configuration.
type GeminiConfig struct {
	APIKey string
	Model  string // Default: "gemini-flash"
}

// RetryConfig configures retry behavior for transient failures.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultConfig returns a Config targeting Groq.
func DefaultConfig() Config {
	return Config{
		Provider: "groq",
		Groq: CompatConfig{
			Model: "llama-3.3-70b-versatile",
		},
		Anthropic: AnthropicConfig{
			Model: "claude-haiku",
		},
		OpenAI: OpenAIConfig{
			Model: "gpt-4o-mini",
		},
		Gemini: GeminiConfig{
			Model: "gemini-flash",
		},
		OpenRouter: CompatConfig{
			Model: "meta-llama/llama-3.3-70b-instruct",
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: 2 * time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2.0,
		},
		Timeout: 90 * time.Second,
	}
}

// ConfigFromEnv builds a Config from environment variables, falling back
// to defaults for unset values. GROQ_API_KEY is honored as well as
// STUDYCOACH_GROQ_API_KEY.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.ApplyEnv()
	return cfg
}

// ApplyEnv overrides fields with the environment variables that are set.
// Unset variables leave the config untouched.
func (c *Config) ApplyEnv() {
	setString := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := os.Getenv(k); v != "" {
				*dst = v
				return
			}
		}
	}

	setString(&c.Provider, "STUDYCOACH_LLM_PROVIDER")

	setString(&c.Groq.APIKey, "STUDYCOACH_GROQ_API_KEY", "GROQ_API_KEY")
	setString(&c.Groq.Model, "STUDYCOACH_GROQ_MODEL")
	setString(&c.Groq.BaseURL, "STUDYCOACH_GROQ_BASE_URL")

	setString(&c.Anthropic.APIKey, "STUDYCOACH_ANTHROPIC_API_KEY")
	setString(&c.Anthropic.Model, "STUDYCOACH_ANTHROPIC_MODEL")

	setString(&c.OpenAI.APIKey, "STUDYCOACH_OPENAI_API_KEY")
	setString(&c.OpenAI.Model, "STUDYCOACH_OPENAI_MODEL")
	setString(&c.OpenAI.BaseURL, "STUDYCOACH_OPENAI_BASE_URL")

	setString(&c.Gemini.APIKey, "STUDYCOACH_GEMINI_API_KEY")
	setString(&c.Gemini.Model, "STUDYCOACH_GEMINI_MODEL")

	setString(&c.OpenRouter.APIKey, "STUDYCOACH_OPENROUTER_API_KEY")
	setString(&c.OpenRouter.Model, "STUDYCOACH_OPENROUTER_MODEL")

	if v := os.Getenv("STUDYCOACH_LLM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Timeout = d
		}
	}
}

// Validate checks that the selected provider has its required API key set.
func (c Config) Validate() error {
	missing := func(env string) error {
		return fmt.Errorf("%s is required for the %s provider", env, c.Provider)
	}
	switch c.Provider {
	case "groq":
		if c.Groq.APIKey == "" {
			return missing("GROQ_API_KEY")
		}
	case "anthropic":
		if c.Anthropic.APIKey == "" {
			return missing("STUDYCOACH_ANTHROPIC_API_KEY")
		}
	case "openai":
		if c.OpenAI.APIKey == "" {
			return missing("STUDYCOACH_OPENAI_API_KEY")
		}
	case "gemini":
		if c.Gemini.APIKey == "" {
			return missing("STUDYCOACH_GEMINI_API_KEY")
		}
	case "openrouter":
		if c.OpenRouter.APIKey == "" {
			return missing("STUDYCOACH_OPENROUTER_API_KEY")
		}
	case "mock":
		// No API key needed.
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	return nil
}

// resolveModel maps a friendly name to a model ID. Unknown names are
// taken as model IDs.
func resolveModel(name string, friendly map[string]string) string {
	if id, ok := friendly[name]; ok {
		return id
	}
	return name
}
