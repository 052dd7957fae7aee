package llm

import "fmt"

// compatEndpoint describes a hosted API that speaks the OpenAI chat
// completions protocol.
type compatEndpoint struct {
	name    string
	baseURL string
	models  map[string]string // friendly name to model ID, nil passes IDs through
	mode    schemaMode
}

var (
	// Not every Groq model accepts json_schema, so schemas go in the
	// prompt and are checked locally.
	groqEndpoint = compatEndpoint{
		name:    "groq",
		baseURL: "https://api.groq.com/openai/v1",
		models: map[string]string{
			"llama-70b": "llama-3.3-70b-versatile",
			"llama-8b":  "llama-3.1-8b-instant",
		},
		mode: schemaInPrompt,
	}

	openRouterEndpoint = compatEndpoint{
		name:    "openrouter",
		baseURL: "https://openrouter.ai/api/v1",
		mode:    schemaStrict,
	}
)

// NewGroqProvider targets Groq.
func NewGroqProvider(cfg CompatConfig) (*OpenAIProvider, error) {
	return groqEndpoint.provider(cfg)
}

// NewOpenRouterProvider targets OpenRouter. Model IDs are used verbatim.
func NewOpenRouterProvider(cfg CompatConfig) (*OpenAIProvider, error) {
	return openRouterEndpoint.provider(cfg)
}

func (e compatEndpoint) provider(cfg CompatConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s API key is required", e.name)
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = e.baseURL
	}
	return newOpenAICompatible(cfg.APIKey, baseURL, resolveModel(cfg.Model, e.models), e.mode), nil
}
