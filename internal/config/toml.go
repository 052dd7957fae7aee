// Package config reads the optional TOML configuration file. Values from
// the file sit between built-in defaults and environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/abhisek/studycoach/internal/enrich"
	"github.com/abhisek/studycoach/internal/llm"
	"github.com/abhisek/studycoach/internal/notion"
	"github.com/abhisek/studycoach/internal/retry"
)

// FileConfig represents the TOML configuration file. Every field is a
// pointer so an absent key leaves the default in place.
type FileConfig struct {
	State   StateConfig   `toml:"state"`
	Log     LogConfig     `toml:"log"`
	LLM     LLMConfig     `toml:"llm"`
	Enrich  EnrichConfig  `toml:"enrich"`
	Notion  NotionConfig  `toml:"notion"`
	Retry   RetryConfig   `toml:"retry"`
	Metrics MetricsConfig `toml:"metrics"`
}

// StateConfig maps file locations.
type StateConfig struct {
	Path     *string `toml:"path"`
	EventsDB *string `toml:"events-db"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level  *string `toml:"level"`
	Format *string `toml:"format"`
}

// LLMConfig maps provider selection. Model applies to the selected
// provider only.
type LLMConfig struct {
	Provider      *string `toml:"provider"`
	Model         *string `toml:"model"`
	Timeout       *string `toml:"timeout"`
	RetryAttempts *int    `toml:"retry-attempts"`
}

// EnrichConfig maps web enrichment settings.
type EnrichConfig struct {
	Enabled    *bool `toml:"enabled"`
	MaxResults *int  `toml:"max-results"`
	MaxChars   *int  `toml:"max-chars"`
}

// NotionConfig maps content source settings.
type NotionConfig struct {
	RequestsPerSecond *float64 `toml:"requests-per-second"`
	RateLimitAttempts *int     `toml:"rate-limit-attempts"`
}

// RetryConfig maps the collaborator retry policy.
type RetryConfig struct {
	Attempts *int    `toml:"attempts"`
	Delay    *string `toml:"delay"`
}

// MetricsConfig maps the textfile metrics output.
type MetricsConfig struct {
	File *string `toml:"file"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}

// ApplyLLM copies the llm section onto c.
func (f FileConfig) ApplyLLM(c *llm.Config) error {
	if f.LLM.Provider != nil {
		c.Provider = *f.LLM.Provider
	}
	if f.LLM.Model != nil {
		switch c.Provider {
		case "groq":
			c.Groq.Model = *f.LLM.Model
		case "anthropic":
			c.Anthropic.Model = *f.LLM.Model
		case "openai":
			c.OpenAI.Model = *f.LLM.Model
		case "gemini":
			c.Gemini.Model = *f.LLM.Model
		case "openrouter":
			c.OpenRouter.Model = *f.LLM.Model
		}
	}
	if f.LLM.Timeout != nil {
		d, err := parseDuration("llm.timeout", *f.LLM.Timeout)
		if err != nil {
			return err
		}
		c.Timeout = d
	}
	if f.LLM.RetryAttempts != nil {
		c.Retry.MaxAttempts = *f.LLM.RetryAttempts
	}
	return nil
}

// EnrichEnabled reports whether web enrichment is on. It defaults to true.
func (f FileConfig) EnrichEnabled() bool {
	return f.Enrich.Enabled == nil || *f.Enrich.Enabled
}

// ApplyEnrich copies the enrich section onto c.
func (f FileConfig) ApplyEnrich(c *enrich.Config) {
	if f.Enrich.MaxResults != nil {
		c.MaxResults = *f.Enrich.MaxResults
	}
	if f.Enrich.MaxChars != nil {
		c.MaxChars = *f.Enrich.MaxChars
	}
}

// ApplyNotion copies the notion section onto c.
func (f FileConfig) ApplyNotion(c *notion.Config) {
	if f.Notion.RequestsPerSecond != nil {
		c.RequestsPerSecond = *f.Notion.RequestsPerSecond
	}
	if f.Notion.RateLimitAttempts != nil {
		c.RateLimitAttempts = *f.Notion.RateLimitAttempts
	}
}

// RetryPolicy returns base overridden by the retry section.
func (f FileConfig) RetryPolicy(base retry.Policy) (retry.Policy, error) {
	if f.Retry.Attempts != nil {
		if *f.Retry.Attempts < 1 {
			return base, fmt.Errorf("retry.attempts must be at least 1, got %d", *f.Retry.Attempts)
		}
		base.Attempts = *f.Retry.Attempts
	}
	if f.Retry.Delay != nil {
		d, err := parseDuration("retry.delay", *f.Retry.Delay)
		if err != nil {
			return base, err
		}
		base.Delay = d
	}
	return base, nil
}

func parseDuration(key, v string) (time.Duration, error) {
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s %q: negative", key, v)
	}
	return d, nil
}

// StringOr returns *p, or def when p is nil.
func StringOr(p *string, def string) string {
	if p == nil {
		return def
	}
	return *p
}
