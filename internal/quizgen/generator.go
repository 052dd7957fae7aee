// Package quizgen generates six-question study quizzes from topic content
// with an LLM.
package quizgen

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abhisek/studycoach/internal/collab"
	"github.com/abhisek/studycoach/internal/llm"
	"github.com/abhisek/studycoach/internal/store"
)

// Purpose labels quiz generation requests in the LLM event log.
const Purpose = "quiz-gen"

// Config controls the behavior of the Generator.
type Config struct {
	// MaxTokens is the token budget for the LLM response.
	MaxTokens int

	// Temperature controls LLM output randomness (0.0-1.0).
	Temperature float64

	// MaxContentChars caps the source text included in the prompt.
	MaxContentChars int
}

// DefaultConfig returns the recommended generation settings.
func DefaultConfig() Config {
	return Config{
		MaxTokens:       2048,
		Temperature:     0.5,
		MaxContentChars: 7000,
	}
}

// Generator implements collab.QuizGenerator using an LLM provider.
type Generator struct {
	provider llm.Provider
	config   Config
}

// New creates a Generator with the given provider and config.
func New(provider llm.Provider, cfg Config) *Generator {
	return &Generator{provider: provider, config: cfg}
}

// Generate produces a validated quiz for the input topic.
func (g *Generator) Generate(ctx context.Context, in collab.GenerateInput) (*store.Quiz, error) {
	if strings.TrimSpace(in.Content) == "" {
		return nil, fmt.Errorf("generate quiz for %q: no content", in.Title)
	}

	ctx = llm.WithLabel(ctx, llm.Label{Purpose: Purpose, Topic: in.Title})

	req := llm.Request{
		System: systemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildUserMessage(in, g.config.MaxContentChars)},
		},
		Schema:      QuizSchema,
		MaxTokens:   g.config.MaxTokens,
		Temperature: g.config.Temperature,
	}

	resp, err := g.provider.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("LLM generation failed: %w", err)
	}

	var quiz store.Quiz
	if err := json.Unmarshal(resp.Content, &quiz); err != nil {
		return nil, fmt.Errorf("failed to parse LLM response: %w", err)
	}
	normalize(&quiz)

	if err := quiz.Validate(); err != nil {
		return nil, err
	}
	return &quiz, nil
}

func normalize(q *store.Quiz) {
	for _, sec := range [][]store.QuizItem{q.Easy, q.Development, q.CaseStudy} {
		for i := range sec {
			sec[i].Question = strings.TrimSpace(sec[i].Question)
			sec[i].Answer = strings.TrimSpace(sec[i].Answer)
		}
	}
}
