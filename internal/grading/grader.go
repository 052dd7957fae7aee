// Package grading evaluates a learner's combined quiz answers with an LLM.
package grading

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/abhisek/studycoach/internal/llm"
	"github.com/abhisek/studycoach/internal/store"
)

// Purpose labels evaluation requests in the LLM event log.
const Purpose = "evaluation"

// FallbackRationale is reported when no evaluation could be obtained.
const FallbackRationale = "automatic evaluation failed"

// Config holds configuration for the Grader.
type Config struct {
	MaxTokens   int
	Temperature float64
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxTokens:   1024,
		Temperature: 0.2,
	}
}

// Grader implements collab.Evaluator using an LLM provider.
type Grader struct {
	provider llm.Provider
	cfg      Config
	logger   *slog.Logger
}

// New creates an LLM-backed grader.
func New(provider llm.Provider, cfg Config, logger *slog.Logger) *Grader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Grader{provider: provider, cfg: cfg, logger: logger.With("component", "grading")}
}

// Fallback is the evaluation used when grading fails.
func Fallback() store.Evaluation {
	return store.Evaluation{
		Level:           store.LevelLow,
		Confidence:      0,
		Rationale:       FallbackRationale,
		Gaps:            []string{},
		SuggestedReview: []string{},
	}
}

// evaluationOutput is the raw LLM response.
type evaluationOutput struct {
	Level           string   `json:"level"`
	Confidence      float64  `json:"confidence"`
	Rationale       string   `json:"rationale"`
	Gaps            []string `json:"gaps"`
	SuggestedReview []string `json:"suggested_review"`
}

// Evaluate grades combined answers against the quiz. It never fails: any
// error yields Fallback.
func (g *Grader) Evaluate(ctx context.Context, title string, quiz store.Quiz, combined string) store.Evaluation {
	ev, err := g.evaluate(ctx, title, quiz, combined)
	if err != nil {
		g.logger.Warn("evaluation failed, using fallback", "topic", title, "error", err)
		return Fallback()
	}
	return ev
}

func (g *Grader) evaluate(ctx context.Context, title string, quiz store.Quiz, combined string) (store.Evaluation, error) {
	ctx = llm.WithLabel(ctx, llm.Label{Purpose: Purpose, Topic: title})

	userMsg, err := buildEvaluationMessage(title, quiz, combined)
	if err != nil {
		return store.Evaluation{}, fmt.Errorf("build evaluation prompt: %w", err)
	}

	resp, err := g.provider.Generate(ctx, llm.Request{
		System: evaluationSystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: userMsg},
		},
		Schema:      EvaluationSchema,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
	})
	if err != nil {
		return store.Evaluation{}, fmt.Errorf("LLM evaluation failed: %w", err)
	}

	var raw evaluationOutput
	if err := json.Unmarshal(resp.Content, &raw); err != nil {
		return store.Evaluation{}, fmt.Errorf("failed to parse evaluation response: %w", err)
	}

	level, ok := store.ParseLevel(raw.Level)
	if !ok {
		g.logger.Debug("unrecognized evaluation level", "level", raw.Level)
	}

	ev := store.Evaluation{
		Level:           level,
		Confidence:      raw.Confidence,
		Rationale:       strings.TrimSpace(raw.Rationale),
		Gaps:            nonNil(raw.Gaps),
		SuggestedReview: nonNil(raw.SuggestedReview),
	}
	if err := ev.Validate(); err != nil {
		return store.Evaluation{}, err
	}
	return ev, nil
}

func nonNil(s []string) []string {
	out := make([]string, 0, len(s))
	for _, v := range s {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

const evaluationSystemPrompt = `You are a strict but fair examiner. Grade a learner's free-form answers to a study quiz.

Instructions:
- Judge how well the answers cover and explain the relevant content, using the reference answers as context.
- Classify performance as exactly one of "low", "medium" or "high".
- Confidence is between 0.0 and 1.0.
- The rationale is two to five sentences.
- List the missing concepts or errors as short gaps.
- Suggest three concrete things to review.
- Return only JSON. No markdown.`

var evaluationUserTemplate = template.Must(template.New("evaluation").Parse(`Topic: {{.Title}}

Questions and reference answers:
{{range .Items}}{{.Number}}. [{{.Section}}] {{.Question}}
   Reference: {{.Answer}}
{{end}}
Learner's answers:
{{.Combined}}
`))

func buildEvaluationMessage(title string, quiz store.Quiz, combined string) (string, error) {
	var buf bytes.Buffer
	err := evaluationUserTemplate.Execute(&buf, struct {
		Title    string
		Items    []store.NumberedItem
		Combined string
	}{title, quiz.Items(), combined})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
