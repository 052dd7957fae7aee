package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/abhisek/studycoach/internal/eventlog"
)

// LoggingProvider writes one slog line per call and, with a repo, one
// event holding the full prompt and reply.
type LoggingProvider struct {
	inner    Provider
	provider string
	repo     eventlog.Repo
	logger   *slog.Logger
}

func WithLogging(p Provider, providerName string, repo eventlog.Repo, logger *slog.Logger) Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingProvider{
		inner:    p,
		provider: providerName,
		repo:     repo,
		logger:   logger.With("component", "llm"),
	}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	label := LabelFrom(ctx)
	start := time.Now()
	resp, err := l.inner.Generate(ctx, req)

	ev := eventlog.LLMRequestEventData{
		Provider:    l.provider,
		Model:       l.inner.ModelID(),
		Purpose:     label.Purpose,
		Topic:       label.Topic,
		LatencyMs:   time.Since(start).Milliseconds(),
		Success:     err == nil,
		RequestBody: transcript(req),
	}
	if resp != nil {
		ev.InputTokens, ev.OutputTokens = resp.Usage.InputTokens, resp.Usage.OutputTokens
		ev.ResponseBody = string(resp.Content)
		if resp.Model != "" {
			ev.Model = resp.Model
		}
	}
	if err != nil {
		ev.ErrorMessage = err.Error()
	}

	attrs := []any{"purpose", ev.Purpose, "topic", ev.Topic, "model", ev.Model, "latency_ms", ev.LatencyMs}
	if err != nil {
		l.logger.Warn("llm call failed", append(attrs, "error", err)...)
	} else {
		l.logger.Debug("llm call", append(attrs, "input_tokens", ev.InputTokens, "output_tokens", ev.OutputTokens)...)
	}

	if l.repo != nil {
		if logErr := l.repo.AppendLLMRequest(ctx, ev); logErr != nil {
			l.logger.Warn("could not record llm call", "error", logErr)
		}
	}
	return resp, err
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}

// transcript renders a request the way `studycoach llm view` shows it.
func transcript(req Request) string {
	var b strings.Builder
	section := func(tag, body string) {
		fmt.Fprintf(&b, "[%s]\n%s\n\n", tag, body)
	}
	if req.System != "" {
		section("system", req.System)
	}
	for _, m := range req.Messages {
		section(string(m.Role), m.Content)
	}
	if req.Schema != nil {
		if def, err := json.MarshalIndent(req.Schema.Definition, "", "  "); err == nil {
			section("schema: "+req.Schema.Name, string(def))
		}
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}
