// Package enrich appends short web summaries to a topic's study material.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/abhisek/studycoach/internal/collab"
	"github.com/abhisek/studycoach/internal/textutil"
)

const defaultBaseURL = "https://api.duckduckgo.com/"

// Config controls the DuckDuckGo enricher.
type Config struct {
	BaseURL    string
	MaxResults int
	MaxChars   int
	Timeout    time.Duration
}

// DefaultConfig returns the standard enrichment limits.
func DefaultConfig() Config {
	return Config{
		BaseURL:    defaultBaseURL,
		MaxResults: 5,
		MaxChars:   2000,
		Timeout:    10 * time.Second,
	}
}

// Result is one search hit.
type Result struct {
	Title   string
	Snippet string
	URL     string
}

// DuckDuckGo enriches content with the DuckDuckGo Instant Answer API. The
// first failure disables it for the rest of the process.
type DuckDuckGo struct {
	client   *http.Client
	cfg      Config
	logger   *slog.Logger
	disabled bool
}

// New creates a DuckDuckGo enricher.
func New(cfg Config, logger *slog.Logger) *DuckDuckGo {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DuckDuckGo{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
		logger: logger.With("component", "enrich"),
	}
}

// Enrich returns content followed by a block of web material, or content
// unchanged when the search fails or finds nothing.
func (d *DuckDuckGo) Enrich(ctx context.Context, title, content string) string {
	if d.disabled {
		return content
	}
	results, err := d.Search(ctx, title)
	if err != nil {
		d.disabled = true
		d.logger.Warn("web enrichment disabled", "topic", title, "error", err)
		return content
	}
	if len(results) == 0 {
		d.logger.Debug("no web results", "topic", title)
		return content
	}
	d.logger.Debug("enriched content", "topic", title, "results", len(results))
	return content + "\n" + Format(results, d.cfg.MaxChars)
}

// instantAnswer is the subset of the API response we read.
type instantAnswer struct {
	Heading       string         `json:"Heading"`
	AbstractText  string         `json:"AbstractText"`
	AbstractURL   string         `json:"AbstractURL"`
	RelatedTopics []relatedTopic `json:"RelatedTopics"`
}

type relatedTopic struct {
	Text     string         `json:"Text"`
	FirstURL string         `json:"FirstURL"`
	Topics   []relatedTopic `json:"Topics"`
}

// Search queries the API for title and flattens the abstract and related
// topics into at most MaxResults results.
func (d *DuckDuckGo) Search(ctx context.Context, title string) ([]Result, error) {
	q := url.Values{}
	q.Set("q", title)
	q.Set("format", "json")
	q.Set("no_html", "1")
	q.Set("skip_disambig", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.cfg.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", title, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search %q: HTTP %d", title, resp.StatusCode)
	}

	var ia instantAnswer
	if err := json.NewDecoder(resp.Body).Decode(&ia); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	var out []Result
	if ia.AbstractText != "" {
		out = append(out, Result{Title: ia.Heading, Snippet: ia.AbstractText, URL: ia.AbstractURL})
	}
	var walk func([]relatedTopic)
	walk = func(topics []relatedTopic) {
		for _, t := range topics {
			if len(out) >= d.cfg.MaxResults {
				return
			}
			if len(t.Topics) > 0 {
				walk(t.Topics)
				continue
			}
			if t.Text == "" {
				continue
			}
			out = append(out, Result{Title: headline(t.Text), Snippet: t.Text, URL: t.FirstURL})
		}
	}
	walk(ia.RelatedTopics)

	if len(out) > d.cfg.MaxResults {
		out = out[:d.cfg.MaxResults]
	}
	return out, nil
}

// headline takes the part of a related-topic text before its first " - ".
func headline(text string) string {
	if i := strings.Index(text, " - "); i > 0 {
		return text[:i]
	}
	return textutil.Ellipsize(text, 60)
}

// Format renders results under collab.WebContextHeading. Whole entries are
// added while the block stays within maxChars.
func Format(results []Result, maxChars int) string {
	if len(results) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(collab.WebContextHeading)
	b.WriteString("\n")
	count := b.Len()
	for i, r := range results {
		entry := fmt.Sprintf("\n[%d] %s\n%s\nSource: %s\n", i+1, r.Title, r.Snippet, r.URL)
		if count+len(entry) > maxChars {
			break
		}
		b.WriteString(entry)
		count += len(entry)
	}
	b.WriteString("\n=== End complementary information ===\n")
	return b.String()
}

// Noop is an Enricher that returns content unchanged.
type Noop struct{}

// Enrich returns content.
func (Noop) Enrich(_ context.Context, _, content string) string { return content }
