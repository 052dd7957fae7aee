// Package notion reads study topics and their text from a Notion
// workspace through github.com/jomei/notionapi.
package notion

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jomei/notionapi"
	"golang.org/x/time/rate"

	"github.com/abhisek/studycoach/internal/collab"
)

const (
	// APIVersion is sent as the Notion-Version header.
	APIVersion = "2022-06-28"

	// MaxDepth bounds recursion into child pages.
	MaxDepth = 5

	// UntitledTopic is used when a page has no title.
	UntitledTopic = "Untitled"

	pageSize = 100
)

// Config holds the integration token and client limits.
type Config struct {
	Token string

	// BaseURL redirects API calls to another origin. Empty means
	// api.notion.com.
	BaseURL string
	Timeout time.Duration

	// RequestsPerSecond throttles API calls. Zero means unlimited.
	RequestsPerSecond float64

	// RateLimitAttempts caps the attempts for a request answered with 429,
	// each waiting out Retry-After. Zero keeps the library default.
	RateLimitAttempts int
}

// DefaultConfig returns the limits Notion documents for integrations.
func DefaultConfig() Config {
	return Config{
		Timeout:           30 * time.Second,
		RequestsPerSecond: 3,
		RateLimitAttempts: 3,
	}
}

// Client implements collab.ContentSource.
type Client struct {
	api    *notionapi.Client
	logger *slog.Logger
}

// New creates a Notion client.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("NOTION_TOKEN is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	rt := &throttle{limiter: rate.NewLimiter(limit, 1), next: http.DefaultTransport}
	if cfg.BaseURL != "" {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("invalid notion base URL %q", cfg.BaseURL)
		}
		rt.origin = u
	}

	opts := []notionapi.ClientOption{
		notionapi.WithHTTPClient(&http.Client{Timeout: cfg.Timeout, Transport: rt}),
		notionapi.WithVersion(APIVersion),
	}
	if cfg.RateLimitAttempts > 0 {
		opts = append(opts, notionapi.WithRetry(cfg.RateLimitAttempts))
	}
	api := notionapi.NewClient(notionapi.Token(cfg.Token), opts...)
	return &Client{api: api, logger: logger.With("component", "notion")}, nil
}

// throttle paces every HTTP request, including the library's own 429
// retries, and optionally sends it to another origin.
type throttle struct {
	limiter *rate.Limiter
	origin  *url.URL
	next    http.RoundTripper
}

func (t *throttle) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	if t.origin != nil {
		req = req.Clone(req.Context())
		req.URL.Scheme = t.origin.Scheme
		req.URL.Host = t.origin.Host
		req.Host = ""
	}
	return t.next.RoundTrip(req)
}

// FetchCandidateTopics lists every page shared with the integration. A
// failure after the first page of results returns what was collected.
func (c *Client) FetchCandidateTopics(ctx context.Context) ([]collab.Topic, error) {
	var topics []collab.Topic
	var cursor notionapi.Cursor
	for {
		resp, err := c.api.Search.Do(ctx, &notionapi.SearchRequest{
			Filter:      notionapi.SearchFilter{Value: "page", Property: "object"},
			StartCursor: cursor,
			PageSize:    pageSize,
		})
		if err != nil {
			if len(topics) == 0 {
				return nil, fmt.Errorf("notion search: %w", err)
			}
			c.logger.Warn("notion search truncated", "topics", len(topics), "error", err)
			return topics, nil
		}

		for _, obj := range resp.Results {
			p, ok := obj.(*notionapi.Page)
			if !ok || p.Archived {
				continue
			}
			topics = append(topics, collab.Topic{ID: p.ID.String(), Title: pageTitle(p)})
		}

		if !resp.HasMore || resp.NextCursor == "" {
			return topics, nil
		}
		cursor = resp.NextCursor
	}
}

// pageTitle joins the plain text of the page's title property.
func pageTitle(p *notionapi.Page) string {
	for _, prop := range p.Properties {
		tp, ok := prop.(*notionapi.TitleProperty)
		if !ok {
			continue
		}
		if t := strings.TrimSpace(plainText(tp.Title)); t != "" {
			return t
		}
		break
	}
	return UntitledTopic
}

func plainText(rich []notionapi.RichText) string {
	var b strings.Builder
	for _, rt := range rich {
		b.WriteString(rt.PlainText)
	}
	return b.String()
}
