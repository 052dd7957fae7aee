package notion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/studycoach/internal/collab"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	cfg := DefaultConfig()
	cfg.RequestsPerSecond = 0
	return newTestClientWith(t, cfg, h)
}

func newTestClientWith(t *testing.T, cfg Config, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg.Token = "secret"
	cfg.BaseURL = srv.URL
	c, err := New(cfg, nil)
	require.NoError(t, err)
	return c
}

func blockID(r *http.Request) string {
	return strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v1/blocks/"), "/children")
}

func titledPage(id, title string) map[string]any {
	return map[string]any{
		"object": "page",
		"id":     id,
		"properties": map[string]any{
			"Name": map[string]any{
				"id":    "title",
				"type":  "title",
				"title": []any{map[string]any{"plain_text": title}},
			},
		},
	}
}

func TestFetchCandidateTopics_Paginates(t *testing.T) {
	var cursors []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/search", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, APIVersion, r.Header.Get("Notion-Version"))

		var req notionapi.SearchRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "page", req.Filter.Value)
		assert.Equal(t, 100, req.PageSize)
		cursors = append(cursors, req.StartCursor.String())

		if req.StartCursor == "" {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"results":     []any{titledPage("p1", "Networking"), map[string]any{"object": "page", "id": "p2", "properties": map[string]any{}}},
				"has_more":    true,
				"next_cursor": "c2",
			})
			return
		}
		archived := titledPage("p4", "Old")
		archived["archived"] = true
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results":  []any{titledPage("p3", "Crypto"), archived},
			"has_more": false,
		})
	})

	topics, err := c.FetchCandidateTopics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"", "c2"}, cursors)
	assert.Equal(t, []collab.Topic{
		{ID: "p1", Title: "Networking"},
		{ID: "p2", Title: UntitledTopic},
		{ID: "p3", Title: "Crypto"},
	}, topics)
}

func TestFetchCandidateTopics_Error(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"object":"error","status":401,"code":"unauthorized","message":"API token is invalid."}`))
	})

	_, err := c.FetchCandidateTopics(context.Background())
	var apiErr *notionapi.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, notionapi.ErrorCode("unauthorized"), apiErr.Code)
}

func TestFetchCandidateTopics_PartialOnLaterFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req notionapi.SearchRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.StartCursor != "" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []any{titledPage("p1", "One")}, "has_more": true, "next_cursor": "c2",
		})
	})

	topics, err := c.FetchCandidateTopics(context.Background())
	require.NoError(t, err)
	assert.Len(t, topics, 1)
}

func textBlock(kind, text string) map[string]any {
	return map[string]any{
		"id":   kind + "-" + text,
		"type": kind,
		kind:   map[string]any{"rich_text": []any{map[string]any{"plain_text": text}}},
	}
}

func childPage(id, title string) map[string]any {
	return map[string]any{"id": id, "type": "child_page", "child_page": map[string]any{"title": title}}
}

func TestFetchContent_RecursesIntoChildPages(t *testing.T) {
	pages := map[string][]any{
		"root":  {textBlock("heading_1", "DNS"), textBlock("paragraph", "Resolvers cache answers."), childPage("child", "Records"), map[string]any{"id": "img", "type": "image", "image": map[string]any{}}},
		"child": {textBlock("bulleted_list_item", "A record"), textBlock("bulleted_list_item", "MX record")},
	}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		id := blockID(r)
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "100", r.URL.Query().Get("page_size"))
		_ = json.NewEncoder(w).Encode(map[string]any{"results": pages[id], "has_more": false})
	})

	text, err := c.FetchContent(context.Background(), "root")
	require.NoError(t, err)
	assert.Equal(t, "DNS\nResolvers cache answers.\n\n--- Sub-page: Records ---\nA record\nMX record\n--- End sub-page: Records ---\n", text)
}

func TestFetchContent_DepthLimit(t *testing.T) {
	var calls int
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		id := blockID(r)
		next := fmt.Sprintf("%s-x", id)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results":  []any{textBlock("paragraph", id), childPage(next, next)},
			"has_more": false,
		})
	})

	_, err := c.FetchContent(context.Background(), "p")
	require.NoError(t, err)
	// depths 0..MaxDepth
	assert.Equal(t, MaxDepth+1, calls)
}

func TestFetchContent_Paginates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("start_cursor") == "" {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"results": []any{textBlock("paragraph", "first")}, "has_more": true, "next_cursor": "n2",
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []any{textBlock("quote", "second")}, "has_more": false,
		})
	})

	text, err := c.FetchContent(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond", text)
}

func TestFetchContent_RootError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"status":404,"code":"object_not_found","message":"Could not find block"}`))
	})

	_, err := c.FetchContent(context.Background(), "missing")
	var apiErr *notionapi.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, notionapi.ErrorCode("object_not_found"), apiErr.Code)
}

func TestFetchContent_CodeBlock(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []any{
				textBlock("paragraph", "Run it:"),
				map[string]any{"id": "c1", "type": "code", "code": map[string]any{
					"language":  "shell",
					"rich_text": []any{map[string]any{"plain_text": "dig +trace example.com"}},
				}},
				map[string]any{"id": "d1", "type": "divider", "divider": map[string]any{}},
			},
			"has_more": false,
		})
	})

	text, err := c.FetchContent(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "Run it:\ndig +trace example.com", text)
}

func TestFetchContent_RetriesRateLimitedRequest(t *testing.T) {
	var calls int
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []any{textBlock("paragraph", "after wait")}, "has_more": false,
		})
	})

	text, err := c.FetchContent(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "after wait", text)
	assert.Equal(t, 2, calls)
}

func TestFetchContent_GivesUpAfterRateLimitAttempts(t *testing.T) {
	var calls int
	cfg := DefaultConfig()
	cfg.RequestsPerSecond = 0
	cfg.RateLimitAttempts = 2
	c := newTestClientWith(t, cfg, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.FetchContent(context.Background(), "p")
	var limited *notionapi.RateLimitedError
	require.ErrorAs(t, err, &limited)
	assert.Equal(t, 2, calls)
}

func TestFetchContent_ThrottleHonoursDeadline(t *testing.T) {
	var calls int
	cfg := DefaultConfig()
	cfg.RequestsPerSecond = 0.001
	c := newTestClientWith(t, cfg, func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []any{textBlock("paragraph", "first")}, "has_more": true, "next_cursor": "n2",
		})
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	// The second page would wait far past the deadline, so the first is kept.
	text, err := c.FetchContent(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, "first", text)
	assert.Equal(t, 1, calls)
}

func TestNew_RequiresToken(t *testing.T) {
	_, err := New(DefaultConfig(), nil)
	assert.Error(t, err)
}

func TestNew_RejectsBadBaseURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Token = "secret"
	cfg.BaseURL = "not a url"
	_, err := New(cfg, nil)
	assert.Error(t, err)
}
