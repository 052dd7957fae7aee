// Package llm talks to hosted language models on behalf of quiz
// generation and answer grading. Every provider returns JSON that has
// been checked against the caller's schema.
package llm

import (
	"context"
	"encoding/json"
)

// Provider produces one structured completion per call.
type Provider interface {
	// Generate returns Content conforming to req.Schema when one is set,
	// or the raw reply text encoded as a JSON string otherwise.
	Generate(ctx context.Context, req Request) (*Response, error)

	ModelID() string
}

// Request is a single-turn prompt. Quiz generation and grading each send
// one user message under a fixed system prompt.
type Request struct {
	System      string
	Messages    []Message
	Schema      *Schema
	MaxTokens   int
	Temperature float64 // 0 when unset
}

type Message struct {
	Role    Role
	Content string
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema is a JSON Schema plus the name providers expose it under
// (a tool name for Anthropic, a response format name for OpenAI).
type Schema struct {
	Name        string // kebab-case, e.g. "quiz"
	Description string
	Definition  map[string]any
}

type Response struct {
	Content json.RawMessage
	Usage   Usage
	Model   string // model that served the call, may differ from ModelID

	// StopReason is one of "end", "max_tokens" or "error".
	StopReason string
}

type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
