package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// MockResponse is a canned response for the MockProvider.
type MockResponse struct {
	Content json.RawMessage
	Usage   Usage
	Err     error
}

// JSONResponse marshals v into a canned response. It panics if v cannot
// be marshaled, which only happens with test fixtures that are wrong.
func JSONResponse(v any) MockResponse {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return MockResponse{Content: data}
}

// MockProvider is a deterministic Provider for tests and dry runs. Canned
// responses are served in FIFO order, then Responder takes over.
type MockProvider struct {
	mu        sync.Mutex
	responses []MockResponse
	Calls     []Request

	// Responder answers requests once the queue is drained.
	Responder func(Request) MockResponse
}

// NewMockProvider creates a MockProvider with the given canned responses.
func NewMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{responses: responses}
}

// Generate returns the next canned response, or a KindUnavailable error
// when nothing is left to answer with.
func (m *MockProvider) Generate(_ context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, req)

	var resp MockResponse
	switch {
	case len(m.responses) > 0:
		resp = m.responses[0]
		m.responses = m.responses[1:]
	case m.Responder != nil:
		resp = m.Responder(req)
	default:
		return nil, &Error{Kind: KindUnavailable, Err: errors.New("mock exhausted")}
	}

	if resp.Err != nil {
		return nil, resp.Err
	}
	if req.Schema != nil {
		if err := validateResponse(req.Schema, resp.Content); err != nil {
			return nil, err
		}
	}

	return &Response{
		Content:    resp.Content,
		Usage:      resp.Usage,
		Model:      "mock",
		StopReason: "end",
	}, nil
}

// ModelID returns "mock".
func (m *MockProvider) ModelID() string {
	return "mock"
}

// AddResponse appends a canned response to the queue.
func (m *MockProvider) AddResponse(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
}

// CallCount returns the number of Generate calls made.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// LastCall returns the most recent request, or false if none was made.
func (m *MockProvider) LastCall() (Request, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Calls) == 0 {
		return Request{}, false
	}
	return m.Calls[len(m.Calls)-1], true
}

// SampleResponder answers any request with the smallest value its schema
// accepts: enums take their first member, arrays their minItems, numbers
// their minimum. Requests without a schema get a fixed sentence.
func SampleResponder(req Request) MockResponse {
	if req.Schema == nil {
		return JSONResponse("mock reply")
	}
	return JSONResponse(sample("value", req.Schema.Definition))
}

func sample(name string, def map[string]any) any {
	if enum := schemaStrings(def["enum"]); len(enum) > 0 {
		return enum[0]
	}
	switch def["type"] {
	case "object":
		out := map[string]any{}
		props, _ := def["properties"].(map[string]any)
		for prop, v := range props {
			if sub, ok := v.(map[string]any); ok {
				out[prop] = sample(prop, sub)
			}
		}
		return out
	case "array":
		items, _ := def["items"].(map[string]any)
		n := 1
		if min := schemaInt(def["minItems"]); min != nil {
			n = int(*min)
		}
		out := make([]any, n)
		for i := range out {
			out[i] = sample(fmt.Sprintf("%s %d", name, i+1), items)
		}
		return out
	case "number", "integer":
		n, _ := schemaNumber(def["minimum"])
		return n
	case "boolean":
		return false
	default:
		return "sample " + name
	}
}
