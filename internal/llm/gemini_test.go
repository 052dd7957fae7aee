package llm

import (
	"slices"
	"testing"
)

func TestGeminiModelMapping(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"gemini-flash", "gemini-2.5-flash"},
		{"gemini-lite", "gemini-2.5-flash-lite"},
		{"gemini-pro", "gemini-2.5-pro"},
		{"gemini-2.0-flash", "gemini-2.0-flash"},
	}
	for _, tt := range tests {
		got := resolveModel(tt.input, geminiModels)
		if got != tt.expected {
			t.Errorf("resolveModel(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestBuildGeminiSchema(t *testing.T) {
	def := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"level":      map[string]any{"type": "string", "enum": []any{"low", "medium", "high"}},
			"confidence": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
			"gaps": map[string]any{
				"type":     "array",
				"items":    map[string]any{"type": "string"},
				"minItems": 0,
				"maxItems": 5,
			},
			"attempts": map[string]any{"type": "integer"},
		},
		"required": []any{"level", "confidence"},
	}

	schema := buildGeminiSchema(def)

	if schema.Type != "OBJECT" {
		t.Fatalf("expected OBJECT type, got %s", schema.Type)
	}
	if len(schema.Properties) != 4 {
		t.Fatalf("expected 4 properties, got %d", len(schema.Properties))
	}
	if got := schema.Properties["level"]; got.Type != "STRING" || len(got.Enum) != 3 {
		t.Fatalf("level = %s with %d enum values", got.Type, len(got.Enum))
	}
	conf := schema.Properties["confidence"]
	if conf.Type != "NUMBER" {
		t.Fatalf("expected NUMBER for confidence, got %s", conf.Type)
	}
	if conf.Minimum == nil || *conf.Minimum != 0 || conf.Maximum == nil || *conf.Maximum != 1 {
		t.Fatalf("confidence bounds not carried over: %v %v", conf.Minimum, conf.Maximum)
	}
	gaps := schema.Properties["gaps"]
	if gaps.Type != "ARRAY" || gaps.Items.Type != "STRING" {
		t.Fatalf("gaps = %s of %s", gaps.Type, gaps.Items.Type)
	}
	if gaps.MaxItems == nil || *gaps.MaxItems != 5 {
		t.Fatalf("expected maxItems 5, got %v", gaps.MaxItems)
	}
	if schema.Properties["attempts"].Type != "INTEGER" {
		t.Fatalf("expected INTEGER for attempts, got %s", schema.Properties["attempts"].Type)
	}
	if len(schema.Required) != 2 {
		t.Fatalf("expected 2 required fields, got %d", len(schema.Required))
	}
	want := []string{"level", "confidence", "attempts", "gaps"}
	if !slices.Equal(schema.PropertyOrdering, want) {
		t.Fatalf("ordering = %v, want %v", schema.PropertyOrdering, want)
	}
	if gaps.MinItems == nil || *gaps.MinItems != 0 || conf.MinItems != nil {
		t.Fatalf("minItems not carried over: %v %v", gaps.MinItems, conf.MinItems)
	}
}
