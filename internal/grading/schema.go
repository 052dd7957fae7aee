package grading

import "github.com/abhisek/studycoach/internal/llm"

// EvaluationSchema defines the JSON schema for grading responses.
var EvaluationSchema = &llm.Schema{
	Name:        "answer-evaluation",
	Description: "an evaluation of a learner's quiz answers",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"level": map[string]any{
				"type":        "string",
				"description": "Overall performance level: low, medium or high",
			},
			"confidence": map[string]any{
				"type":        "number",
				"minimum":     0,
				"maximum":     1,
				"description": "How confident the grader is in the level",
			},
			"rationale": map[string]any{
				"type":        "string",
				"description": "Two to five sentences justifying the level",
			},
			"gaps": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Missing concepts or errors",
			},
			"suggested_review": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Concrete things to review next",
			},
		},
		"required":             []any{"level", "confidence", "rationale", "gaps", "suggested_review"},
		"additionalProperties": false,
	},
}
