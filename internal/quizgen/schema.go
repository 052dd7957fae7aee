package quizgen

import "github.com/abhisek/studycoach/internal/llm"

func itemsSchema(description string) map[string]any {
	return map[string]any{
		"type":        "array",
		"description": description,
		"minItems":    2,
		"maxItems":    2,
		"items": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"question": map[string]any{
					"type":        "string",
					"description": "The question shown to the learner",
				},
				"answer": map[string]any{
					"type":        "string",
					"description": "The reference answer used for grading",
				},
			},
			"required":             []any{"question", "answer"},
			"additionalProperties": false,
		},
	}
}

// QuizSchema defines the three-section quiz the model must return.
var QuizSchema = &llm.Schema{
	Name:        "study-quiz",
	Description: "a six-question study quiz in three sections of two questions each",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"easy":        itemsSchema("Two precise basic questions: definitions, flags, defaults, syntax"),
			"development": itemsSchema("Two analysis questions: why something works, comparisons, code reading"),
			"case_study":  itemsSchema("Two realistic scenarios solved by applying a specific fact from the text"),
		},
		"required":             []any{"easy", "development", "case_study"},
		"additionalProperties": false,
	},
}
