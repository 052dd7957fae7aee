package llm

import "regexp"

// ModelCost is USD per million tokens.
type ModelCost struct {
	InputPerMTok  float64
	OutputPerMTok float64
}

func (c ModelCost) Cost(inputTokens, outputTokens int) float64 {
	return (float64(inputTokens)*c.InputPerMTok + float64(outputTokens)*c.OutputPerMTok) / 1e6
}

// dated snapshot suffix, e.g. "-20251001"
var snapshotSuffix = regexp.MustCompile(`-\d{8}$`)

// LookupCost returns pricing for a model ID, or nil if unknown. Dated
// snapshots fall back to their undated alias.
func LookupCost(modelID string) *ModelCost {
	if c, ok := modelCosts[modelID]; ok {
		return &c
	}
	if c, ok := modelCosts[snapshotSuffix.ReplaceAllString(modelID, "")]; ok {
		return &c
	}
	return nil
}

// Prices as of 2026-09-30 for the defaults and friendly names in config.go.
var modelCosts = map[string]ModelCost{
	"llama-3.3-70b-versatile":           {0.59, 0.79},
	"llama-3.1-8b-instant":              {0.05, 0.08},
	"meta-llama/llama-3.3-70b-instruct": {0.13, 0.39},
	"claude-haiku-4-5":                  {1, 5},
	"claude-sonnet-4-5":                 {3, 15},
	"gpt-4o":                            {2.5, 10},
	"gpt-4o-mini":                       {0.15, 0.6},
	"gpt-4.1-mini":                      {0.4, 1.6},
	"gemini-2.5-flash":                  {0.3, 2.5},
	"gemini-2.5-flash-lite":             {0.1, 0.4},
	"gemini-2.5-pro":                    {1.25, 10},
}
