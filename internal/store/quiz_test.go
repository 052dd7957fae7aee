package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuizValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(q *Quiz)
		wantErr string
	}{
		{"valid", func(*Quiz) {}, ""},
		{"short section", func(q *Quiz) { q.Easy = q.Easy[:1] }, "Quiz.Easy must have exactly 2 questions"},
		{"extra item", func(q *Quiz) { q.CaseStudy = append(q.CaseStudy, q.CaseStudy[0]) }, "Quiz.CaseStudy must have exactly 2"},
		{"empty answer", func(q *Quiz) { q.Development[1].Answer = "" }, "Quiz.Development[1].Answer is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := sampleQuiz()
			tt.mutate(&q)
			err := q.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEvaluationValidate(t *testing.T) {
	tests := []struct {
		name    string
		ev      Evaluation
		wantErr string
	}{
		{"valid", Evaluation{Level: LevelMedium, Confidence: 0.5}, ""},
		{"bounds inclusive", Evaluation{Level: LevelHigh, Confidence: 1}, ""},
		{"unknown level", Evaluation{Level: "excellent", Confidence: 0.5}, "Evaluation.Level must be one of low medium high"},
		{"empty level", Evaluation{Confidence: 0.5}, "Evaluation.Level"},
		{"negative confidence", Evaluation{Level: LevelLow, Confidence: -0.1}, "Evaluation.Confidence is out of range"},
		{"confidence above one", Evaluation{Level: LevelLow, Confidence: 1.5}, "Evaluation.Confidence is out of range"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ev.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
