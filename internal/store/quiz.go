package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// QuestionCount is the number of questions in every quiz.
const QuestionCount = 6

// Section names as they appear on the wire.
const (
	SectionEasy        = "easy"
	SectionDevelopment = "development"
	SectionCaseStudy   = "case_study"
)

// QuizItem is one question with its reference answer.
type QuizItem struct {
	Question string `json:"question" validate:"required"`
	Answer   string `json:"answer" validate:"required"`
}

// Quiz is the three-section payload sent to the learner.
type Quiz struct {
	Easy        []QuizItem `json:"easy" validate:"len=2,dive"`
	Development []QuizItem `json:"development" validate:"len=2,dive"`
	CaseStudy   []QuizItem `json:"case_study" validate:"len=2,dive"`
}

// NumberedItem is a quiz item with its 1-based position across sections.
type NumberedItem struct {
	Number  int
	Section string
	QuizItem
}

// Items returns the questions in delivery order, numbered 1..6.
func (q Quiz) Items() []NumberedItem {
	var out []NumberedItem
	n := 1
	for _, sec := range []struct {
		name  string
		items []QuizItem
	}{
		{SectionEasy, q.Easy},
		{SectionDevelopment, q.Development},
		{SectionCaseStudy, q.CaseStudy},
	} {
		for _, it := range sec.items {
			out = append(out, NumberedItem{Number: n, Section: sec.name, QuizItem: it})
			n++
		}
	}
	return out
}

var structValidate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the structural contract: exactly three sections of two
// items, each with a non-empty question and answer.
func (q Quiz) Validate() error {
	return describe("quiz", structValidate.Struct(q))
}

// Validate checks that the level is canonical and the confidence lies in
// [0, 1].
func (e Evaluation) Validate() error {
	return describe("evaluation", structValidate.Struct(e))
}

func describe(what string, err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate %s: %w", what, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "len":
			msgs = append(msgs, fmt.Sprintf("%s must have exactly %s questions", fe.Namespace(), fe.Param()))
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Namespace()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of %s, got %v", fe.Namespace(), fe.Param(), fe.Value()))
		case "gte", "lte":
			msgs = append(msgs, fmt.Sprintf("%s is out of range: %v", fe.Namespace(), fe.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
		}
	}
	return fmt.Errorf("invalid %s: %s", what, strings.Join(msgs, "; "))
}
