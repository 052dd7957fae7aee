package runner

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/abhisek/studycoach/internal/coach"
	"github.com/abhisek/studycoach/internal/collab"
	"github.com/abhisek/studycoach/internal/session"
	"github.com/abhisek/studycoach/internal/spacedrep"
	"github.com/abhisek/studycoach/internal/store"
)

// selectTopic ranks topics against their recorded state.
func selectTopic(doc *store.Document, topics []collab.Topic, now time.Time) (spacedrep.Selection, bool) {
	candidates := make([]spacedrep.Candidate, 0, len(topics))
	for _, t := range topics {
		candidates = append(candidates, spacedrep.Candidate{ID: t.ID, Title: t.Title, State: doc.Topic(t.ID)})
	}
	return spacedrep.SelectTopic(candidates, now)
}

// generateInput assembles the coach context for a scheduled topic.
func generateInput(doc *store.Document, topics []collab.Topic, id, title, content string, now time.Time) collab.GenerateInput {
	return collab.GenerateInput{
		Title:        title,
		Content:      content,
		Context:      coach.FormatRelated(coach.RelatedTopics(doc, topics, id, now)),
		Instructions: coach.Instructions(doc.Topic(id)),
	}
}

func evaluationMessage(c *session.Closure) string {
	var b strings.Builder
	if c.Partial {
		b.WriteString("✅ Partial evaluation\n\n")
	} else {
		b.WriteString("✅ Evaluation complete\n\n")
	}
	fmt.Fprintf(&b, "Topic: %s\n", c.Title)
	fmt.Fprintf(&b, "Answers: %d/%d\n", c.Answered, store.QuestionCount)
	fmt.Fprintf(&b, "Level: %s\n", strings.ToUpper(string(c.Level)))
	if r := strings.TrimSpace(c.Evaluation.Rationale); r != "" {
		fmt.Fprintf(&b, "\n%s\n", r)
	}
	if len(c.Evaluation.SuggestedReview) > 0 {
		b.WriteString("\nReview next:\n")
		for _, s := range c.Evaluation.SuggestedReview {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}
	if c.Phase == session.PhaseExpired {
		b.WriteString("\n⏰ The session expired.")
	} else {
		b.WriteString("\n🎉 You answered every question!")
	}
	return b.String()
}

func isPDF(a *collab.Attachment) bool {
	return a.MIMEType == "application/pdf" || strings.EqualFold(filepath.Ext(a.FileName), ".pdf")
}
