// Package collab defines the collaborators the study loop depends on:
// where topics come from, how quizzes are generated and graded, and how
// the learner is reached.
package collab

import (
	"context"
	"time"

	"github.com/abhisek/studycoach/internal/store"
)

// Topic is a candidate study topic from the content source.
type Topic struct {
	ID    string
	Title string
}

// Attachment is a file sent by the learner.
type Attachment struct {
	FileID   string
	FileName string
	MIMEType string
}

// Message is an inbound message from the learner.
type Message struct {
	UpdateID int64
	Time     time.Time
	Text     string
	Document *Attachment
}

// GenerateInput is what the quiz generator works from.
type GenerateInput struct {
	Title        string
	Content      string
	Context      string
	Instructions string
}

// ContentSource lists topics and returns their study material.
type ContentSource interface {
	FetchCandidateTopics(ctx context.Context) ([]Topic, error)
	FetchContent(ctx context.Context, id string) (string, error)
}

// WebContextHeading separates enrichment from the base content. The quiz
// generator looks for it to tell the model web material is present.
const WebContextHeading = "=== Complementary information from the web ==="

// Enricher adds supplementary material to a topic's content. It returns
// content unchanged when it cannot help.
type Enricher interface {
	Enrich(ctx context.Context, title, content string) string
}

// QuizGenerator produces a quiz. An error means no quiz.
type QuizGenerator interface {
	Generate(ctx context.Context, in GenerateInput) (*store.Quiz, error)
}

// Evaluator grades combined answers. It always returns a result, falling
// back to a low-confidence low level on failure.
type Evaluator interface {
	Evaluate(ctx context.Context, title string, quiz store.Quiz, combined string) store.Evaluation
}

// Transport reaches the learner.
type Transport interface {
	SendQuiz(ctx context.Context, title string, quiz store.Quiz, sessionID string) error
	Notify(ctx context.Context, text string) error

	// FetchNewMessages returns messages after sinceUpdateID, oldest first.
	// A nil cursor fetches everything still queued.
	FetchNewMessages(ctx context.Context, sinceUpdateID *int64) ([]Message, error)

	// Download returns the content of an attachment.
	Download(ctx context.Context, fileID string) ([]byte, error)
}

// Extractor turns submitted material into plain text.
type Extractor interface {
	FromURL(ctx context.Context, url string) (title, text string, err error)
	FromPDF(data []byte) (string, error)
}
