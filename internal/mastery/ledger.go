package mastery

import (
	"log/slog"
	"time"

	"github.com/abhisek/studycoach/internal/store"
)

// Ledger appends evaluation results and review marks to the topics of a
// document. It mutates the document in memory; persisting is the caller's
// job. Neither operation deduplicates: callers invoke them at most once per
// logical review.
type Ledger struct {
	doc    *store.Document
	logger *slog.Logger
}

// NewLedger returns a ledger over doc.
func NewLedger(doc *store.Document, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{doc: doc, logger: logger.With("component", "mastery")}
}

// Record appends a performance record for topicID, creating the topic if
// needed, and recomputes its mastery level from scratch.
func (l *Ledger) Record(topicID, title string, level store.Level, text string, eval store.Evaluation, now time.Time) Transition {
	ts := l.doc.EnsureTopic(topicID, title)
	from := ts.MasteryLevel

	ts.Performance = append(ts.Performance, store.PerformanceRecord{
		Date:       now.Format(store.DateLayout),
		Level:      level,
		UserText:   text,
		Evaluation: eval,
	})
	ts.MasteryLevel = Derive(ts.Performance)

	tr := Transition{TopicID: topicID, Title: ts.Title, From: from, To: ts.MasteryLevel}
	l.logger.Info("performance recorded",
		"topic", topicID, "level", level, "records", len(ts.Performance), "mastery", ts.MasteryLevel)
	if tr.Changed() {
		l.logger.Info("mastery changed", "topic", topicID, "from", from, "to", tr.To)
	}
	return tr
}

// MarkReviewed counts one review of topicID on now's date.
func (l *Ledger) MarkReviewed(topicID, title string, now time.Time) {
	ts := l.doc.EnsureTopic(topicID, title)
	date := now.Format(store.DateLayout)
	ts.Reviews++
	ts.LastReviewed = date
	ts.History = append(ts.History, date)
	l.logger.Debug("topic reviewed", "topic", topicID, "reviews", ts.Reviews)
}
