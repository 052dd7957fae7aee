package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DocumentVersion is the current layout version of the state document.
const DocumentVersion = 1

// DateLayout is the layout used for calendar dates in the document.
const DateLayout = "2006-01-02"

// Level is the coarse grade an evaluation assigns to a set of answers.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// levelAliases maps legacy and free-form spellings to canonical levels.
// Documents written by the first version of the bot stored Spanish names.
var levelAliases = map[string]Level{
	"low":    LevelLow,
	"bajo":   LevelLow,
	"medium": LevelMedium,
	"medio":  LevelMedium,
	"high":   LevelHigh,
	"alto":   LevelHigh,
}

// ParseLevel normalizes s to a canonical Level. Unknown values map to
// LevelLow and ok is false.
func ParseLevel(s string) (Level, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if l, ok := levelAliases[s]; ok {
		return l, true
	}
	// Phrases such as "alto rendimiento" or "high performance".
	for _, prefix := range []string{"high", "alto", "medium", "medio"} {
		if strings.Contains(s, prefix) {
			return levelAliases[prefix], true
		}
	}
	return LevelLow, false
}

// Points maps a level onto the 1..3 scale used for averaging.
func (l Level) Points() int {
	switch l {
	case LevelHigh:
		return 3
	case LevelMedium:
		return 2
	default:
		return 1
	}
}

func (l *Level) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("level: %w", err)
	}
	*l, _ = ParseLevel(s)
	return nil
}

// MasteryLevel is the derived skill tier of a topic.
type MasteryLevel string

const (
	MasteryNovice       MasteryLevel = "novice"
	MasteryIntermediate MasteryLevel = "intermediate"
	MasteryAdvanced     MasteryLevel = "advanced"
)

// Evaluation is the grader's verdict on a combined answer text.
type Evaluation struct {
	Level           Level    `json:"level" validate:"oneof=low medium high"`
	Confidence      float64  `json:"confidence" validate:"gte=0,lte=1"`
	Rationale       string   `json:"rationale"`
	Gaps            []string `json:"gaps"`
	SuggestedReview []string `json:"suggested_review"`
}

// PerformanceRecord is one graded review of a topic.
type PerformanceRecord struct {
	Date       string     `json:"date"`
	Level      Level      `json:"level"`
	UserText   string     `json:"user_text"`
	Evaluation Evaluation `json:"evaluation"`
}

// TopicState is the review history of a single topic.
type TopicState struct {
	Title        string              `json:"title"`
	Reviews      int                 `json:"reviews"`
	LastReviewed string              `json:"last_reviewed,omitempty"`
	MasteryLevel MasteryLevel        `json:"mastery_level"`
	History      []string            `json:"history"`
	Performance  []PerformanceRecord `json:"performance,omitempty"`
}

// LastReviewedDate parses LastReviewed in loc. ok is false when the topic
// was never reviewed or the stored date is malformed.
func (t *TopicState) LastReviewedDate(loc *time.Location) (time.Time, bool) {
	if t == nil || t.LastReviewed == "" {
		return time.Time{}, false
	}
	d, err := time.ParseInLocation(DateLayout, t.LastReviewed, loc)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// LastLevel returns the level of the most recent performance record.
func (t *TopicState) LastLevel() (Level, bool) {
	if t == nil || len(t.Performance) == 0 {
		return "", false
	}
	return t.Performance[len(t.Performance)-1].Level, true
}

// RecentPerformance returns up to the n most recent records, oldest first.
func (t *TopicState) RecentPerformance(n int) []PerformanceRecord {
	if t == nil {
		return nil
	}
	if len(t.Performance) <= n {
		return t.Performance
	}
	return t.Performance[len(t.Performance)-n:]
}

// Answer is a single answer submitted for a pending quiz.
type Answer struct {
	Text      string  `json:"text"`
	Timestamp float64 `json:"timestamp"`
}

// PendingSession is the one outstanding quiz awaiting answers.
type PendingSession struct {
	TopicID   string         `json:"page_id"`
	Title     string         `json:"title"`
	SentAt    float64        `json:"sent_at"`
	ExpiresAt float64        `json:"expires_at"`
	SessionID string         `json:"session_id"`
	Quiz      Quiz           `json:"quiz"`
	Answers   map[int]Answer `json:"answers"`
	Completed bool           `json:"completed"`
}

// SentTime returns SentAt as a time.Time.
func (p *PendingSession) SentTime() time.Time {
	return unixFloat(p.SentAt)
}

// ExpiryTime returns ExpiresAt as a time.Time.
func (p *PendingSession) ExpiryTime() time.Time {
	return unixFloat(p.ExpiresAt)
}

// UnixSeconds converts t to fractional unix seconds as stored in the document.
func UnixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func unixFloat(f float64) time.Time {
	return time.Unix(0, int64(f*float64(time.Second)))
}

// Document is the complete persisted state.
type Document struct {
	Version int

	// LastUpdateID is the transport cursor; nil until the first message
	// has been consumed.
	LastUpdateID *int64

	// Pending is the single active quiz session, or nil.
	Pending *PendingSession

	// LastClosedSession is the id of the most recently closed session.
	LastClosedSession string

	// Topics holds one entry per topic id.
	Topics map[string]*TopicState

	// Extra preserves reserved keys this version does not understand.
	Extra map[string]json.RawMessage
}

// NewDocument returns an empty document at the current version.
func NewDocument() *Document {
	return &Document{
		Version: DocumentVersion,
		Topics:  make(map[string]*TopicState),
	}
}

// Topic returns the state for id, or nil.
func (d *Document) Topic(id string) *TopicState {
	return d.Topics[id]
}

// EnsureTopic returns the state for id, creating it with title if absent.
func (d *Document) EnsureTopic(id, title string) *TopicState {
	if d.Topics == nil {
		d.Topics = make(map[string]*TopicState)
	}
	ts, ok := d.Topics[id]
	if !ok {
		ts = &TopicState{
			Title:        title,
			MasteryLevel: MasteryNovice,
			History:      []string{},
		}
		d.Topics[id] = ts
	}
	if ts.Title == "" {
		ts.Title = title
	}
	return ts
}
