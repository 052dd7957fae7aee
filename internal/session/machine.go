package session

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/abhisek/studycoach/internal/mastery"
	"github.com/abhisek/studycoach/internal/store"
)

// Evaluator grades the combined answers of a closed session. It must
// always return a result.
type Evaluator interface {
	Evaluate(ctx context.Context, title string, quiz store.Quiz, combined string) store.Evaluation
}

// Recorder stores the outcome of a closed session against its topic.
type Recorder interface {
	Record(topicID, title string, level store.Level, text string, eval store.Evaluation, now time.Time) mastery.Transition
}

// Closure describes how a session was closed.
type Closure struct {
	SessionID string
	TopicID   string
	Title     string

	// Phase is PhaseCompleted or PhaseExpired.
	Phase Phase

	// Answered is the number of questions that had an answer.
	Answered int

	// Evaluated is false when the session had no answers.
	Evaluated  bool
	Evaluation store.Evaluation

	// Level is the stored level, after the partial cap.
	Level   store.Level
	Partial bool

	// Recorded is false for ephemeral topics and unevaluated sessions.
	Recorded   bool
	Transition mastery.Transition
}

// Machine drives the single pending quiz stored in a document. All state
// lives in the document; the machine itself holds none.
type Machine struct {
	doc    *store.Document
	logger *slog.Logger
}

// New returns a machine over doc.
func New(doc *store.Document, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{doc: doc, logger: logger.With("component", "session")}
}

// Pending returns the outstanding session, or nil.
func (m *Machine) Pending() *store.PendingSession {
	return m.doc.Pending
}

// Phase reports the phase at now without changing anything.
func (m *Machine) Phase(now time.Time) Phase {
	return phaseOf(m.doc.Pending, now)
}

func phaseOf(p *store.PendingSession, now time.Time) Phase {
	switch {
	case p == nil:
		return PhaseNone
	case store.UnixSeconds(now) > p.ExpiresAt:
		return PhaseExpired
	case len(p.Answers) >= store.QuestionCount:
		return PhaseCompleted
	case p.Completed:
		return PhaseExpired
	default:
		return PhaseActive
	}
}

// Recover discards a session left latched by an invocation that stopped
// between latching and clearing. Such a session may already have been
// evaluated, so it is dropped unevaluated. It returns the dropped session.
func (m *Machine) Recover() *store.PendingSession {
	p := m.doc.Pending
	if p == nil || !p.Completed {
		return nil
	}
	m.logger.Warn("discarding interrupted session",
		"session", p.SessionID, "topic", p.TopicID, "answers", len(p.Answers))
	m.doc.LastClosedSession = p.SessionID
	m.doc.Pending = nil
	return p
}

// Abandon drops the pending session unevaluated, whatever its phase, and
// returns it. Its id is remembered as closed.
func (m *Machine) Abandon() *store.PendingSession {
	p := m.doc.Pending
	if p == nil {
		return nil
	}
	m.logger.Info("session abandoned", "session", p.SessionID, "answers", len(p.Answers))
	m.clear(p)
	return p
}

// Create opens a new session for topic with quiz at now.
func (m *Machine) Create(topicID, title string, quiz store.Quiz, now time.Time) (*store.PendingSession, error) {
	if m.doc.Pending != nil {
		return nil, ErrSessionActive
	}
	if err := quiz.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuiz, err)
	}

	id := fmt.Sprintf("session_%d", now.Unix())
	if id == m.doc.LastClosedSession {
		id = fmt.Sprintf("session_%d", now.UnixNano())
	}

	p := &store.PendingSession{
		TopicID:   topicID,
		Title:     title,
		SentAt:    store.UnixSeconds(now),
		ExpiresAt: store.UnixSeconds(now.Add(Window)),
		SessionID: id,
		Quiz:      quiz,
		Answers:   make(map[int]store.Answer),
	}
	m.doc.Pending = p
	m.logger.Info("session created", "session", id, "topic", topicID, "expires", p.ExpiryTime())
	return p, nil
}

// Cancel drops the session id created in this pass when it could not be
// delivered. Sessions with answers or a latch are never cancelled.
func (m *Machine) Cancel(id string) bool {
	p := m.doc.Pending
	if p == nil || p.SessionID != id || p.Completed || len(p.Answers) > 0 {
		return false
	}
	m.logger.Warn("session cancelled", "session", id, "topic", p.TopicID)
	m.doc.Pending = nil
	return true
}

// Ingest stores the answer to question n. A later answer to the same
// question replaces the earlier one.
func (m *Machine) Ingest(n int, text string, ts time.Time) error {
	p := m.doc.Pending
	if p == nil || p.Completed {
		return ErrNoSession
	}
	if n < 1 || n > store.QuestionCount {
		return fmt.Errorf("%w: %d", ErrQuestionOutOfRange, n)
	}
	at := store.UnixSeconds(ts)
	if at < p.SentAt {
		return ErrStaleAnswer
	}
	if p.Answers == nil {
		p.Answers = make(map[int]store.Answer)
	}
	p.Answers[n] = store.Answer{Text: text, Timestamp: at}
	m.logger.Debug("answer ingested", "session", p.SessionID, "question", n, "answers", len(p.Answers))
	return nil
}

// Tick evaluates the session clock. Expiry is checked before completion.
// A terminal result latches the session so no further answers are taken;
// the caller should save the document before calling Close.
func (m *Machine) Tick(now time.Time) Phase {
	p := m.doc.Pending
	phase := phaseOf(p, now)
	if phase.Terminal() && !p.Completed {
		p.Completed = true
		m.logger.Info("session closing", "session", p.SessionID, "phase", phase, "answers", len(p.Answers))
	}
	return phase
}

// Close evaluates a latched session, records the result, and clears the
// slot. It is a no-op returning nil when no session is pending.
func (m *Machine) Close(ctx context.Context, ev Evaluator, rec Recorder, now time.Time) (*Closure, error) {
	p := m.doc.Pending
	if p == nil {
		return nil, nil
	}
	if !p.Completed {
		return nil, ErrNotClosable
	}

	c := &Closure{
		SessionID: p.SessionID,
		TopicID:   p.TopicID,
		Title:     p.Title,
		Phase:     phaseOf(p, now),
		Answered:  len(p.Answers),
	}

	if c.Answered == 0 {
		m.logger.Info("session closed without answers", "session", p.SessionID)
		m.clear(p)
		return c, nil
	}

	combined := CombinedText(p.Answers)
	eval := ev.Evaluate(ctx, p.Title, p.Quiz, combined)
	c.Evaluated = true
	c.Evaluation = eval
	c.Level = eval.Level
	if c.Answered < store.QuestionCount {
		c.Partial = true
		if c.Level == store.LevelHigh {
			c.Level = store.LevelMedium
		}
	}

	if IsEphemeral(p.TopicID) {
		m.logger.Info("skipping history for direct content", "session", p.SessionID)
	} else {
		c.Transition = rec.Record(p.TopicID, p.Title, c.Level, combined, eval, now)
		c.Recorded = true
	}

	m.logger.Info("session closed",
		"session", p.SessionID, "answers", c.Answered, "partial", c.Partial, "level", c.Level)
	m.clear(p)
	return c, nil
}

func (m *Machine) clear(p *store.PendingSession) {
	m.doc.LastClosedSession = p.SessionID
	m.doc.Pending = nil
}

// CombinedText joins answers in question order as "Question n: text" lines.
func CombinedText(answers map[int]store.Answer) string {
	nums := make([]int, 0, len(answers))
	for n := range answers {
		nums = append(nums, n)
	}
	sort.Ints(nums)

	lines := make([]string, 0, len(nums))
	for _, n := range nums {
		lines = append(lines, fmt.Sprintf("Question %d: %s", n, answers[n].Text))
	}
	return strings.Join(lines, "\n")
}
