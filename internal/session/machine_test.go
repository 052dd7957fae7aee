package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/studycoach/internal/mastery"
	"github.com/abhisek/studycoach/internal/store"
)

var t0 = time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)

func validQuiz() store.Quiz {
	item := func(q string) store.QuizItem { return store.QuizItem{Question: q, Answer: "ref " + q} }
	return store.Quiz{
		Easy:        []store.QuizItem{item("q1"), item("q2")},
		Development: []store.QuizItem{item("q3"), item("q4")},
		CaseStudy:   []store.QuizItem{item("q5"), item("q6")},
	}
}

type fakeEvaluator struct {
	result store.Evaluation
	calls  int
	last   string
}

func (f *fakeEvaluator) Evaluate(_ context.Context, _ string, _ store.Quiz, combined string) store.Evaluation {
	f.calls++
	f.last = combined
	return f.result
}

type fakeRecorder struct {
	levels []store.Level
	topics []string
}

func (f *fakeRecorder) Record(topicID, title string, level store.Level, _ string, _ store.Evaluation, _ time.Time) mastery.Transition {
	f.levels = append(f.levels, level)
	f.topics = append(f.topics, topicID)
	return mastery.Transition{TopicID: topicID, Title: title}
}

func newActive(t *testing.T) (*Machine, *store.Document) {
	t.Helper()
	doc := store.NewDocument()
	m := New(doc, nil)
	_, err := m.Create("topic-1", "Consensus", validQuiz(), t0)
	require.NoError(t, err)
	return m, doc
}

func TestCreate(t *testing.T) {
	m, doc := newActive(t)

	p := doc.Pending
	require.NotNil(t, p)
	assert.Equal(t, "topic-1", p.TopicID)
	assert.Equal(t, "session_1792231200", p.SessionID)
	assert.Equal(t, store.UnixSeconds(t0), p.SentAt)
	assert.Equal(t, p.SentAt+3600, p.ExpiresAt)
	assert.Empty(t, p.Answers)
	assert.Equal(t, PhaseActive, m.Phase(t0))
}

func TestCreate_RejectsWhenActive(t *testing.T) {
	m, _ := newActive(t)
	_, err := m.Create("topic-2", "Other", validQuiz(), t0.Add(time.Minute))
	assert.ErrorIs(t, err, ErrSessionActive)
}

func TestCreate_RejectsInvalidQuiz(t *testing.T) {
	m := New(store.NewDocument(), nil)

	q := validQuiz()
	q.CaseStudy = q.CaseStudy[:1]
	_, err := m.Create("t", "T", q, t0)
	assert.ErrorIs(t, err, ErrInvalidQuiz)
	assert.Nil(t, m.Pending())

	q = validQuiz()
	q.Easy[0].Answer = ""
	_, err = m.Create("t", "T", q, t0)
	assert.ErrorIs(t, err, ErrInvalidQuiz)
	assert.Nil(t, m.Pending())
}

func TestCreate_SessionIDDiffersFromLastClosed(t *testing.T) {
	doc := store.NewDocument()
	doc.LastClosedSession = "session_1792231200"
	m := New(doc, nil)

	p, err := m.Create("t", "T", validQuiz(), t0)
	require.NoError(t, err)
	assert.NotEqual(t, doc.LastClosedSession, p.SessionID)
}

func TestIngest_Range(t *testing.T) {
	m, doc := newActive(t)

	for _, n := range []int{0, -1, 7, 9} {
		assert.ErrorIs(t, m.Ingest(n, "x", t0.Add(time.Minute)), ErrQuestionOutOfRange, "question %d", n)
	}
	for n := 1; n <= 6; n++ {
		require.NoError(t, m.Ingest(n, "ok", t0.Add(time.Minute)))
	}
	assert.Len(t, doc.Pending.Answers, 6)
	assert.ErrorIs(t, m.Ingest(7, "seventh", t0.Add(2*time.Minute)), ErrQuestionOutOfRange)
	assert.Len(t, doc.Pending.Answers, 6)
}

func TestIngest_LastWriteWins(t *testing.T) {
	m, doc := newActive(t)

	require.NoError(t, m.Ingest(3, "first", t0.Add(time.Minute)))
	require.NoError(t, m.Ingest(3, "second", t0.Add(2*time.Minute)))

	assert.Len(t, doc.Pending.Answers, 1)
	assert.Equal(t, "second", doc.Pending.Answers[3].Text)
}

func TestIngest_StaleAnswerNotCounted(t *testing.T) {
	m, doc := newActive(t)

	for n := 1; n <= 5; n++ {
		require.NoError(t, m.Ingest(n, "ok", t0.Add(time.Minute)))
	}
	assert.ErrorIs(t, m.Ingest(6, "old", t0.Add(-time.Second)), ErrStaleAnswer)

	assert.Len(t, doc.Pending.Answers, 5)
	assert.Equal(t, PhaseActive, m.Tick(t0.Add(2*time.Minute)))
}

func TestIngest_NoSession(t *testing.T) {
	m := New(store.NewDocument(), nil)
	assert.ErrorIs(t, m.Ingest(1, "x", t0), ErrNoSession)
}

func TestTick_CompletesWithSixAnswers(t *testing.T) {
	m, doc := newActive(t)
	for n := 1; n <= 6; n++ {
		require.NoError(t, m.Ingest(n, "ok", t0.Add(time.Minute)))
	}

	assert.Equal(t, PhaseCompleted, m.Tick(t0.Add(2*time.Minute)))
	assert.True(t, doc.Pending.Completed)

	// Latched sessions take no more answers.
	assert.ErrorIs(t, m.Ingest(1, "late", t0.Add(3*time.Minute)), ErrNoSession)
}

func TestTick_ExpiryCheckedFirst(t *testing.T) {
	m, _ := newActive(t)
	assert.Equal(t, PhaseActive, m.Tick(t0.Add(time.Hour)))
	assert.Equal(t, PhaseExpired, m.Tick(t0.Add(time.Hour+time.Second)))
}

func TestClose_RequiresLatch(t *testing.T) {
	m, _ := newActive(t)
	_, err := m.Close(context.Background(), &fakeEvaluator{}, &fakeRecorder{}, t0)
	assert.ErrorIs(t, err, ErrNotClosable)
}

func TestClose_Complete(t *testing.T) {
	m, doc := newActive(t)
	for n := 6; n >= 1; n-- {
		require.NoError(t, m.Ingest(n, "answer", t0.Add(time.Minute)))
	}
	require.Equal(t, PhaseCompleted, m.Tick(t0.Add(5*time.Minute)))

	ev := &fakeEvaluator{result: store.Evaluation{Level: store.LevelHigh, Confidence: 0.9}}
	rec := &fakeRecorder{}
	c, err := m.Close(context.Background(), ev, rec, t0.Add(5*time.Minute))
	require.NoError(t, err)
	require.NotNil(t, c)

	assert.Equal(t, PhaseCompleted, c.Phase)
	assert.False(t, c.Partial)
	assert.Equal(t, store.LevelHigh, c.Level)
	assert.True(t, c.Recorded)
	assert.Equal(t, []store.Level{store.LevelHigh}, rec.levels)
	assert.Equal(t, 1, ev.calls)
	assert.Equal(t,
		"Question 1: answer\nQuestion 2: answer\nQuestion 3: answer\nQuestion 4: answer\nQuestion 5: answer\nQuestion 6: answer",
		ev.last)

	assert.Nil(t, doc.Pending)
	assert.Equal(t, c.SessionID, doc.LastClosedSession)
}

func TestClose_PartialCapsHigh(t *testing.T) {
	m, _ := newActive(t)
	for _, n := range []int{1, 2, 4, 5} {
		require.NoError(t, m.Ingest(n, "a", t0.Add(time.Minute)))
	}
	require.Equal(t, PhaseExpired, m.Tick(t0.Add(61*time.Minute)))

	ev := &fakeEvaluator{result: store.Evaluation{Level: store.LevelHigh}}
	rec := &fakeRecorder{}
	c, err := m.Close(context.Background(), ev, rec, t0.Add(61*time.Minute))
	require.NoError(t, err)

	assert.True(t, c.Partial)
	assert.Equal(t, 4, c.Answered)
	assert.Equal(t, store.LevelMedium, c.Level)
	assert.Equal(t, store.LevelHigh, c.Evaluation.Level)
	assert.Equal(t, []store.Level{store.LevelMedium}, rec.levels)
}

func TestClose_PartialKeepsLowerLevels(t *testing.T) {
	m, _ := newActive(t)
	require.NoError(t, m.Ingest(2, "a", t0.Add(time.Minute)))
	m.Tick(t0.Add(2 * time.Hour))

	rec := &fakeRecorder{}
	c, err := m.Close(context.Background(), &fakeEvaluator{result: store.Evaluation{Level: store.LevelLow}}, rec, t0.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, store.LevelLow, c.Level)
}

func TestClose_ExpiredWithoutAnswersSkipsEvaluation(t *testing.T) {
	m, doc := newActive(t)
	require.Equal(t, PhaseExpired, m.Tick(t0.Add(2*time.Hour)))

	ev := &fakeEvaluator{}
	rec := &fakeRecorder{}
	c, err := m.Close(context.Background(), ev, rec, t0.Add(2*time.Hour))
	require.NoError(t, err)

	assert.False(t, c.Evaluated)
	assert.Zero(t, ev.calls)
	assert.Empty(t, rec.levels)
	assert.Nil(t, doc.Pending)
}

func TestClose_EphemeralTopicNotRecorded(t *testing.T) {
	doc := store.NewDocument()
	m := New(doc, nil)
	_, err := m.Create("DIRECT_1792231200", "notes.pdf", validQuiz(), t0)
	require.NoError(t, err)
	require.NoError(t, m.Ingest(1, "a", t0.Add(time.Minute)))
	m.Tick(t0.Add(2 * time.Hour))

	ev := &fakeEvaluator{result: store.Evaluation{Level: store.LevelMedium}}
	rec := &fakeRecorder{}
	c, err := m.Close(context.Background(), ev, rec, t0.Add(2*time.Hour))
	require.NoError(t, err)

	assert.True(t, c.Evaluated)
	assert.False(t, c.Recorded)
	assert.Equal(t, 1, ev.calls)
	assert.Empty(t, rec.topics)
}

func TestClose_Idempotent(t *testing.T) {
	m, _ := newActive(t)
	require.NoError(t, m.Ingest(1, "a", t0.Add(time.Minute)))
	m.Tick(t0.Add(2 * time.Hour))

	ev := &fakeEvaluator{result: store.Evaluation{Level: store.LevelLow}}
	rec := &fakeRecorder{}
	_, err := m.Close(context.Background(), ev, rec, t0.Add(2*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, PhaseNone, m.Tick(t0.Add(3*time.Hour)))
	c, err := m.Close(context.Background(), ev, rec, t0.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Nil(t, c)

	assert.Equal(t, 1, ev.calls)
	assert.Len(t, rec.levels, 1)
}

func TestRecover_DropsLatchedSession(t *testing.T) {
	m, doc := newActive(t)
	require.NoError(t, m.Ingest(1, "a", t0.Add(time.Minute)))
	m.Tick(t0.Add(2 * time.Hour))

	// Simulate a fresh invocation over the latched document.
	again := New(doc, nil)
	dropped := again.Recover()
	require.NotNil(t, dropped)
	assert.Nil(t, doc.Pending)
	assert.Equal(t, dropped.SessionID, doc.LastClosedSession)

	ev := &fakeEvaluator{}
	c, err := again.Close(context.Background(), ev, &fakeRecorder{}, t0.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Nil(t, c)
	assert.Zero(t, ev.calls)
}

func TestRecover_LeavesOpenSession(t *testing.T) {
	m, doc := newActive(t)
	assert.Nil(t, m.Recover())
	assert.NotNil(t, doc.Pending)
}

func TestCombinedText(t *testing.T) {
	got := CombinedText(map[int]store.Answer{
		5: {Text: "five"},
		2: {Text: "two"},
	})
	assert.Equal(t, "Question 2: two\nQuestion 5: five", got)
	assert.Empty(t, CombinedText(nil))
}

func TestCancel(t *testing.T) {
	m, doc := newActive(t)
	id := doc.Pending.SessionID

	assert.False(t, m.Cancel("session_other"))
	assert.True(t, m.Cancel(id))
	assert.Nil(t, doc.Pending)
	assert.Empty(t, doc.LastClosedSession)
}

func TestCancel_KeepsAnsweredSession(t *testing.T) {
	m, doc := newActive(t)
	require.NoError(t, m.Ingest(1, "an answer", t0.Add(time.Minute)))

	assert.False(t, m.Cancel(doc.Pending.SessionID))
	assert.NotNil(t, doc.Pending)
}

func TestAbandon(t *testing.T) {
	m, doc := newActive(t)
	require.NoError(t, m.Ingest(2, "half done", t0.Add(time.Minute)))
	id := doc.Pending.SessionID

	p := m.Abandon()
	require.NotNil(t, p)
	assert.Equal(t, id, p.SessionID)
	assert.Nil(t, doc.Pending)
	assert.Equal(t, id, doc.LastClosedSession)
	assert.Nil(t, m.Abandon())
}
