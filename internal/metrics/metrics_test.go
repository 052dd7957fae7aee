package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordPass(t *testing.T) {
	m := New()

	m.RecordPass(nil, 100)
	m.RecordPass(errors.New("boom"), 200)
	m.RecordPass(nil, 300)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PassesTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PassesTotal.WithLabelValues("error")))
	assert.Equal(t, 300.0, testutil.ToFloat64(m.LastPassTimestamp))
}

func TestRecordClose(t *testing.T) {
	m := New()

	m.RecordClose("expired", true)
	m.RecordClose("completed", false)
	m.RecordClose("expired", true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SessionsClosed.WithLabelValues("expired", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsClosed.WithLabelValues("completed", "false")))
}

func TestRecordAnswersIgnoresZero(t *testing.T) {
	m := New()

	m.RecordAnswers(0)
	m.RecordAnswers(4)

	assert.Equal(t, 4.0, testutil.ToFloat64(m.AnswersIngested))
}

func TestInstancesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.RecordQuiz("direct")

	assert.Equal(t, 1.0, testutil.ToFloat64(a.QuizzesSent.WithLabelValues("direct")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.QuizzesSent.WithLabelValues("direct")))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.RecordQuiz("scheduled")
	m.RecordError("notion.search")

	path := filepath.Join(t.TempDir(), "studycoach.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.True(t, strings.Contains(out, `studycoach_quiz_sent_total{origin="scheduled"} 1`), out)
	assert.True(t, strings.Contains(out, `studycoach_collaborator_errors_total{op="notion.search"} 1`), out)
}

func TestWriteTextfileBadDir(t *testing.T) {
	m := New()
	err := m.WriteTextfile(filepath.Join(t.TempDir(), "missing", "x.prom"))
	assert.Error(t, err)
}
