package cmd

import (
	"bytes"
	"encoding/json"
	"runtime/debug"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/studycoach/internal/eventlog"
	"github.com/abhisek/studycoach/internal/store"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name   string
		format string
		tty    bool
		json   bool
	}{
		{"text", "text", false, false},
		{"json", "JSON", true, true},
		{"auto on terminal", "auto", true, false},
		{"auto when piped", "auto", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l, err := newLogger(&buf, "info", tt.format, tt.tty)
			require.NoError(t, err)
			l.Info("hello", "k", 1)
			assert.Equal(t, tt.json, json.Valid(bytes.TrimSpace(buf.Bytes())), buf.String())
		})
	}
}

func TestNewLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := newLogger(&buf, "warn", "text", false)
	require.NoError(t, err)
	l.Info("hidden")
	l.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewLoggerRejectsBadInput(t *testing.T) {
	_, err := newLogger(&bytes.Buffer{}, "loud", "text", false)
	assert.Error(t, err)
	_, err = newLogger(&bytes.Buffer{}, "info", "xml", false)
	assert.Error(t, err)
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "b", firstNonEmpty("", "b", "c"))
	assert.Equal(t, "", firstNonEmpty("", ""))
}

func TestRenderStatus(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	doc := store.NewDocument()
	fresh := doc.EnsureTopic("a", "Consensus")
	fresh.Reviews = 1
	fresh.LastReviewed = "2026-10-17"
	old := doc.EnsureTopic("b", "Routing")
	old.Reviews = 2
	old.LastReviewed = "2026-10-01"
	old.MasteryLevel = store.MasteryIntermediate
	old.Performance = []store.PerformanceRecord{{
		Date:       "2026-10-01",
		Level:      store.LevelLow,
		Evaluation: store.Evaluation{Gaps: []string{"BGP timers"}},
	}}
	doc.Pending = &store.PendingSession{
		TopicID:   "a",
		Title:     "Consensus",
		SessionID: "session_1",
		SentAt:    store.UnixSeconds(now.Add(-20 * time.Minute)),
		ExpiresAt: store.UnixSeconds(now.Add(40 * time.Minute)),
		Answers:   map[int]store.Answer{1: {Text: "x"}},
	}

	var buf bytes.Buffer
	renderStatus(&buf, doc, now, false)
	out := buf.String()

	assert.Less(t, strings.Index(out, "Routing"), strings.Index(out, "Consensus"), "higher priority first")
	assert.Contains(t, out, "BGP timers")
	assert.Contains(t, out, "intermediate")
	assert.Contains(t, out, "Phase:    active")
	assert.Contains(t, out, "Answers:  1/6")
	assert.Contains(t, out, "Expires:  in 40m0s")
	assert.NotContains(t, out, "\x1b[")
}

func TestRenderStatusEmpty(t *testing.T) {
	var buf bytes.Buffer
	renderStatus(&buf, store.NewDocument(), time.Now(), false)
	assert.Contains(t, buf.String(), "No topics reviewed yet.")
	assert.Contains(t, buf.String(), "None.")
}

func TestRenderEventList(t *testing.T) {
	var buf bytes.Buffer
	renderEventList(&buf, nil)
	assert.Equal(t, "No LLM calls recorded.\n", buf.String())

	buf.Reset()
	renderEventList(&buf, []eventlog.LLMRequestEventRecord{
		{ID: 7, Timestamp: time.Now(), LLMRequestEventData: eventlog.LLMRequestEventData{
			Purpose: "evaluation", Topic: "Raft", Model: "gpt-4o-mini", Success: false,
		}},
		{ID: 6, Timestamp: time.Now(), LLMRequestEventData: eventlog.LLMRequestEventData{
			Purpose: "quiz-gen", Model: "gpt-4o-mini", Success: true,
		}},
	})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[2], "Raft")
	assert.True(t, strings.HasSuffix(lines[2], "no"))
	assert.Contains(t, lines[3], " - ")
	assert.True(t, strings.HasSuffix(lines[3], "yes"))
}

func TestRenderEvent(t *testing.T) {
	var buf bytes.Buffer
	renderEvent(&buf, &eventlog.LLMRequestEventRecord{ID: 3, LLMRequestEventData: eventlog.LLMRequestEventData{
		Purpose: "quiz-gen", Topic: "Raft", RequestBody: "[user]\nhi", ErrorMessage: "timeout",
	}})
	out := buf.String()
	assert.Contains(t, out, "Topic:     Raft")
	assert.Contains(t, out, "Result:    failed: timeout")
	assert.Contains(t, out, "[user]\nhi")
	assert.Contains(t, out, "(not captured)")
}

func TestRenderUsage(t *testing.T) {
	var buf bytes.Buffer
	renderUsage(&buf, "topic", []eventlog.LLMUsageStats{
		{Key: "Raft", Calls: 2, InputTokens: 1000, OutputTokens: 500},
		{Key: "BGP", Calls: 1, InputTokens: 100, OutputTokens: 50},
	}, []eventlog.LLMModelUsage{
		{Model: "gpt-4o-mini", Calls: 2, InputTokens: 1_000_000, OutputTokens: 0},
		{Model: "homebrew-7b", Calls: 1},
	})
	out := buf.String()
	assert.Contains(t, out, "By topic")
	assert.Regexp(t, `total\s+3\s+1100\s+550`, out)
	assert.Contains(t, out, "$0.15")
	assert.Contains(t, out, "total (partial)")
	assert.Contains(t, out, "No pricing for: homebrew-7b")

	buf.Reset()
	renderUsage(&buf, "purpose", nil, nil)
	assert.Equal(t, "No LLM usage recorded yet.\n", buf.String())
}

func TestPrintVersion(t *testing.T) {
	info := &debug.BuildInfo{
		Main: debug.Module{Version: "v0.4.0"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef"},
			{Key: "vcs.modified", Value: "true"},
		},
	}
	tests := []struct {
		name   string
		ldflag string
		info   *debug.BuildInfo
		want   string
	}{
		{"ldflag wins", "v1.0.0", info, "studycoach v1.0.0 (0123456789ab-dirty)\n"},
		{"module version", "", info, "studycoach v0.4.0 (0123456789ab-dirty)\n"},
		{"no build info", "", nil, "studycoach (devel)\n"},
		{"devel build", "", &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}}, "studycoach (devel)\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			printVersion(&buf, tt.ldflag, tt.info)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}
