package telegram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/studycoach/internal/collab"
	"github.com/abhisek/studycoach/internal/retry"
	"github.com/abhisek/studycoach/internal/store"
)

const chatID int64 = 4242

type fakeBot struct {
	sent      []tgbotapi.MessageConfig
	failWhen  func(tgbotapi.MessageConfig) bool
	updates   []tgbotapi.Update
	gotConfig tgbotapi.UpdateConfig
	fileURL   string
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	msg := c.(tgbotapi.MessageConfig)
	if f.failWhen != nil && f.failWhen(msg) {
		return tgbotapi.Message{}, errors.New("bad request: can't parse entities")
	}
	f.sent = append(f.sent, msg)
	return tgbotapi.Message{}, nil
}

func (f *fakeBot) GetUpdates(cfg tgbotapi.UpdateConfig) ([]tgbotapi.Update, error) {
	f.gotConfig = cfg
	return f.updates, nil
}

func (f *fakeBot) GetFileDirectURL(string) (string, error) {
	return f.fileURL, nil
}

func testQuiz() store.Quiz {
	item := func(n string) store.QuizItem { return store.QuizItem{Question: "Q" + n + "?", Answer: "A" + n + "."} }
	return store.Quiz{
		Easy:        []store.QuizItem{item("1"), item("2")},
		Development: []store.QuizItem{item("3"), item("4")},
		CaseStudy:   []store.QuizItem{item("5"), item("6")},
	}
}

func TestSendQuiz_Layout(t *testing.T) {
	bot := &fakeBot{}
	tr := newTransport(bot, Config{ChatID: chatID}, nil)

	require.NoError(t, tr.SendQuiz(context.Background(), "DNS (basics)", testQuiz(), "session_1"))

	// header + 3 section titles + 6 × (question, answer) + footer
	require.Len(t, bot.sent, 1+3+12+1)
	for _, m := range bot.sent {
		assert.Equal(t, chatID, m.ChatID)
		assert.Equal(t, tgbotapi.ModeMarkdownV2, m.ParseMode)
	}
	assert.Contains(t, bot.sent[0].Text, `DNS \(basics\)`)
	assert.Contains(t, bot.sent[0].Text, "session\\_1")
	assert.Equal(t, `*1\) Q1?*`, bot.sent[2].Text)
	assert.Equal(t, `||💡 Suggested answer: A1\.||`, bot.sent[3].Text)
	assert.Contains(t, bot.sent[len(bot.sent)-1].Text, "Quiz sent")
}

func TestSendQuiz_SpoilerFailureTolerated(t *testing.T) {
	bot := &fakeBot{failWhen: func(m tgbotapi.MessageConfig) bool { return strings.HasPrefix(m.Text, "||") }}
	tr := newTransport(bot, Config{ChatID: chatID}, nil)

	require.NoError(t, tr.SendQuiz(context.Background(), "t", testQuiz(), "s"))
	assert.Len(t, bot.sent, 1+3+6+1)
}

func TestSendQuiz_QuestionFailureAborts(t *testing.T) {
	bot := &fakeBot{failWhen: func(m tgbotapi.MessageConfig) bool { return strings.Contains(m.Text, "Q3") }}
	tr := newTransport(bot, Config{ChatID: chatID}, nil)

	assert.Error(t, tr.SendQuiz(context.Background(), "t", testQuiz(), "s"))
}

func failOnce(substr string) func(tgbotapi.MessageConfig) bool {
	failed := false
	return func(m tgbotapi.MessageConfig) bool {
		if failed || !strings.Contains(m.Text, substr) {
			return false
		}
		failed = true
		return true
	}
}

func TestSendQuiz_RetriesSingleMessage(t *testing.T) {
	bot := &fakeBot{failWhen: failOnce("Q3")}
	tr := newTransport(bot, Config{ChatID: chatID, Retry: retry.Policy{Attempts: 3}}, nil)

	require.NoError(t, tr.SendQuiz(context.Background(), "t", testQuiz(), "session_1"))
	require.Len(t, bot.sent, 1+3+12+1)
	assert.Contains(t, bot.sent[0].Text, "session\\_1")
	for _, m := range bot.sent[1:] {
		assert.NotContains(t, m.Text, "session\\_1")
	}
}

func TestSendQuiz_CutOffQuizIsNotResent(t *testing.T) {
	bot := &fakeBot{failWhen: func(m tgbotapi.MessageConfig) bool { return strings.Contains(m.Text, "Q3") }}
	tr := newTransport(bot, Config{ChatID: chatID}, nil)

	err := tr.SendQuiz(context.Background(), "t", testQuiz(), "session_1")
	require.Error(t, err)
	assert.True(t, retry.IsPermanent(err))

	wrapped := collab.WithRetryTransport(tr, retry.Policy{Attempts: 3})
	bot.sent = nil
	require.Error(t, wrapped.SendQuiz(context.Background(), "t", testQuiz(), "session_1"))
	headers := 0
	for _, m := range bot.sent {
		if strings.Contains(m.Text, "session\\_1") {
			headers++
		}
	}
	assert.Equal(t, 1, headers)
}

func TestSendQuiz_HeaderFailureStaysRetryable(t *testing.T) {
	bot := &fakeBot{failWhen: failOnce("session")}
	tr := newTransport(bot, Config{ChatID: chatID}, nil)

	err := tr.SendQuiz(context.Background(), "t", testQuiz(), "session_1")
	require.Error(t, err)
	assert.False(t, retry.IsPermanent(err))

	require.NoError(t, collab.WithRetryTransport(tr, retry.Policy{Attempts: 2}).SendQuiz(context.Background(), "t", testQuiz(), "session_1"))
}

func TestNotify_RetriedOnlyByTransport(t *testing.T) {
	attempts := 0
	bot := &fakeBot{failWhen: func(tgbotapi.MessageConfig) bool { attempts++; return true }}
	tr := newTransport(bot, Config{ChatID: chatID, Retry: retry.Policy{Attempts: 2}}, nil)

	err := collab.WithRetryTransport(tr, retry.Policy{Attempts: 3}).Notify(context.Background(), "hi")
	require.Error(t, err)
	assert.Equal(t, 2, attempts)
}

func TestNotify(t *testing.T) {
	bot := &fakeBot{}
	tr := newTransport(bot, Config{ChatID: chatID}, nil)

	require.NoError(t, tr.Notify(context.Background(), "plain *text*"))
	require.Len(t, bot.sent, 1)
	assert.Equal(t, "plain *text*", bot.sent[0].Text)
	assert.Empty(t, bot.sent[0].ParseMode)
}

func TestFetchNewMessages(t *testing.T) {
	bot := &fakeBot{updates: []tgbotapi.Update{
		{UpdateID: 11, Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}, Date: 1792231200, Text: "1) answer"}},
		{UpdateID: 12, Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 999}, Text: "stranger"}},
		{UpdateID: 13},
		{UpdateID: 14, Message: &tgbotapi.Message{
			Chat:     &tgbotapi.Chat{ID: chatID},
			Caption:  "read this",
			Document: &tgbotapi.Document{FileID: "f1", FileName: "notes.pdf", MimeType: "application/pdf"},
		}},
	}}
	tr := newTransport(bot, Config{ChatID: chatID}, nil)

	cursor := int64(10)
	msgs, err := tr.FetchNewMessages(context.Background(), &cursor)
	require.NoError(t, err)

	assert.Equal(t, 11, bot.gotConfig.Offset)
	assert.Equal(t, UpdateLimit, bot.gotConfig.Limit)
	require.Len(t, msgs, 4)

	assert.Equal(t, "1) answer", msgs[0].Text)
	assert.Equal(t, int64(1792231200), msgs[0].Time.Unix())
	assert.Equal(t, int64(12), msgs[1].UpdateID)
	assert.Empty(t, msgs[1].Text)
	assert.Empty(t, msgs[2].Text)
	assert.Equal(t, "read this", msgs[3].Text)
	require.NotNil(t, msgs[3].Document)
	assert.Equal(t, "notes.pdf", msgs[3].Document.FileName)
}

func TestFetchNewMessages_NilCursor(t *testing.T) {
	bot := &fakeBot{}
	tr := newTransport(bot, Config{ChatID: chatID}, nil)

	msgs, err := tr.FetchNewMessages(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, msgs)
	assert.Equal(t, 0, bot.gotConfig.Offset)
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("%PDF-data"))
	}))
	defer srv.Close()

	tr := newTransport(&fakeBot{fileURL: srv.URL + "/file"}, Config{ChatID: chatID}, nil)
	data, err := tr.Download(context.Background(), "f1")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-data", string(data))
}

func TestParseChatID(t *testing.T) {
	id, err := ParseChatID("-100123")
	require.NoError(t, err)
	assert.Equal(t, int64(-100123), id)

	_, err = ParseChatID("chat")
	assert.Error(t, err)
}

func TestNew_RequiresCredentials(t *testing.T) {
	_, err := New(Config{ChatID: 1}, nil)
	assert.Error(t, err)
	_, err = New(Config{Token: "x"}, nil)
	assert.Error(t, err)
}
