// Package telegram delivers quizzes to the learner and collects replies
// through the Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/abhisek/studycoach/internal/collab"
	"github.com/abhisek/studycoach/internal/retry"
	"github.com/abhisek/studycoach/internal/store"
)

// UpdateLimit is the most updates fetched per pass.
const UpdateLimit = 50

// botAPI is the subset of *tgbotapi.BotAPI the transport uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Config holds the bot credentials and target chat.
type Config struct {
	Token  string
	ChatID int64

	// SendInterval spaces consecutive messages to stay under flood limits.
	SendInterval time.Duration

	// Retry applies to each outgoing message. The zero value sends once.
	Retry retry.Policy
}

// ParseChatID parses the TELEGRAM_CHAT_ID value.
func ParseChatID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid telegram chat id %q: %w", s, err)
	}
	return id, nil
}

// Transport implements collab.Transport.
type Transport struct {
	bot     botAPI
	chatID  int64
	retry   retry.Policy
	limiter *rate.Limiter
	http    *http.Client
	logger  *slog.Logger
}

// New connects to the Bot API and returns a Transport.
func New(cfg Config, logger *slog.Logger) (*Transport, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is required")
	}
	if cfg.ChatID == 0 {
		return nil, fmt.Errorf("TELEGRAM_CHAT_ID is required")
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("connect to telegram: %w", err)
	}
	return newTransport(bot, cfg, logger), nil
}

func newTransport(bot botAPI, cfg Config, logger *slog.Logger) *Transport {
	if logger == nil {
		logger = slog.Default()
	}
	limit := rate.Inf
	if cfg.SendInterval > 0 {
		limit = rate.Every(cfg.SendInterval)
	}
	return &Transport{
		bot:     bot,
		chatID:  cfg.ChatID,
		retry:   cfg.Retry,
		limiter: rate.NewLimiter(limit, 1),
		http:    &http.Client{Timeout: 60 * time.Second},
		logger:  logger.With("component", "telegram"),
	}
}

// send delivers one message, retrying it alone under the transport policy.
func (t *Transport) send(ctx context.Context, text, parseMode string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = parseMode
	err := retry.DoErr(ctx, t.retry, "telegram-send", func(ctx context.Context) error {
		if err := t.limiter.Wait(ctx); err != nil {
			return retry.Permanent(err)
		}
		if _, err := t.bot.Send(msg); err != nil {
			return fmt.Errorf("send telegram message: %w", err)
		}
		return nil
	})
	if err != nil && t.retry.Attempts > 1 {
		// Already retried here.
		return retry.Permanent(err)
	}
	return err
}

// SendQuiz sends the header, each numbered question followed by its
// reference answer as a spoiler, and a closing reminder. Once the header
// is in the chat a failure is returned as retry.Permanent, so wrappers do
// not send the quiz a second time.
func (t *Transport) SendQuiz(ctx context.Context, title string, quiz store.Quiz, sessionID string) error {
	msgs := renderQuiz(title, quiz, sessionID)
	for i, m := range msgs {
		if err := t.send(ctx, m.text, m.parseMode); err != nil {
			// A spoiler that fails to render is not worth aborting the quiz.
			if m.optional {
				t.logger.Warn("reference answer not delivered", "error", err)
				continue
			}
			if i > 0 {
				return retry.Permanent(fmt.Errorf("quiz cut off after %d of %d messages: %w", i, len(msgs), err))
			}
			return err
		}
	}
	return nil
}

// Notify sends a plain text message.
func (t *Transport) Notify(ctx context.Context, text string) error {
	return t.send(ctx, text, "")
}

// FetchNewMessages returns updates after sinceUpdateID, oldest first.
// Updates from other chats, and updates without a message, come back with
// only UpdateID set so the caller can still advance its cursor.
func (t *Transport) FetchNewMessages(ctx context.Context, sinceUpdateID *int64) ([]collab.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := tgbotapi.NewUpdate(0)
	if sinceUpdateID != nil {
		cfg.Offset = int(*sinceUpdateID + 1)
	}
	cfg.Limit = UpdateLimit
	cfg.Timeout = 0

	updates, err := t.bot.GetUpdates(cfg)
	if err != nil {
		return nil, fmt.Errorf("get telegram updates: %w", err)
	}

	out := make([]collab.Message, 0, len(updates))
	for _, u := range updates {
		m := collab.Message{UpdateID: int64(u.UpdateID)}
		msg := u.Message
		if msg != nil && msg.Chat != nil && msg.Chat.ID == t.chatID {
			m.Time = time.Unix(int64(msg.Date), 0)
			m.Text = msg.Text
			if m.Text == "" {
				m.Text = msg.Caption
			}
			if doc := msg.Document; doc != nil {
				m.Document = &collab.Attachment{
					FileID:   doc.FileID,
					FileName: doc.FileName,
					MIMEType: doc.MimeType,
				}
			}
		}
		out = append(out, m)
	}
	return out, nil
}

// Download fetches an attachment's content.
func (t *Transport) Download(ctx context.Context, fileID string) ([]byte, error) {
	url, err := t.bot.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("resolve telegram file: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}
	resp, err := t.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download telegram file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download telegram file: HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
