package collab

import (
	"context"

	"github.com/abhisek/studycoach/internal/retry"
	"github.com/abhisek/studycoach/internal/store"
)

type retrySource struct {
	inner  ContentSource
	policy retry.Policy
}

// WithRetrySource wraps a ContentSource with a bounded retry policy.
func WithRetrySource(s ContentSource, p retry.Policy) ContentSource {
	return &retrySource{inner: s, policy: p}
}

func (r *retrySource) FetchCandidateTopics(ctx context.Context) ([]Topic, error) {
	return retry.Do(ctx, r.policy, "fetch-topics", r.inner.FetchCandidateTopics)
}

func (r *retrySource) FetchContent(ctx context.Context, id string) (string, error) {
	return retry.Do(ctx, r.policy, "fetch-content", func(ctx context.Context) (string, error) {
		return r.inner.FetchContent(ctx, id)
	})
}

type retryGenerator struct {
	inner  QuizGenerator
	policy retry.Policy
}

// WithRetryGenerator wraps a QuizGenerator with a bounded retry policy.
func WithRetryGenerator(g QuizGenerator, p retry.Policy) QuizGenerator {
	return &retryGenerator{inner: g, policy: p}
}

func (r *retryGenerator) Generate(ctx context.Context, in GenerateInput) (*store.Quiz, error) {
	return retry.Do(ctx, r.policy, "generate-quiz", func(ctx context.Context) (*store.Quiz, error) {
		return r.inner.Generate(ctx, in)
	})
}

type retryTransport struct {
	inner  Transport
	policy retry.Policy
}

// WithRetryTransport wraps a Transport with a bounded retry policy.
func WithRetryTransport(t Transport, p retry.Policy) Transport {
	return &retryTransport{inner: t, policy: p}
}

func (r *retryTransport) SendQuiz(ctx context.Context, title string, quiz store.Quiz, sessionID string) error {
	return retry.DoErr(ctx, r.policy, "send-quiz", func(ctx context.Context) error {
		return r.inner.SendQuiz(ctx, title, quiz, sessionID)
	})
}

func (r *retryTransport) Notify(ctx context.Context, text string) error {
	return retry.DoErr(ctx, r.policy, "notify", func(ctx context.Context) error {
		return r.inner.Notify(ctx, text)
	})
}

func (r *retryTransport) FetchNewMessages(ctx context.Context, sinceUpdateID *int64) ([]Message, error) {
	return retry.Do(ctx, r.policy, "fetch-messages", func(ctx context.Context) ([]Message, error) {
		return r.inner.FetchNewMessages(ctx, sinceUpdateID)
	})
}

func (r *retryTransport) Download(ctx context.Context, fileID string) ([]byte, error) {
	return retry.Do(ctx, r.policy, "download", func(ctx context.Context) ([]byte, error) {
		return r.inner.Download(ctx, fileID)
	})
}
