// Package runner performs one study pass: it advances the pending quiz
// with new answers, closes it when due, and starts the next quiz when the
// slot is free. Each pass is short-lived and keeps all state in the store.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/abhisek/studycoach/internal/collab"
	"github.com/abhisek/studycoach/internal/extract"
	"github.com/abhisek/studycoach/internal/mastery"
	"github.com/abhisek/studycoach/internal/metrics"
	"github.com/abhisek/studycoach/internal/session"
	"github.com/abhisek/studycoach/internal/store"
	"github.com/abhisek/studycoach/internal/textutil"
)

// Persister loads and saves the state document.
type Persister interface {
	Load() *store.Document
	Save(doc *store.Document) error
}

// Options wires the collaborators of a pass. Enricher, Extractor, Metrics
// and Logger are optional.
type Options struct {
	Store     Persister
	Source    collab.ContentSource
	Enricher  collab.Enricher
	Generator collab.QuizGenerator
	Evaluator collab.Evaluator
	Transport collab.Transport
	Extractor collab.Extractor
	Metrics   *metrics.Metrics
	Logger    *slog.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

// Origin of a newly created quiz.
const (
	OriginScheduled = "scheduled"
	OriginDirect    = "direct"
)

// Report summarizes what a pass did.
type Report struct {
	// Messages is the number of inbound messages consumed.
	Messages int

	// Answers is the number of answers accepted.
	Answers int

	// Recovered is set when an interrupted close was discarded.
	Recovered bool

	// Closed lists sessions closed in this pass.
	Closed []*session.Closure

	// Created is the session started in this pass, if any.
	Created *store.PendingSession
	Origin  string
}

// Runner executes passes.
type Runner struct {
	opts   Options
	base   *slog.Logger
	logger *slog.Logger
	now    func() time.Time
}

// New validates opts and returns a Runner.
func New(opts Options) (*Runner, error) {
	switch {
	case opts.Store == nil:
		return nil, errors.New("runner: store is required")
	case opts.Source == nil:
		return nil, errors.New("runner: content source is required")
	case opts.Generator == nil:
		return nil, errors.New("runner: quiz generator is required")
	case opts.Evaluator == nil:
		return nil, errors.New("runner: evaluator is required")
	case opts.Transport == nil:
		return nil, errors.New("runner: transport is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Runner{opts: opts, base: logger, logger: logger.With("component", "runner"), now: now}, nil
}

// pass holds the state of one Run call.
type pass struct {
	*Runner
	doc     *store.Document
	machine *session.Machine
	ledger  *mastery.Ledger
	report  *Report
}

// Run performs one pass. The returned error is non-nil only when the state
// could not be saved; collaborator failures are logged and the pass ends
// early with state intact.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	report, err := r.run(ctx)
	if r.opts.Metrics != nil {
		r.opts.Metrics.RecordPass(err, store.UnixSeconds(r.now()))
	}
	return report, err
}

func (r *Runner) run(ctx context.Context) (*Report, error) {
	doc := r.opts.Store.Load()
	p := &pass{
		Runner:  r,
		doc:     doc,
		machine: session.New(doc, r.base),
		ledger:  mastery.NewLedger(doc, r.base),
		report:  &Report{},
	}

	if p.machine.Recover() != nil {
		p.report.Recovered = true
		if err := p.save(); err != nil {
			return p.report, err
		}
	}

	msgs, err := r.opts.Transport.FetchNewMessages(ctx, doc.LastUpdateID)
	if err != nil {
		r.logger.Warn("fetching messages failed", "error", err)
		r.recordError("transport.fetch")
		msgs = nil
	}

	// Expiry is settled before any new answer is looked at.
	if err := p.closeIfDue(ctx); err != nil {
		return p.report, err
	}

	submission, err := p.consume(msgs)
	if err != nil {
		return p.report, err
	}

	if err := p.closeIfDue(ctx); err != nil {
		return p.report, err
	}

	if p.machine.Pending() != nil {
		if submission != nil {
			r.notify(ctx, "You still have a quiz in progress. Finish it before sending new material.")
		}
		r.logger.Info("session pending, waiting for answers",
			"session", p.machine.Pending().SessionID, "answers", len(p.machine.Pending().Answers))
		return p.report, nil
	}

	if submission != nil {
		created, err := p.startDirect(ctx, *submission)
		if err != nil || created {
			return p.report, err
		}
	}

	return p.report, p.startScheduled(ctx)
}

func (p *pass) save() error {
	if err := p.opts.Store.Save(p.doc); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// consume advances the cursor over msgs, ingesting answers into the
// pending session. It returns the latest content submission, if any: a
// document, or a link in a message that carried no accepted answer.
func (p *pass) consume(msgs []collab.Message) (*collab.Message, error) {
	if len(msgs) == 0 {
		return nil, nil
	}

	var submission *collab.Message
	for i := range msgs {
		msg := msgs[i]
		accepted := 0
		if pending := p.machine.Pending(); pending != nil && !pending.Completed {
			accepted = p.ingest(msg)
		}
		if msg.Document != nil || (accepted == 0 && extract.FindURL(msg.Text) != "") {
			submission = &msgs[i]
		}
		if p.doc.LastUpdateID == nil || msg.UpdateID > *p.doc.LastUpdateID {
			id := msg.UpdateID
			p.doc.LastUpdateID = &id
		}
	}
	p.report.Messages = len(msgs)
	if p.opts.Metrics != nil {
		p.opts.Metrics.RecordAnswers(p.report.Answers)
	}
	p.logger.Info("messages consumed", "messages", len(msgs), "answers", p.report.Answers, "cursor", *p.doc.LastUpdateID)
	return submission, p.save()
}

// ingest feeds the numbered answers in msg to the pending session and
// returns how many were accepted.
func (p *pass) ingest(msg collab.Message) int {
	accepted := 0
	for _, a := range session.ParseAnswers(msg.Text) {
		if err := p.machine.Ingest(a.Number, a.Text, msg.Time); err != nil {
			p.logger.Debug("answer ignored", "update", msg.UpdateID, "question", a.Number, "reason", err)
			continue
		}
		accepted++
	}
	p.report.Answers += accepted
	return accepted
}

// closeIfDue latches, evaluates and clears the pending session when it is
// complete or expired. The latch is saved before evaluation and the
// cleared slot right after, so a crash in between never evaluates twice.
func (p *pass) closeIfDue(ctx context.Context) error {
	now := p.now()
	if !p.machine.Tick(now).Terminal() {
		return nil
	}
	if err := p.save(); err != nil {
		return err
	}
	c, err := p.machine.Close(ctx, p.opts.Evaluator, p.ledger, now)
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	if err := p.save(); err != nil {
		return err
	}
	if c == nil {
		return nil
	}

	p.report.Closed = append(p.report.Closed, c)
	if p.opts.Metrics != nil {
		p.opts.Metrics.RecordClose(c.Phase.String(), c.Partial)
	}
	if c.Evaluated {
		p.notify(ctx, evaluationMessage(c))
	}
	return nil
}

// startDirect turns a submitted document or link into an ephemeral quiz.
// It reports whether a session was created.
func (p *pass) startDirect(ctx context.Context, msg collab.Message) (bool, error) {
	title, text, err := p.extract(ctx, msg)
	if err != nil {
		p.logger.Warn("extracting submitted content failed", "update", msg.UpdateID, "error", err)
		p.recordError("extract")
		p.notify(ctx, "I could not read enough text from what you sent.")
		return false, nil
	}

	now := p.now()
	quiz, err := p.opts.Generator.Generate(ctx, collab.GenerateInput{
		Title:        title,
		Content:      text,
		Instructions: directInstructions,
	})
	if err != nil {
		p.logger.Error("quiz generation for submitted content failed", "title", title, "error", err)
		p.recordError("generate")
		return false, nil
	}

	topicID := fmt.Sprintf("%s%d", session.EphemeralPrefix, now.Unix())
	created, err := p.deliver(ctx, topicID, title, *quiz, now)
	if err != nil || !created {
		return created, err
	}
	p.report.Origin = OriginDirect
	if p.opts.Metrics != nil {
		p.opts.Metrics.RecordQuiz(OriginDirect)
	}
	return true, p.save()
}

const directInstructions = "The learner sent this material directly. Base every question exclusively on this text."

// extract returns the title and bounded text of a submission.
func (p *pass) extract(ctx context.Context, msg collab.Message) (string, string, error) {
	if p.opts.Extractor == nil {
		return "", "", errors.New("no extractor configured")
	}

	var title, text string
	switch {
	case msg.Document != nil:
		if !isPDF(msg.Document) {
			return "", "", fmt.Errorf("unsupported attachment %q (%s)", msg.Document.FileName, msg.Document.MIMEType)
		}
		data, err := p.opts.Transport.Download(ctx, msg.Document.FileID)
		if err != nil {
			return "", "", fmt.Errorf("download %s: %w", msg.Document.FileName, err)
		}
		title = msg.Document.FileName
		if text, err = p.opts.Extractor.FromPDF(data); err != nil {
			return "", "", err
		}
	default:
		url := extract.FindURL(msg.Text)
		pageTitle, body, err := p.opts.Extractor.FromURL(ctx, url)
		if err != nil {
			return "", "", err
		}
		title, text = pageTitle, body
		if title == "" {
			title = "Web: " + url
		}
	}

	if len([]rune(text)) <= extract.MinChars {
		return "", "", fmt.Errorf("%w: only %d characters", extract.ErrNoText, len([]rune(text)))
	}
	return title, textutil.Truncate(text, extract.MaxChars), nil
}

// startScheduled picks the next topic from the content source and sends a
// quiz for it. Every failure before delivery leaves the state unchanged.
func (p *pass) startScheduled(ctx context.Context) error {
	topics, err := p.opts.Source.FetchCandidateTopics(ctx)
	if err != nil {
		p.logger.Error("fetching topics failed", "error", err)
		p.recordError("source.topics")
		return nil
	}

	now := p.now()
	sel, ok := selectTopic(p.doc, topics, now)
	if !ok {
		p.logger.Warn("no candidate topics")
		return nil
	}
	p.logger.Info("topic selected", "topic", sel.ID, "title", sel.Title, "score", sel.Score, "fallback", sel.Fallback)

	content, err := p.opts.Source.FetchContent(ctx, sel.ID)
	if err != nil {
		p.logger.Error("fetching topic content failed", "topic", sel.ID, "error", err)
		p.recordError("source.content")
		return nil
	}
	if content == "" {
		p.logger.Warn("topic has no content", "topic", sel.ID)
		return nil
	}

	in := generateInput(p.doc, topics, sel.Candidate.ID, sel.Title, content, now)
	if p.opts.Enricher != nil {
		in.Content = p.opts.Enricher.Enrich(ctx, sel.Title, content)
	}

	quiz, err := p.opts.Generator.Generate(ctx, in)
	if err != nil {
		p.logger.Error("quiz generation failed", "topic", sel.ID, "error", err)
		p.recordError("generate")
		return nil
	}

	created, err := p.deliver(ctx, sel.ID, sel.Title, *quiz, now)
	if err != nil || !created {
		return err
	}
	p.ledger.MarkReviewed(sel.ID, sel.Title, now)
	p.report.Origin = OriginScheduled
	if p.opts.Metrics != nil {
		p.opts.Metrics.RecordQuiz(OriginScheduled)
	}
	return p.save()
}

// deliver creates the session and sends its quiz. A quiz that cannot be
// sent is cancelled so the slot stays free.
func (p *pass) deliver(ctx context.Context, topicID, title string, quiz store.Quiz, now time.Time) (bool, error) {
	s, err := p.machine.Create(topicID, title, quiz, now)
	if err != nil {
		p.logger.Error("creating session failed", "topic", topicID, "error", err)
		return false, nil
	}
	if err := p.opts.Transport.SendQuiz(ctx, title, quiz, s.SessionID); err != nil {
		p.logger.Error("sending quiz failed", "session", s.SessionID, "error", err)
		p.recordError("transport.send")
		p.machine.Cancel(s.SessionID)
		return false, nil
	}
	p.report.Created = s
	p.logger.Info("quiz sent", "session", s.SessionID, "topic", topicID, "title", title)
	return true, nil
}

func (r *Runner) notify(ctx context.Context, text string) {
	if err := r.opts.Transport.Notify(ctx, text); err != nil {
		r.logger.Warn("notification failed", "error", err)
		r.recordError("transport.notify")
	}
}

func (r *Runner) recordError(op string) {
	if r.opts.Metrics != nil {
		r.opts.Metrics.RecordError(op)
	}
}
