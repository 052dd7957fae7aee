// Package metrics exposes counters for study passes. The tool runs as a
// short-lived cron job, so metrics are written to a node_exporter textfile
// rather than served.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "studycoach"

// Metrics holds the collectors for one process. Each instance owns its
// registry, so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	PassesTotal        *prometheus.CounterVec
	SessionsClosed     *prometheus.CounterVec
	QuizzesSent        *prometheus.CounterVec
	AnswersIngested    prometheus.Counter
	LastPassTimestamp  prometheus.Gauge
	CollaboratorErrors *prometheus.CounterVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		PassesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "passes_total",
			Help:      "Invocation passes by outcome.",
		}, []string{"outcome"}),
		SessionsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "closed_total",
			Help:      "Closed quiz sessions by phase.",
		}, []string{"phase", "partial"}),
		QuizzesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quiz",
			Name:      "sent_total",
			Help:      "Quizzes delivered by origin.",
		}, []string{"origin"}),
		AnswersIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "answers_ingested_total",
			Help:      "Answers accepted into the pending session.",
		}),
		LastPassTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_pass_timestamp_seconds",
			Help:      "Unix time of the last completed pass.",
		}),
		CollaboratorErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collaborator_errors_total",
			Help:      "Failed collaborator calls by operation.",
		}, []string{"op"}),
	}
	m.registry.MustRegister(
		m.PassesTotal,
		m.SessionsClosed,
		m.QuizzesSent,
		m.AnswersIngested,
		m.LastPassTimestamp,
		m.CollaboratorErrors,
	)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordPass counts a finished pass. err is the pass error, if any.
func (m *Metrics) RecordPass(err error, unix float64) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.PassesTotal.WithLabelValues(outcome).Inc()
	m.LastPassTimestamp.Set(unix)
}

// RecordClose counts a closed session.
func (m *Metrics) RecordClose(phase string, partial bool) {
	m.SessionsClosed.WithLabelValues(phase, fmt.Sprint(partial)).Inc()
}

// RecordQuiz counts a delivered quiz. origin is "scheduled" or "direct".
func (m *Metrics) RecordQuiz(origin string) {
	m.QuizzesSent.WithLabelValues(origin).Inc()
}

// RecordAnswers adds n accepted answers.
func (m *Metrics) RecordAnswers(n int) {
	if n > 0 {
		m.AnswersIngested.Add(float64(n))
	}
}

// RecordError counts a failed collaborator call.
func (m *Metrics) RecordError(op string) {
	m.CollaboratorErrors.WithLabelValues(op).Inc()
}

// WriteTextfile writes the current values in the text exposition format,
// atomically replacing path.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
