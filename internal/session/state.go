package session

import (
	"errors"
	"strings"
	"time"
)

// Window is how long a quiz stays open for answers.
const Window = time.Hour

// EphemeralPrefix marks topic ids of content that keeps no history, such
// as documents or links the user sent directly.
const EphemeralPrefix = "DIRECT_"

// Phase is the lifecycle position of the pending quiz.
type Phase int

const (
	PhaseNone      Phase = iota // No quiz outstanding
	PhaseActive                 // Waiting for answers
	PhaseCompleted              // All questions answered, awaiting close
	PhaseExpired                // Window elapsed, awaiting close
)

func (p Phase) String() string {
	switch p {
	case PhaseNone:
		return "none"
	case PhaseActive:
		return "active"
	case PhaseCompleted:
		return "completed"
	case PhaseExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Terminal reports whether the phase must be closed.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseExpired
}

var (
	ErrSessionActive      = errors.New("a quiz session is already active")
	ErrNoSession          = errors.New("no active quiz session")
	ErrInvalidQuiz        = errors.New("invalid quiz")
	ErrQuestionOutOfRange = errors.New("question number out of range")
	ErrStaleAnswer        = errors.New("answer predates the quiz")
	ErrNotClosable        = errors.New("session is still open")
)

// IsEphemeral reports whether topicID denotes content without history.
func IsEphemeral(topicID string) bool {
	return strings.HasPrefix(topicID, EphemeralPrefix)
}
