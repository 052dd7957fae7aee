package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Kind classifies a failed LLM call by what the caller can do about it.
type Kind int

const (
	// KindUnavailable covers outages, timeouts and unclassified network
	// failures. Retryable.
	KindUnavailable Kind = iota
	// KindRateLimited is HTTP 429. Retryable after RetryAfter when set.
	KindRateLimited
	// KindRejected is a request the provider will never accept: bad key,
	// bad parameters, unknown model.
	KindRejected
	// KindInvalid is a reply that is not JSON or misses the schema.
	KindInvalid
	// KindTruncated is a reply cut off at MaxTokens.
	KindTruncated
)

func (k Kind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindRateLimited:
		return "rate limited"
	case KindRejected:
		return "rejected"
	case KindInvalid:
		return "invalid response"
	case KindTruncated:
		return "truncated"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is returned by every provider for a failed call.
type Error struct {
	Kind       Kind
	Status     int             // HTTP status when known
	RetryAfter time.Duration   // KindRateLimited only
	Content    json.RawMessage // offending reply for KindInvalid and KindTruncated
	Err        error
}

func (e *Error) Error() string {
	msg := "llm " + e.Kind.String()
	if e.Status != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err wraps an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

// fromStatus classifies a provider HTTP status. 408 counts as an outage
// rather than a rejection.
func fromStatus(status int, err error) *Error {
	e := &Error{Status: status, Err: err}
	switch {
	case status == http.StatusTooManyRequests:
		e.Kind = KindRateLimited
	case status >= 400 && status < 500 && status != http.StatusRequestTimeout:
		e.Kind = KindRejected
	default:
		e.Kind = KindUnavailable
	}
	return e
}

func invalid(content json.RawMessage, format string, args ...any) *Error {
	return &Error{Kind: KindInvalid, Content: content, Err: fmt.Errorf(format, args...)}
}

// retryAfter reads a Retry-After header given in seconds. HTTP dates and
// missing or malformed values yield zero.
func retryAfter(h http.Header) time.Duration {
	secs, err := strconv.Atoi(h.Get("Retry-After"))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
