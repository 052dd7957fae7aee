package llm

import "context"

type labelKey struct{}

// Label identifies what an LLM call is for. It travels on the context so
// decorators can log and persist it without widening Request.
type Label struct {
	Purpose string // "quiz-gen" or "evaluation"
	Topic   string // topic title, empty when the call is not topic bound
}

// WithLabel returns a context carrying l.
func WithLabel(ctx context.Context, l Label) context.Context {
	return context.WithValue(ctx, labelKey{}, l)
}

// LabelFrom returns the label on ctx. Purpose is "unknown" when unset.
func LabelFrom(ctx context.Context) Label {
	l, _ := ctx.Value(labelKey{}).(Label)
	if l.Purpose == "" {
		l.Purpose = "unknown"
	}
	return l
}
