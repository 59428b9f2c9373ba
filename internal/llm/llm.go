package llm

import (
	"context"
	"encoding/json"
	"errors"
)

var ErrInvalidJSON = errors.New("invalid json from LLM")

// Client is the minimal surface the review loop needs from a model.
type Client interface {
	Name() string
	GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error)
	Close() error
}

// PermanentError indicates an error that will not resolve with retries.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}

// ---- Task tag via context, used in log lines

type ctxKeyTask struct{}

func WithTask(ctx context.Context, task string) context.Context {
	return context.WithValue(ctx, ctxKeyTask{}, task)
}

func TaskFrom(ctx context.Context) string {
	if v := ctx.Value(ctxKeyTask{}); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return "unknown"
}
