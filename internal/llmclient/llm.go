package llmclient

import (
	"context"
	"errors"
)

// Client is one chat-completion backend. Implementations must be safe for
// sequential reuse across pipeline phases.
type Client interface {
	Name() string
	Chat(ctx context.Context, system, user string, maxTokens int) (string, error)
	Close() error
}

var ErrEmptyResponse = errors.New("empty response from LLM")

// PermanentError indicates an error that will not resolve with retries.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err (or anything it wraps) is a PermanentError.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}
