package llmclient

import (
	"context"
	"encoding/json"
	"errors"
)

var ErrInvalidJSON = errors.New("invalid json from LLM")

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
	var pErr *PermanentError
	return errors.As(err, &pErr)
}

// LLMClient is the code-synthesis oracle. It is handed a single text prompt
// plus optional structured input and returns the model's JSON response.
// Cross-cutting concerns (rate limiting, retries, logging) are applied via
// middleware; implementations focus on the API call itself.
type LLMClient interface {
	Name() string
	GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error)
	CountTokens(text string) int
	TokenCapacity() int
	Close() error
}
