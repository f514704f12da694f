package pipeline

import (
	"errors"
	"fmt"

	"mercator-hq/veil/pkg/providers"
	"mercator-hq/veil/pkg/tokenize"
)

// Stage names a pipeline step that can fail.
type Stage string

const (
	StageDetection    Stage = "detection"
	StageTokenization Stage = "tokenization"
	StageProvider     Stage = "provider"
)

// Categories added on top of providers.Category.
const (
	CategoryInvalidSpan = "invalid_span"
	CategoryExhausted   = "placeholder_exhausted"
	CategoryEmptyPrompt = "empty_prompt"
)

// ErrEmptyPrompt is returned for a blank prompt.
var ErrEmptyPrompt = errors.New("prompt is empty")

// Failure is the only error Process returns. Its message names the stage
// and a cause category and never includes prompt text or mapping values.
type Failure struct {
	Stage     Stage
	SessionID string
	Cause     error
}

// Error implements the error interface.
func (f *Failure) Error() string {
	return fmt.Sprintf("pipeline %s failed: %s", f.Stage, Category(f.Cause))
}

// Unwrap returns the underlying cause.
func (f *Failure) Unwrap() error {
	return f.Cause
}

// Category maps err to a short label that is safe to log and to return to
// clients.
func Category(err error) string {
	var spanErr *tokenize.InvalidSpanError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &spanErr):
		return CategoryInvalidSpan
	case errors.Is(err, tokenize.ErrPlaceholderExhausted):
		return CategoryExhausted
	case errors.Is(err, ErrEmptyPrompt):
		return CategoryEmptyPrompt
	default:
		return providers.Category(err)
	}
}
