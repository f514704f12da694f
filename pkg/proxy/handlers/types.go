package handlers

import (
	"context"

	"mercator-hq/veil/pkg/detector"
	"mercator-hq/veil/pkg/pipeline"
)

// Processor runs prompts through the tokenization pipeline.
// *pipeline.Pipeline satisfies it.
type Processor interface {
	Process(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
	Detect(ctx context.Context, text string) ([]detector.Span, error)
}

// SessionStore removes session mappings. *vault.Vault satisfies it.
type SessionStore interface {
	Delete(sessionID string) bool
}
