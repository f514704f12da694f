package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Span attributes carry counts and labels only. Prompt text, placeholders,
// mapping values and session ids are never attached to spans.
const (
	AttrProvider = "veil.provider"
	AttrModel    = "veil.model"
	AttrBackend  = "veil.detector.backend"

	AttrTextBytes = "veil.text.bytes"

	AttrEntitiesDetected = "veil.entities.detected"
	AttrEntitiesRedacted = "veil.entities.redacted"
	AttrEntitiesKept     = "veil.entities.kept"
	AttrPlaceholders     = "veil.placeholders"
	AttrSessionEntries   = "veil.session.entries"

	AttrTokensPrompt     = "veil.tokens.prompt"
	AttrTokensCompletion = "veil.tokens.completion"

	AttrStage     = "veil.error.stage"
	AttrErrorType = "veil.error.type"
)

// SetProviderAttributes records the provider and model on span.
func SetProviderAttributes(span trace.Span, provider, model string) {
	span.SetAttributes(
		attribute.String(AttrProvider, provider),
		attribute.String(AttrModel, model),
	)
}

// SetTokenAttributes records provider token usage.
func SetTokenAttributes(span trace.Span, promptTokens, completionTokens int) {
	span.SetAttributes(
		attribute.Int(AttrTokensPrompt, promptTokens),
		attribute.Int(AttrTokensCompletion, completionTokens),
	)
}

// SetEntityAttributes records span counts from a tokenization.
func SetEntityAttributes(span trace.Span, detected, redacted, kept int) {
	span.SetAttributes(
		attribute.Int(AttrEntitiesDetected, detected),
		attribute.Int(AttrEntitiesRedacted, redacted),
		attribute.Int(AttrEntitiesKept, kept),
	)
}

// SetFailure marks span failed at stage with a sanitized error category.
func SetFailure(span trace.Span, stage, category string) {
	span.SetAttributes(
		attribute.String(AttrStage, stage),
		attribute.String(AttrErrorType, category),
	)
	SetStatus(span, category)
}

// SetSessionAttributes records placeholder and session mapping sizes.
func SetSessionAttributes(span trace.Span, placeholders, entries int) {
	span.SetAttributes(
		attribute.Int(AttrPlaceholders, placeholders),
		attribute.Int(AttrSessionEntries, entries),
	)
}
