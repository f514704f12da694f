package types

import "strings"

// ChatRequest is the body of POST /v1/chat.
type ChatRequest struct {
	// Prompt is the raw user text. It may contain PII.
	Prompt string `json:"prompt"`

	// SessionID groups requests that share placeholders. Optional; the
	// gateway generates one when empty.
	SessionID string `json:"session_id,omitempty"`

	// Model overrides the configured default model. Optional.
	Model string `json:"model,omitempty"`
}

// Validate checks required fields.
func (r *ChatRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return &ValidationError{Field: "prompt", Message: "prompt is required"}
	}
	if len(r.SessionID) > MaxSessionIDLength {
		return &ValidationError{Field: "session_id", Message: "session_id is too long"}
	}
	return nil
}

// DetectRequest is the body of POST /v1/detect.
type DetectRequest struct {
	Text string `json:"text"`
}

// Validate checks required fields.
func (r *DetectRequest) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return &ValidationError{Field: "text", Message: "text is required"}
	}
	return nil
}

// MaxSessionIDLength bounds client-supplied session ids.
const MaxSessionIDLength = 256

// ValidationError represents a validation error for a specific field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
