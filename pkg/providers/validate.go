package providers

// ValidateRequest checks the fields every adapter needs. model is the
// resolved model name (request model or the provider default).
func ValidateRequest(req *CompletionRequest, model string) error {
	if req == nil {
		return &ValidationError{Field: "request", Message: "request cannot be nil"}
	}
	if model == "" {
		return &ValidationError{Field: "model", Message: "model is required"}
	}
	if len(req.Messages) == 0 {
		return &ValidationError{Field: "messages", Message: "at least one message is required"}
	}
	return nil
}
