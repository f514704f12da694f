package types

// Entity is one detected span as returned to clients.
type Entity struct {
	EntityType string  `json:"entity_type"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Score      float64 `json:"score"`
	Text       string  `json:"text"`
}

// TokensUsed reports placeholder counts for a chat request. Mapping values
// are never returned.
type TokensUsed struct {
	Placeholders int `json:"placeholders"`
	Session      int `json:"session"`
	Redacted     int `json:"redacted"`
	Kept         int `json:"kept"`
}

// Usage is provider token usage.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResponse is the body returned by POST /v1/chat.
type ChatResponse struct {
	OriginalPrompt       string     `json:"original_prompt"`
	DeidentifiedPrompt   string     `json:"deidentified_prompt"`
	LLMResponse          string     `json:"llm_response"`
	ReidentifiedResponse string     `json:"reidentified_response"`
	DetectedEntities     []Entity   `json:"detected_entities"`
	TokensUsed           TokensUsed `json:"tokens_used"`
	SessionID            string     `json:"session_id"`
	Model                string     `json:"model,omitempty"`
	Provider             string     `json:"provider,omitempty"`
	Usage                *Usage     `json:"usage,omitempty"`
}

// DetectResponse is the body returned by POST /v1/detect.
type DetectResponse struct {
	Entities []Entity `json:"entities"`
	Count    int      `json:"count"`
}

// SessionDeleteResponse is the body returned by DELETE /v1/sessions/{id}.
type SessionDeleteResponse struct {
	SessionID string `json:"session_id"`
	Deleted   bool   `json:"deleted"`
}

// ServiceInfo is the body returned by GET /.
type ServiceInfo struct {
	Message   string            `json:"message"`
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}
