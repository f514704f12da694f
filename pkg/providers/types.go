package providers

import "time"

// Message is a single chat message in provider-agnostic form.
type Message struct {
	// Role identifies the sender (system, user, assistant).
	Role string `json:"role"`

	// Content is the message text.
	Content string `json:"content"`
}

// TokenUsage tracks token consumption for a request.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionRequest is a provider-agnostic completion request.
type CompletionRequest struct {
	// Model is the model identifier. Empty means the provider's configured
	// default model.
	Model string `json:"model"`

	// Messages is the conversation, already sanitized.
	Messages []Message `json:"messages"`

	// Temperature controls randomness. Zero means the provider default.
	Temperature float64 `json:"temperature,omitempty"`

	// MaxTokens bounds the completion length. Zero means the provider default.
	MaxTokens int `json:"max_tokens,omitempty"`

	// Metadata carries request context (request id, session hash). It is
	// never sent to the provider.
	Metadata map[string]string `json:"-"`
}

// CompletionResponse is a provider-agnostic completion response.
type CompletionResponse struct {
	ID           string            `json:"id"`
	Model        string            `json:"model"`
	Content      string            `json:"content"`
	FinishReason string            `json:"finish_reason"`
	Usage        TokenUsage        `json:"usage"`
	Created      int64             `json:"created"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// ProviderHealth tracks the health status of a provider.
type ProviderHealth struct {
	// IsHealthy indicates whether the provider is currently healthy.
	IsHealthy bool

	// LastCheck is the time of the last health check or request.
	LastCheck time.Time

	// LastError is the most recent error (nil if healthy).
	LastError error

	// ConsecutiveFailures counts sequential failures.
	ConsecutiveFailures int

	// LastSuccessfulRequest is the time of the last successful request.
	LastSuccessfulRequest time.Time

	TotalRequests  int64
	FailedRequests int64
}

// ProviderConfig contains configuration for a single provider instance.
type ProviderConfig struct {
	// Name is the provider identifier used in configuration and metrics.
	Name string

	// Type is the provider type (openai, anthropic, gemini, ollama, echo).
	Type string

	// BaseURL is the API endpoint base URL.
	BaseURL string

	// APIKey is the authentication key.
	APIKey string

	// Model is the default model used when a request leaves it empty.
	Model string

	// Temperature is the default sampling temperature.
	Temperature float64

	// MaxTokens is the default completion length limit.
	MaxTokens int

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration

	// MaxRetries is the maximum number of retry attempts.
	MaxRetries int

	// RetryBackoff is the base delay between retries. Default: 1s.
	RetryBackoff time.Duration

	// HealthCheckInterval is how often to run health checks.
	HealthCheckInterval time.Duration

	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
}

// Message role constants
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Finish reason constants
const (
	FinishReasonStop          = "stop"
	FinishReasonLength        = "length"
	FinishReasonContentFilter = "content_filter"
)

// Provider type constants
const (
	TypeOpenAI    = "openai"
	TypeAnthropic = "anthropic"
	TypeGemini    = "gemini"
	TypeOllama    = "ollama"
	TypeEcho      = "echo"
)

// ModelOr returns the request model, or fallback when the request has none.
func (r *CompletionRequest) ModelOr(fallback string) string {
	if r.Model != "" {
		return r.Model
	}
	return fallback
}

// Prompt returns the content of the last user message.
func (r *CompletionRequest) Prompt() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == RoleUser {
			return r.Messages[i].Content
		}
	}
	return ""
}
