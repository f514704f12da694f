package openai

import (
	"cmp"

	"mercator-hq/veil/pkg/providers"
)

// Wire types for POST /chat/completions. Only the fields the gateway reads
// or sets are declared.
type (
	chatRequest struct {
		Model       string        `json:"model"`
		Messages    []chatMessage `json:"messages"`
		Temperature float64       `json:"temperature,omitempty"`
		MaxTokens   int           `json:"max_tokens,omitempty"`
		N           int           `json:"n,omitempty"`
	}

	chatMessage struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	chatResponse struct {
		ID      string       `json:"id"`
		Created int64        `json:"created"`
		Model   string       `json:"model"`
		Choices []chatChoice `json:"choices"`
		Usage   struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
	}

	chatChoice struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	}
)

var finishReasons = map[string]string{
	"stop":           providers.FinishReasonStop,
	"length":         providers.FinishReasonLength,
	"content_filter": providers.FinishReasonContentFilter,
}

// buildRequest maps a completion request onto the chat API. Unset sampling
// fields fall back to the provider config.
func buildRequest(req *providers.CompletionRequest, model string, cfg providers.ProviderConfig) *chatRequest {
	out := &chatRequest{
		Model:       model,
		Temperature: cmp.Or(req.Temperature, cfg.Temperature),
		MaxTokens:   cmp.Or(req.MaxTokens, cfg.MaxTokens),
		N:           1,
	}
	for _, m := range req.Messages {
		out.Messages = append(out.Messages, chatMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

// parseResponse reads the first choice. No choices, or a choice with blank
// content, is *providers.EmptyResponseError.
func parseResponse(name string, resp *chatResponse) (*providers.CompletionResponse, error) {
	if len(resp.Choices) == 0 {
		return nil, &providers.EmptyResponseError{Provider: name, Reason: "no choices"}
	}
	first := resp.Choices[0]
	if first.Message.Content == "" {
		return nil, &providers.EmptyResponseError{Provider: name, Reason: first.FinishReason}
	}

	reason, ok := finishReasons[first.FinishReason]
	if !ok {
		reason = first.FinishReason
	}
	return &providers.CompletionResponse{
		ID:           resp.ID,
		Model:        resp.Model,
		Content:      first.Message.Content,
		FinishReason: reason,
		Created:      resp.Created,
		Usage: providers.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}
