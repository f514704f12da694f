package anthropic

import (
	"cmp"
	"fmt"
	"strings"

	"mercator-hq/veil/pkg/providers"
)

// DefaultMaxTokens is sent when neither the request nor the config sets
// one. The Messages API rejects requests without max_tokens.
const DefaultMaxTokens = 4096

type (
	messagesRequest struct {
		Model       string    `json:"model"`
		System      string    `json:"system,omitempty"`
		Messages    []message `json:"messages"`
		MaxTokens   int       `json:"max_tokens"`
		Temperature float64   `json:"temperature,omitempty"`
	}

	message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	messagesResponse struct {
		ID      string `json:"id"`
		Model   string `json:"model"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text,omitempty"`
		} `json:"content"`
		StopReason string `json:"stop_reason"`
		Usage      struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
)

var stopReasons = map[string]string{
	"end_turn":      providers.FinishReasonStop,
	"stop_sequence": providers.FinishReasonStop,
	"max_tokens":    providers.FinishReasonLength,
	"refusal":       providers.FinishReasonContentFilter,
}

// buildRequest lifts system messages into the top-level system field and
// checks that the remaining turns start with the user and alternate.
func buildRequest(req *providers.CompletionRequest, model string, cfg providers.ProviderConfig) (*messagesRequest, error) {
	out := &messagesRequest{
		Model:       model,
		MaxTokens:   cmp.Or(req.MaxTokens, cfg.MaxTokens, DefaultMaxTokens),
		Temperature: cmp.Or(req.Temperature, cfg.Temperature),
	}

	var system []string
	for _, m := range req.Messages {
		if m.Role == providers.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		out.Messages = append(out.Messages, message{Role: m.Role, Content: m.Content})
	}
	out.System = strings.Join(system, "\n\n")

	if err := checkTurns(out.Messages); err != nil {
		return nil, err
	}
	return out, nil
}

func checkTurns(turns []message) error {
	invalid := func(msg string) error {
		return &providers.ValidationError{Field: "messages", Message: msg}
	}
	switch {
	case len(turns) == 0:
		return invalid("at least one non-system message is required")
	case turns[0].Role != providers.RoleUser:
		return invalid("first message must be from user")
	}
	for i := 1; i < len(turns); i++ {
		if turns[i].Role == turns[i-1].Role {
			return invalid(fmt.Sprintf("messages must alternate between user and assistant, found consecutive %s messages at index %d", turns[i].Role, i))
		}
	}
	return nil
}

// parseResponse concatenates the text blocks. A reply with no text is
// *providers.EmptyResponseError.
func parseResponse(name string, resp *messagesResponse) (*providers.CompletionResponse, error) {
	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, &providers.EmptyResponseError{Provider: name, Reason: resp.StopReason}
	}

	in, out := resp.Usage.InputTokens, resp.Usage.OutputTokens
	return &providers.CompletionResponse{
		ID:           resp.ID,
		Model:        resp.Model,
		Content:      text.String(),
		FinishReason: normalizeStopReason(resp.StopReason),
		Usage: providers.TokenUsage{
			PromptTokens:     in,
			CompletionTokens: out,
			TotalTokens:      in + out,
		},
	}, nil
}

func normalizeStopReason(reason string) string {
	if r, ok := stopReasons[reason]; ok {
		return r
	}
	return reason
}
