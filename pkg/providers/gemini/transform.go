package gemini

import (
	"strings"

	"mercator-hq/veil/pkg/providers"
)

// GenerateRequest is the generateContent request body.
type GenerateRequest struct {
	Contents          []Content         `json:"contents"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
}

// Content is a role plus its parts.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Part is a single text part.
type Part struct {
	Text string `json:"text"`
}

// GenerationConfig holds sampling parameters.
type GenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

// GenerateResponse is the generateContent response body.
type GenerateResponse struct {
	Candidates     []Candidate     `json:"candidates"`
	PromptFeedback *PromptFeedback `json:"promptFeedback,omitempty"`
	UsageMetadata  UsageMetadata   `json:"usageMetadata"`
	ModelVersion   string          `json:"modelVersion"`
	ResponseID     string          `json:"responseId"`
}

// Candidate is one generated answer.
type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason"`
}

// PromptFeedback reports a prompt that was blocked before generation.
type PromptFeedback struct {
	BlockReason string `json:"blockReason"`
}

// UsageMetadata reports token counts.
type UsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

func transformRequest(req *providers.CompletionRequest, cfg providers.ProviderConfig) *GenerateRequest {
	out := &GenerateRequest{
		Contents: make([]Content, 0, len(req.Messages)),
		GenerationConfig: &GenerationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
		},
	}
	if out.GenerationConfig.Temperature == 0 {
		out.GenerationConfig.Temperature = cfg.Temperature
	}
	if out.GenerationConfig.MaxOutputTokens == 0 {
		out.GenerationConfig.MaxOutputTokens = cfg.MaxTokens
	}

	var system []Part
	for _, msg := range req.Messages {
		switch msg.Role {
		case providers.RoleSystem:
			system = append(system, Part{Text: msg.Content})
		case providers.RoleAssistant:
			out.Contents = append(out.Contents, Content{Role: "model", Parts: []Part{{Text: msg.Content}}})
		default:
			out.Contents = append(out.Contents, Content{Role: "user", Parts: []Part{{Text: msg.Content}}})
		}
	}
	if len(system) > 0 {
		out.SystemInstruction = &Content{Parts: system}
	}
	return out
}

func transformResponse(name, model string, resp *GenerateResponse) (*providers.CompletionResponse, error) {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return nil, &providers.EmptyResponseError{Provider: name, Reason: resp.PromptFeedback.BlockReason}
	}
	if len(resp.Candidates) == 0 {
		return nil, &providers.EmptyResponseError{Provider: name, Reason: "no candidates"}
	}

	candidate := resp.Candidates[0]
	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		text.WriteString(part.Text)
	}
	if strings.TrimSpace(text.String()) == "" {
		return nil, &providers.EmptyResponseError{Provider: name, Reason: candidate.FinishReason}
	}

	if resp.ModelVersion != "" {
		model = resp.ModelVersion
	}
	return &providers.CompletionResponse{
		ID:           resp.ResponseID,
		Model:        model,
		Content:      text.String(),
		FinishReason: normalizeFinishReason(candidate.FinishReason),
		Usage: providers.TokenUsage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.TotalTokenCount,
		},
	}, nil
}

func normalizeFinishReason(reason string) string {
	switch reason {
	case "STOP":
		return providers.FinishReasonStop
	case "MAX_TOKENS":
		return providers.FinishReasonLength
	case "SAFETY", "RECITATION", "BLOCKLIST", "PROHIBITED_CONTENT", "SPII":
		return providers.FinishReasonContentFilter
	default:
		return strings.ToLower(reason)
	}
}
