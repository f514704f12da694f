// Package echo is an offline provider that answers every request with the
// sanitized prompt it received. It needs no network or API key and is meant
// for local development, demos and tests: placeholders in the prompt come
// back verbatim, so they round-trip through detokenization.
package echo

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"mercator-hq/veil/pkg/providers"
)

const (
	// DefaultModel is reported when neither the request nor the config names one.
	DefaultModel = "echo-1"

	// ReplyPrefix starts every reply.
	ReplyPrefix = "I received your request: "
)

// Provider is the echo provider.
type Provider struct {
	*providers.HTTPProvider
	calls atomic.Int64
}

// NewProvider creates an echo provider.
func NewProvider(config providers.ProviderConfig) (*Provider, error) {
	if config.Name == "" {
		config.Name = providers.TypeEcho
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	config.Type = providers.TypeEcho

	p := &Provider{HTTPProvider: providers.NewHTTPProvider(config)}
	p.SetHealthProbe(func(context.Context) error { return nil })
	return p, nil
}

// SendCompletion replies with ReplyPrefix followed by the last user message.
func (p *Provider) SendCompletion(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	model := req.ModelOr(p.GetConfig().Model)
	if err := providers.ValidateRequest(req, model); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		p.RecordOutcome(err)
		return nil, err
	}

	prompt := req.Prompt()
	if strings.TrimSpace(prompt) == "" {
		return nil, &providers.EmptyResponseError{Provider: p.GetName(), Reason: "empty prompt"}
	}
	p.calls.Add(1)
	p.RecordOutcome(nil)

	content := ReplyPrefix + prompt
	promptTokens := len(strings.Fields(prompt))
	completionTokens := len(strings.Fields(content))
	return &providers.CompletionResponse{
		ID:           "echo-" + uuid.NewString(),
		Model:        model,
		Content:      content,
		FinishReason: providers.FinishReasonStop,
		Usage: providers.TokenUsage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
		},
		Created: time.Now().Unix(),
	}, nil
}

// Calls returns the number of completions served.
func (p *Provider) Calls() int64 {
	return p.calls.Load()
}
