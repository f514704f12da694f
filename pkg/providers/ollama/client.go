package ollama

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"

	"mercator-hq/veil/pkg/providers"
)

// DefaultModel is used when neither the request nor the config names one.
const DefaultModel = "llama3.2"

// Provider sends completions to a local Ollama server through the official
// api client. No API key is needed, so prompts never leave the host.
type Provider struct {
	*providers.HTTPProvider
	client *api.Client
}

// NewProvider creates an Ollama provider. An empty BaseURL falls back to
// OLLAMA_HOST, then to http://localhost:11434.
func NewProvider(config providers.ProviderConfig) (*Provider, error) {
	if config.Name == "" {
		return nil, &providers.ConfigError{
			Provider: "ollama",
			Field:    "name",
			Message:  "provider name is required",
		}
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}

	var client *api.Client
	if config.BaseURL != "" {
		base, err := url.Parse(config.BaseURL)
		if err != nil || base.Scheme == "" || base.Host == "" {
			return nil, &providers.ConfigError{
				Provider: config.Name,
				Field:    "base_url",
				Message:  fmt.Sprintf("invalid ollama host %q", config.BaseURL),
			}
		}
		client = api.NewClient(base, &http.Client{Timeout: config.Timeout})
	} else {
		var err error
		client, err = api.ClientFromEnvironment()
		if err != nil {
			return nil, &providers.ConfigError{
				Provider: config.Name,
				Field:    "base_url",
				Message:  err.Error(),
			}
		}
	}

	config.Type = providers.TypeOllama

	p := &Provider{
		HTTPProvider: providers.NewHTTPProvider(config),
		client:       client,
	}
	p.SetHealthProbe(func(ctx context.Context) error {
		err := p.client.Heartbeat(ctx)
		p.RecordOutcome(err)
		return err
	})

	slog.Info("Ollama provider initialized",
		"provider", config.Name,
		"model", config.Model,
	)
	return p, nil
}

// SendCompletion sends a non-streaming chat request.
func (p *Provider) SendCompletion(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	cfg := p.GetConfig()
	model := req.ModelOr(cfg.Model)
	if err := providers.ValidateRequest(req, model); err != nil {
		return nil, err
	}

	messages := make([]api.Message, len(req.Messages))
	for i, msg := range req.Messages {
		messages[i] = api.Message{Role: msg.Role, Content: msg.Content}
	}

	options := map[string]any{}
	if t := req.Temperature; t != 0 {
		options["temperature"] = t
	} else if cfg.Temperature != 0 {
		options["temperature"] = cfg.Temperature
	}
	if n := req.MaxTokens; n != 0 {
		options["num_predict"] = n
	} else if cfg.MaxTokens != 0 {
		options["num_predict"] = cfg.MaxTokens
	}

	chatReq := &api.ChatRequest{
		Model:    model,
		Messages: messages,
		Options:  options,
		Stream:   new(bool), // false - one complete response
	}

	var response api.ChatResponse
	err := p.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		response = resp
		return nil
	})
	if err != nil {
		err = p.convertError(ctx, err)
		p.RecordOutcome(err)
		return nil, err
	}
	p.RecordOutcome(nil)

	if response.Message.Content == "" {
		return nil, &providers.EmptyResponseError{Provider: p.GetName(), Reason: response.DoneReason}
	}

	slog.Debug("completion request succeeded",
		"provider", p.GetName(),
		"model", response.Model,
		"prompt_tokens", response.PromptEvalCount,
		"eval_tokens", response.EvalCount,
	)

	return &providers.CompletionResponse{
		Model:        response.Model,
		Content:      response.Message.Content,
		FinishReason: normalizeDoneReason(response.DoneReason),
		Usage: providers.TokenUsage{
			PromptTokens:     response.PromptEvalCount,
			CompletionTokens: response.EvalCount,
			TotalTokens:      response.PromptEvalCount + response.EvalCount,
		},
		Created: response.CreatedAt.Unix(),
	}, nil
}

func (p *Provider) convertError(ctx context.Context, err error) error {
	if ctx.Err() == context.DeadlineExceeded {
		return &providers.TimeoutError{Provider: p.GetName(), Timeout: p.GetConfig().Timeout}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return &providers.AuthError{Provider: p.GetName(), Message: statusErr.ErrorMessage}
		case http.StatusTooManyRequests:
			return &providers.RateLimitError{Provider: p.GetName(), Message: statusErr.ErrorMessage}
		}
		return &providers.ProviderError{
			Provider:   p.GetName(),
			StatusCode: statusErr.StatusCode,
			Message:    statusErr.ErrorMessage,
			Cause:      err,
		}
	}
	return &providers.ProviderError{Provider: p.GetName(), Message: "chat request failed", Cause: err}
}

func normalizeDoneReason(reason string) string {
	switch reason {
	case "stop", "":
		return providers.FinishReasonStop
	case "length":
		return providers.FinishReasonLength
	default:
		return reason
	}
}
