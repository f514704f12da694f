package openai

import (
	"context"
	"log/slog"
	"strings"

	"mercator-hq/veil/pkg/providers"
)

const (
	// DefaultBaseURL is the public OpenAI API root.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is used when neither the request nor the config names one.
	DefaultModel = "gpt-4o-mini"
)

// Provider is the OpenAI provider adapter.
// It implements the providers.Provider interface for the chat completions API.
// Any OpenAI-compatible server (vLLM, LM Studio, LocalAI) works by changing
// BaseURL.
type Provider struct {
	*providers.HTTPProvider
}

// NewProvider creates a new OpenAI provider instance.
func NewProvider(config providers.ProviderConfig) (*Provider, error) {
	if config.Name == "" {
		return nil, &providers.ConfigError{
			Provider: "openai",
			Field:    "name",
			Message:  "provider name is required",
		}
	}
	if config.APIKey == "" {
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "api_key",
			Message:  "API key is required for OpenAI",
		}
	}

	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 100
	}
	if config.MaxIdleConnsPerHost == 0 {
		config.MaxIdleConnsPerHost = 10
	}

	config.Type = providers.TypeOpenAI

	p := &Provider{HTTPProvider: providers.NewHTTPProvider(config)}
	p.SetHealthProbe(p.probe)

	slog.Info("OpenAI provider initialized",
		"provider", config.Name,
		"base_url", config.BaseURL,
		"model", config.Model,
	)
	return p, nil
}

func (p *Provider) headers() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + p.GetConfig().APIKey,
		"Content-Type":  "application/json",
	}
}

// SendCompletion sends a chat completion request to OpenAI.
func (p *Provider) SendCompletion(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	cfg := p.GetConfig()
	model := req.ModelOr(cfg.Model)
	if err := providers.ValidateRequest(req, model); err != nil {
		return nil, err
	}

	var chatResp chatResponse
	url := cfg.BaseURL + "/chat/completions"
	if err := p.DoJSONRequest(ctx, "POST", url, buildRequest(req, model, cfg), &chatResp, p.headers()); err != nil {
		return nil, err
	}

	resp, err := parseResponse(p.GetName(), &chatResp)
	if err != nil {
		return nil, err
	}

	slog.Debug("completion request succeeded",
		"provider", p.GetName(),
		"model", resp.Model,
		"tokens", resp.Usage.TotalTokens,
	)
	return resp, nil
}

// probe lists models, which is cheap and authenticated.
func (p *Provider) probe(ctx context.Context) error {
	resp, err := p.DoRequest(ctx, "GET", p.GetConfig().BaseURL+"/models", nil, p.headers())
	if err != nil {
		return err
	}
	return resp.Body.Close()
}
