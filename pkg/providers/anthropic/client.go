package anthropic

import (
	"cmp"
	"context"
	"log/slog"
	"strings"

	"mercator-hq/veil/pkg/providers"
)

const (
	// DefaultAnthropicVersion is sent as the anthropic-version header.
	DefaultAnthropicVersion = "2023-06-01"

	// DefaultBaseURL is the public Anthropic API root.
	DefaultBaseURL = "https://api.anthropic.com"

	// DefaultModel is used when neither the request nor the config names one.
	DefaultModel = "claude-3-5-haiku-latest"
)

// Provider talks to the Anthropic Messages API.
type Provider struct {
	*providers.HTTPProvider
}

// NewProvider creates a new Anthropic provider instance.
func NewProvider(config providers.ProviderConfig) (*Provider, error) {
	if config.Name == "" {
		return nil, &providers.ConfigError{
			Provider: "anthropic",
			Field:    "name",
			Message:  "provider name is required",
		}
	}
	if config.APIKey == "" {
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "api_key",
			Message:  "API key is required for Anthropic",
		}
	}

	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Model == "" {
		config.Model = DefaultModel
	}
	config.MaxIdleConns = cmp.Or(config.MaxIdleConns, 100)
	config.MaxIdleConnsPerHost = cmp.Or(config.MaxIdleConnsPerHost, 10)

	config.Type = providers.TypeAnthropic

	p := &Provider{HTTPProvider: providers.NewHTTPProvider(config)}
	p.SetHealthProbe(p.probe)

	slog.Info("Anthropic provider initialized",
		"provider", config.Name,
		"base_url", config.BaseURL,
		"model", config.Model,
	)
	return p, nil
}

func (p *Provider) headers() map[string]string {
	return map[string]string{
		"x-api-key":         p.GetConfig().APIKey,
		"anthropic-version": DefaultAnthropicVersion,
		"Content-Type":      "application/json",
	}
}

// SendCompletion sends a completion request to Anthropic.
func (p *Provider) SendCompletion(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	cfg := p.GetConfig()
	model := req.ModelOr(cfg.Model)
	if err := providers.ValidateRequest(req, model); err != nil {
		return nil, err
	}

	body, err := buildRequest(req, model, cfg)
	if err != nil {
		return nil, err
	}

	var reply messagesResponse
	if err := p.DoJSONRequest(ctx, "POST", cfg.BaseURL+"/v1/messages", body, &reply, p.headers()); err != nil {
		return nil, err
	}

	resp, err := parseResponse(p.GetName(), &reply)
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

func (p *Provider) probe(ctx context.Context) error {
	resp, err := p.DoRequest(ctx, "GET", p.GetConfig().BaseURL+"/v1/models", nil, p.headers())
	if err != nil {
		return err
	}
	return resp.Body.Close()
}
