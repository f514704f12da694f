package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"mercator-hq/veil/pkg/providers"
)

const (
	// DefaultBaseURL is the Generative Language API root.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// DefaultModel is used when neither the request nor the config names one.
	DefaultModel = "gemini-2.5-flash"

	// DefaultTemperature is applied when the config leaves temperature unset.
	DefaultTemperature = 0.7

	// DefaultMaxOutputTokens is applied when the config leaves max tokens unset.
	DefaultMaxOutputTokens = 2048
)

// Provider is the Google Gemini adapter.
type Provider struct {
	*providers.HTTPProvider
}

// NewProvider creates a Gemini provider. An API key is required.
func NewProvider(config providers.ProviderConfig) (*Provider, error) {
	if config.Name == "" {
		return nil, &providers.ConfigError{
			Provider: "gemini",
			Field:    "name",
			Message:  "provider name is required",
		}
	}
	if config.APIKey == "" {
		return nil, &providers.ConfigError{
			Provider: config.Name,
			Field:    "api_key",
			Message:  "API key is required for Gemini",
		}
	}

	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.Temperature == 0 {
		config.Temperature = DefaultTemperature
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = DefaultMaxOutputTokens
	}

	config.Type = providers.TypeGemini

	p := &Provider{HTTPProvider: providers.NewHTTPProvider(config)}
	p.SetHealthProbe(p.probe)

	slog.Info("Gemini provider initialized",
		"provider", config.Name,
		"model", config.Model,
	)
	return p, nil
}

func (p *Provider) headers() map[string]string {
	return map[string]string{
		"x-goog-api-key": p.GetConfig().APIKey,
		"Content-Type":   "application/json",
	}
}

// SendCompletion calls models/{model}:generateContent.
func (p *Provider) SendCompletion(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	cfg := p.GetConfig()
	model := req.ModelOr(cfg.Model)
	if err := providers.ValidateRequest(req, model); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", cfg.BaseURL, url.PathEscape(model))

	var geminiResp GenerateResponse
	if err := p.DoJSONRequest(ctx, "POST", endpoint, transformRequest(req, cfg), &geminiResp, p.headers()); err != nil {
		return nil, err
	}

	resp, err := transformResponse(p.GetName(), model, &geminiResp)
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
	cfg := p.GetConfig()
	resp, err := p.DoRequest(ctx, "GET", fmt.Sprintf("%s/models/%s", cfg.BaseURL, url.PathEscape(cfg.Model)), nil, p.headers())
	if err != nil {
		return err
	}
	return resp.Body.Close()
}
