// Package providerfactory builds completion providers from configuration.
package providerfactory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"mercator-hq/veil/pkg/config"
	"mercator-hq/veil/pkg/providers"
	"mercator-hq/veil/pkg/providers/anthropic"
	"mercator-hq/veil/pkg/providers/echo"
	"mercator-hq/veil/pkg/providers/gemini"
	"mercator-hq/veil/pkg/providers/ollama"
	"mercator-hq/veil/pkg/providers/openai"
)

// SupportedTypes lists the provider types NewProvider understands.
var SupportedTypes = []string{
	providers.TypeOpenAI,
	providers.TypeAnthropic,
	providers.TypeGemini,
	providers.TypeOllama,
	providers.TypeEcho,
}

// NewProvider creates a provider for config.Type, inferring the type from
// config.Name when it is empty. The echo provider is only ever built when
// configured; a missing API key is an error, not a reason to fall back.
//
// Example:
//
//	provider, err := NewProvider(providers.ProviderConfig{
//	    Name:   "gemini",
//	    APIKey: os.Getenv("GEMINI_API_KEY"),
//	})
//	if err != nil {
//	    return err
//	}
//	defer provider.Close()
func NewProvider(cfg providers.ProviderConfig) (providers.Provider, error) {
	if cfg.Type == "" {
		cfg.Type = config.InferProviderType(cfg.Name)
	}

	slog.Debug("creating provider",
		"name", cfg.Name,
		"type", cfg.Type,
		"base_url", cfg.BaseURL,
	)

	var (
		provider providers.Provider
		err      error
	)
	switch cfg.Type {
	case providers.TypeOpenAI:
		provider, err = openai.NewProvider(cfg)
	case providers.TypeAnthropic:
		provider, err = anthropic.NewProvider(cfg)
	case providers.TypeGemini:
		provider, err = gemini.NewProvider(cfg)
	case providers.TypeOllama:
		provider, err = ollama.NewProvider(cfg)
	case providers.TypeEcho:
		provider, err = echo.NewProvider(cfg)
	default:
		return nil, &providers.ConfigError{
			Provider: cfg.Name,
			Field:    "type",
			Message: fmt.Sprintf("unsupported provider type: %q (supported: %s)",
				cfg.Type, strings.Join(SupportedTypes, ", ")),
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create provider %q: %w", cfg.Name, err)
	}

	slog.Info("provider created", "name", cfg.Name, "type", cfg.Type)
	return provider, nil
}

// NewProviderWithHealthCheck creates a provider and, when
// cfg.HealthCheckInterval is positive, starts its background health
// checker. The checker stops when ctx is cancelled or the provider closes.
func NewProviderWithHealthCheck(ctx context.Context, cfg providers.ProviderConfig) (providers.Provider, error) {
	provider, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.HealthCheckInterval <= 0 {
		return provider, nil
	}

	type healthCheckStarter interface {
		StartHealthChecker(context.Context)
	}
	if hcs, ok := provider.(healthCheckStarter); ok {
		hcs.StartHealthChecker(ctx)
		slog.Debug("health checker started", "provider", cfg.Name, "interval", cfg.HealthCheckInterval)
	}
	return provider, nil
}

// FromConfig converts a providers section entry into the adapter config.
func FromConfig(name string, pc config.ProviderConfig) providers.ProviderConfig {
	return providers.ProviderConfig{
		Name:                name,
		Type:                pc.ResolvedType(name),
		BaseURL:             pc.BaseURL,
		APIKey:              pc.APIKey,
		Model:               pc.Model,
		Temperature:         pc.Temperature,
		MaxTokens:           pc.MaxTokens,
		Timeout:             pc.Timeout,
		MaxRetries:          pc.MaxRetries,
		HealthCheckInterval: pc.HealthCheckInterval,
	}
}
