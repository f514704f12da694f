// Package providers holds test doubles shared by the provider adapter tests.
package providers

import (
	"time"

	"mercator-hq/veil/pkg/providers"
)

// TestConfig returns a provider configuration suitable for tests: short
// timeouts, one retry with a millisecond backoff.
func TestConfig(name, providerType string) providers.ProviderConfig {
	return providers.ProviderConfig{
		Name:                name,
		Type:                providerType,
		BaseURL:             "http://localhost:8080",
		APIKey:              "test-key",
		Model:               "test-model",
		Timeout:             5 * time.Second,
		MaxRetries:          1,
		RetryBackoff:        time.Millisecond,
		HealthCheckInterval: time.Second,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     30 * time.Second,
	}
}

// TestConfigWithURL returns a test config with a specific base URL.
func TestConfigWithURL(name, providerType, baseURL string) providers.ProviderConfig {
	config := TestConfig(name, providerType)
	config.BaseURL = baseURL
	return config
}

// TestCompletionRequest creates a single-turn user request.
func TestCompletionRequest(model, prompt string) *providers.CompletionRequest {
	return &providers.CompletionRequest{
		Model: model,
		Messages: []providers.Message{
			{Role: providers.RoleUser, Content: prompt},
		},
	}
}
