package config

import "time"

// ConfigBuilder provides a fluent API for building Config instances in tests.
// It starts from Default with an echo provider and allows selective overrides.
type ConfigBuilder struct {
	cfg *Config
}

// NewTestConfig creates a valid ConfigBuilder for testing.
func NewTestConfig() *ConfigBuilder {
	cfg := Default()
	cfg.Providers = map[string]ProviderConfig{
		"echo": {Type: "echo", Timeout: DefaultProviderTimeout, MaxRetries: DefaultProviderMaxRetries},
	}
	cfg.Pipeline.Provider = "echo"
	cfg.Evidence.Backend = "memory"
	return &ConfigBuilder{cfg: cfg}
}

// Build returns the built Config instance.
func (b *ConfigBuilder) Build() *Config {
	return b.cfg
}

func (b *ConfigBuilder) WithListenAddress(addr string) *ConfigBuilder {
	b.cfg.Server.ListenAddress = addr
	return b
}

func (b *ConfigBuilder) WithVaultTTL(d time.Duration) *ConfigBuilder {
	b.cfg.Vault.TTL = d
	return b
}

// WithProvider adds a provider and routes the pipeline to it.
func (b *ConfigBuilder) WithProvider(name string, provider ProviderConfig) *ConfigBuilder {
	b.cfg.Providers[name] = provider
	b.cfg.Pipeline.Provider = name
	return b
}

func (b *ConfigBuilder) WithDetectorBackend(backend, presidioURL string) *ConfigBuilder {
	b.cfg.Detector.Backend = backend
	b.cfg.Detector.Presidio.URL = presidioURL
	return b
}

func (b *ConfigBuilder) WithEvidenceBackend(backend string) *ConfigBuilder {
	b.cfg.Evidence.Backend = backend
	return b
}

func (b *ConfigBuilder) WithAuthKeys(keys ...string) *ConfigBuilder {
	b.cfg.Security.Auth.Enabled = true
	for _, k := range keys {
		b.cfg.Security.Auth.Keys = append(b.cfg.Security.Auth.Keys, APIKeyConfig{Key: k, UserID: "test"})
	}
	return b
}
