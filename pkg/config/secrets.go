package config

import (
	"context"
	"fmt"

	"mercator-hq/veil/pkg/security/secrets"
)

// resolveSecrets replaces ${secret:name} references in provider API keys
// and client API keys.
func resolveSecrets(cfg *Config) error {
	providers := []secrets.Provider{secrets.NewEnvProvider(cfg.Secrets.EnvPrefix)}
	if cfg.Secrets.Dir != "" {
		providers = append(providers, secrets.NewFileProvider(cfg.Secrets.Dir))
	}
	m := secrets.NewManager(providers...)
	ctx := context.Background()

	for _, name := range sortedKeys(cfg.Providers) {
		p := cfg.Providers[name]
		if !secrets.HasReference(p.APIKey) {
			continue
		}
		v, err := m.Resolve(ctx, p.APIKey)
		if err != nil {
			return fmt.Errorf("providers.%s.api_key: %w", name, err)
		}
		p.APIKey = v
		cfg.Providers[name] = p
	}

	for i := range cfg.Security.Auth.Keys {
		k := &cfg.Security.Auth.Keys[i]
		if !secrets.HasReference(k.Key) {
			continue
		}
		v, err := m.Resolve(ctx, k.Key)
		if err != nil {
			return fmt.Errorf("security.auth.keys[%d].key: %w", i, err)
		}
		k.Key = v
	}
	return nil
}
