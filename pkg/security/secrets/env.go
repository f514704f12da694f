package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// DefaultEnvPrefix starts the variable name of every environment secret.
const DefaultEnvPrefix = "VEIL_SECRET_"

// EnvProvider reads secrets from environment variables. The name
// "openai-api-key" maps to VEIL_SECRET_OPENAI_API_KEY.
type EnvProvider struct {
	prefix string
}

// NewEnvProvider creates an EnvProvider. An empty prefix uses DefaultEnvPrefix.
func NewEnvProvider(prefix string) *EnvProvider {
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}
	return &EnvProvider{prefix: prefix}
}

// Name implements Provider.
func (p *EnvProvider) Name() string { return "env" }

// Get implements Provider. Empty variables count as missing.
func (p *EnvProvider) Get(_ context.Context, name string) (string, error) {
	key := p.VarName(name)
	if v := os.Getenv(key); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%s is not set: %w", key, ErrNotFound)
}

// VarName returns the environment variable consulted for name.
func (p *EnvProvider) VarName(name string) string {
	return p.prefix + strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, name)
}
