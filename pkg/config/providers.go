package config

import "strings"

// InferProviderType maps a provider name to its adapter type when the type
// field is omitted. Names that do not identify a vendor return "".
func InferProviderType(name string) string {
	n := strings.ToLower(name)
	switch {
	case strings.HasPrefix(n, "openai"), strings.HasPrefix(n, "azure-openai"):
		return "openai"
	case strings.HasPrefix(n, "anthropic"), strings.HasPrefix(n, "claude"):
		return "anthropic"
	case strings.HasPrefix(n, "gemini"), strings.HasPrefix(n, "google"):
		return "gemini"
	case strings.HasPrefix(n, "ollama"):
		return "ollama"
	case strings.HasPrefix(n, "echo"), n == "mock":
		return "echo"
	default:
		return ""
	}
}

// ResolvedType returns p.Type, or the type inferred from name.
func (p ProviderConfig) ResolvedType(name string) string {
	if p.Type != "" {
		return p.Type
	}
	return InferProviderType(name)
}
