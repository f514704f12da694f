package auth

import "errors"

var (
	// ErrMissingKey means no configured source carried a key.
	ErrMissingKey = errors.New("no API key found")

	// ErrInvalidKey means the key is unknown.
	ErrInvalidKey = errors.New("invalid API key")

	// ErrDisabledKey means the key is known but disabled.
	ErrDisabledKey = errors.New("API key disabled")
)

// APIKeyInfo describes a caller. Key holds the secret and is never logged.
type APIKeyInfo struct {
	Key     string
	UserID  string
	TeamID  string
	Enabled bool
}

// APIKeyStore stores and validates API keys.
type APIKeyStore interface {
	Validate(key string) (*APIKeyInfo, error)
	List() []*APIKeyInfo
}
