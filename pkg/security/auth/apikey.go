package auth

import (
	"crypto/sha256"
	"sync"

	"mercator-hq/veil/pkg/config"
)

type keyDigest [sha256.Size]byte

// APIKeyValidator validates API keys against a configured set. Keys are
// indexed by SHA-256 digest so lookups do not compare secrets directly.
type APIKeyValidator struct {
	mu   sync.RWMutex
	keys map[keyDigest]*APIKeyInfo
}

// NewAPIKeyValidator creates a validator holding keys.
func NewAPIKeyValidator(keys []*APIKeyInfo) *APIKeyValidator {
	v := &APIKeyValidator{keys: make(map[keyDigest]*APIKeyInfo, len(keys))}
	for _, k := range keys {
		v.keys[sha256.Sum256([]byte(k.Key))] = k
	}
	return v
}

// ValidatorFromConfig builds a validator from the security.auth section.
func ValidatorFromConfig(cfg config.AuthenticationConfig) *APIKeyValidator {
	keys := make([]*APIKeyInfo, 0, len(cfg.Keys))
	for _, k := range cfg.Keys {
		keys = append(keys, &APIKeyInfo{
			Key:     k.Key,
			UserID:  k.UserID,
			TeamID:  k.TeamID,
			Enabled: !k.Disabled,
		})
	}
	return NewAPIKeyValidator(keys)
}

// Validate returns the info for key, or ErrInvalidKey / ErrDisabledKey.
func (v *APIKeyValidator) Validate(key string) (*APIKeyInfo, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	info, ok := v.keys[sha256.Sum256([]byte(key))]
	if !ok {
		return nil, ErrInvalidKey
	}
	if !info.Enabled {
		return nil, ErrDisabledKey
	}
	return info, nil
}

// List returns all configured keys.
func (v *APIKeyValidator) List() []*APIKeyInfo {
	v.mu.RLock()
	defer v.mu.RUnlock()

	keys := make([]*APIKeyInfo, 0, len(v.keys))
	for _, k := range v.keys {
		keys = append(keys, k)
	}
	return keys
}

// Add adds or replaces a key.
func (v *APIKeyValidator) Add(info *APIKeyInfo) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.keys[sha256.Sum256([]byte(info.Key))] = info
}

// Remove deletes a key.
func (v *APIKeyValidator) Remove(key string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.keys, sha256.Sum256([]byte(key)))
}
