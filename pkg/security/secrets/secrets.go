package secrets

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNotFound is returned when no provider holds a secret.
var ErrNotFound = errors.New("secret not found")

// refPattern matches ${secret:name} references in configuration values.
var refPattern = regexp.MustCompile(`\$\{secret:([^}]+)\}`)

// Provider looks up secrets by name. Get returns an error wrapping
// ErrNotFound when the provider does not hold name.
type Provider interface {
	Name() string
	Get(ctx context.Context, name string) (string, error)
}

// Manager tries its providers in order.
type Manager struct {
	providers []Provider
}

// NewManager creates a manager over providers, highest priority first.
func NewManager(providers ...Provider) *Manager {
	return &Manager{providers: providers}
}

// Get returns the value from the first provider that has name. A provider
// failure other than ErrNotFound stops the search.
func (m *Manager) Get(ctx context.Context, name string) (string, error) {
	for _, p := range m.providers {
		value, err := p.Get(ctx, name)
		if err == nil {
			return value, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return "", fmt.Errorf("%s provider: secret %s: %w", p.Name(), redactName(name), err)
		}
	}
	return "", fmt.Errorf("secret %s: %w", redactName(name), ErrNotFound)
}

// HasReference reports whether s contains a ${secret:name} reference.
func HasReference(s string) bool {
	return refPattern.MatchString(s)
}

// Resolve replaces every ${secret:name} reference in s. Any unresolved
// reference fails the whole call; the error names secrets but never values.
func (m *Manager) Resolve(ctx context.Context, s string) (string, error) {
	var errs []error
	out := refPattern.ReplaceAllStringFunc(s, func(ref string) string {
		name := strings.TrimSpace(refPattern.FindStringSubmatch(ref)[1])
		value, err := m.Get(ctx, name)
		if err != nil {
			errs = append(errs, err)
			return ref
		}
		return value
	})
	if len(errs) > 0 {
		return "", errors.Join(errs...)
	}
	return out, nil
}

// redactName keeps the first and last two characters of a secret name for
// log and error messages.
func redactName(name string) string {
	if len(name) <= 4 {
		return "***"
	}
	return name[:2] + "..." + name[len(name)-2:]
}
