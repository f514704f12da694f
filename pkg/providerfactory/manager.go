package providerfactory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"mercator-hq/veil/pkg/config"
	"mercator-hq/veil/pkg/providers"
)

// Manager holds the configured providers by name. Providers added through
// AddProvider get a health checker bound to the manager's lifetime.
type Manager struct {
	mu     sync.RWMutex
	byName map[string]providers.Provider

	ctx    context.Context
	cancel context.CancelFunc
}

func NewManager() *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{byName: map[string]providers.Provider{}, ctx: ctx, cancel: cancel}
}

// AddProvider builds a provider from cfg and registers it.
func (m *Manager) AddProvider(cfg providers.ProviderConfig) error {
	p, err := NewProviderWithHealthCheck(m.ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to add provider %q: %w", cfg.Name, err)
	}
	m.Register(p)
	return nil
}

// Register stores p under its name. A provider already registered under
// that name is closed and replaced.
func (m *Manager) Register(p providers.Provider) {
	name := p.GetName()

	m.mu.Lock()
	old, replaced := m.byName[name]
	m.byName[name] = p
	count := len(m.byName)
	m.mu.Unlock()

	if replaced {
		slog.Warn("replacing existing provider", "name", name)
		old.Close()
	}
	slog.Info("provider registered", "name", name, "type", p.GetType(), "total_providers", count)
}

// RemoveProvider closes the named provider and forgets it.
func (m *Manager) RemoveProvider(name string) error {
	m.mu.Lock()
	p, ok := m.byName[name]
	delete(m.byName, name)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("provider %q not found", name)
	}
	if err := p.Close(); err != nil {
		slog.Error("error closing provider", "name", name, "error", err)
	}
	return nil
}

func (m *Manager) GetProvider(name string) (providers.Provider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.byName[name]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("provider %q not found", name)
}

// GetProviderNames lists the registered names, sorted.
func (m *Manager) GetProviderNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.byName))
}

func (m *Manager) ProviderCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byName)
}

// LoadFromConfig adds every entry of the providers section, in name order.
// A failing entry does not stop the rest; the failures come back joined.
func (m *Manager) LoadFromConfig(entries map[string]config.ProviderConfig) error {
	var errs []error
	for _, name := range slices.Sorted(maps.Keys(entries)) {
		if err := m.AddProvider(FromConfig(name, entries[name])); err != nil {
			slog.Error("failed to load provider", "name", name, "error", err)
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to load %d provider(s): %w", len(errs), errors.Join(errs...))
	}
	slog.Info("providers loaded", "count", len(entries))
	return nil
}

// Close cancels the health checkers and closes every provider.
func (m *Manager) Close() error {
	m.cancel()

	m.mu.Lock()
	all := m.byName
	m.byName = map[string]providers.Provider{}
	m.mu.Unlock()

	var errs []error
	for name, p := range all {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close provider %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
