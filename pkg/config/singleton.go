package config

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// current is the process-wide configuration. Request paths read it through
// GetConfig; a reload swaps the whole pointer.
var (
	current  atomic.Pointer[Config]
	initOnce sync.Once
)

// Initialize reads .env and then the file at path with VEIL_ overrides, and
// installs the result. Calls after the first return nil without reloading.
func Initialize(path string) (err error) {
	initOnce.Do(func() {
		if err = LoadDotEnv(); err != nil {
			return
		}
		var cfg *Config
		if cfg, err = LoadConfigWithEnvOverrides(path); err == nil {
			SetConfig(cfg)
		}
	})
	return err
}

// GetConfig returns the installed configuration, or nil.
func GetConfig() *Config { return current.Load() }

// SetConfig installs cfg. Commands that load configuration themselves and
// tests use it directly.
func SetConfig(cfg *Config) { current.Store(cfg) }

// ReloadConfig loads path again. A file that fails to load or validate
// leaves the installed configuration untouched.
func ReloadConfig(path string) error {
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return fmt.Errorf("failed to reload configuration: %w", err)
	}
	SetConfig(cfg)
	return nil
}

// MustGetConfig is GetConfig for code that cannot run unconfigured.
func MustGetConfig() *Config {
	if cfg := GetConfig(); cfg != nil {
		return cfg
	}
	panic("configuration not initialized: call Initialize first")
}
