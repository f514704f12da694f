package config

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"
)

func resetGlobal() {
	SetConfig(nil)
	initOnce = sync.Once{}
}

func TestInitialize(t *testing.T) {
	resetGlobal()
	path := writeConfig(t, `
server:
  listen_address: "127.0.0.1:8181"
providers:
  echo: {}
`)

	if err := Initialize(path); err != nil {
		t.Fatalf("failed to initialize config: %v", err)
	}

	cfg := GetConfig()
	if cfg == nil {
		t.Fatal("expected non-nil config after initialization")
	}
	if cfg.Server.ListenAddress != "127.0.0.1:8181" {
		t.Errorf("listen address = %q", cfg.Server.ListenAddress)
	}
}

func TestInitialize_MultipleCallsIgnored(t *testing.T) {
	resetGlobal()
	path1 := writeConfig(t, "server:\n  listen_address: \"127.0.0.1:8080\"\n")
	path2 := writeConfig(t, "server:\n  listen_address: \"0.0.0.0:9090\"\n")

	if err := Initialize(path1); err != nil {
		t.Fatalf("failed to initialize config: %v", err)
	}
	first := GetConfig()

	_ = Initialize(path2)

	if GetConfig() != first {
		t.Error("second Initialize call should be ignored")
	}
}

func TestInitialize_Error(t *testing.T) {
	resetGlobal()
	path := writeConfig(t, "vault:\n  placeholder: bogus\n")

	if err := Initialize(path); err == nil {
		t.Fatal("expected validation error")
	}
	if GetConfig() != nil {
		t.Error("failed Initialize must not store a config")
	}
}

func TestReloadConfig(t *testing.T) {
	resetGlobal()
	path := writeConfig(t, "vault:\n  ttl: 1h\n")

	if err := Initialize(path); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte("vault:\n  ttl: 2h\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := ReloadConfig(path); err != nil {
		t.Fatalf("ReloadConfig() error = %v", err)
	}
	if got := GetConfig().Vault.TTL; got != 2*time.Hour {
		t.Errorf("ttl after reload = %v", got)
	}
}

func TestReloadConfig_ValidationFailure(t *testing.T) {
	resetGlobal()
	path := writeConfig(t, "vault:\n  ttl: 1h\n")
	if err := Initialize(path); err != nil {
		t.Fatal(err)
	}
	original := GetConfig()

	if err := os.WriteFile(path, []byte("vault:\n  shards: -1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := ReloadConfig(path); err == nil {
		t.Fatal("expected reload error")
	}
	if GetConfig() != original {
		t.Error("original config should be preserved on reload failure")
	}
}

func TestMustGetConfig(t *testing.T) {
	resetGlobal()

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected MustGetConfig to panic when not initialized")
		}
	}()
	MustGetConfig()
}

func TestMustGetConfig_AfterSet(t *testing.T) {
	resetGlobal()
	SetConfig(NewTestConfig().Build())

	if MustGetConfig() == nil {
		t.Error("expected non-nil config from MustGetConfig")
	}
}

func TestWatch_ReloadsOnChange(t *testing.T) {
	resetGlobal()
	path := writeConfig(t, "vault:\n  ttl: 1h\n")
	if err := Initialize(path); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 1)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(c *Config) {
			select {
			case reloaded <- c:
			default:
			}
		})
	}()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("vault:\n  ttl: 3h\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case c := <-reloaded:
		if c.Vault.TTL != 3*time.Hour {
			t.Errorf("reloaded ttl = %v", c.Vault.TTL)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
