package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/veil/pkg/config"
	"mercator-hq/veil/pkg/detectorfactory"
	"mercator-hq/veil/pkg/evidence"
	"mercator-hq/veil/pkg/evidence/recorder"
	"mercator-hq/veil/pkg/evidence/retention"
	"mercator-hq/veil/pkg/evidence/storage"
	"mercator-hq/veil/pkg/pipeline"
	"mercator-hq/veil/pkg/providerfactory"
	"mercator-hq/veil/pkg/providers"
	veiltls "mercator-hq/veil/pkg/security/tls"
	"mercator-hq/veil/pkg/telemetry/health"
	"mercator-hq/veil/pkg/telemetry/metrics"
	"mercator-hq/veil/pkg/telemetry/tracing"
	"mercator-hq/veil/pkg/tokenize"
	"mercator-hq/veil/pkg/vault"
)

// Components holds everything the gateway runs besides the HTTP listener.
// Optional parts are nil when disabled.
type Components struct {
	Vault     *vault.Vault
	Sweeper   *vault.Sweeper
	Detector  *detectorfactory.Detector
	Providers *providerfactory.Manager
	Provider  providers.Provider
	Pipeline  *pipeline.Pipeline
	Metrics   *metrics.Collector
	Tracer    *tracing.Tracer
	Health    *health.Checker

	Evidence evidence.Storage
	Recorder *recorder.Recorder
	Pruner   *retention.Pruner

	TLS   *tls.Config
	Certs *veiltls.Reloader
}

// pinger is implemented by storage backends with a reachability check.
type pinger interface {
	Ping(ctx context.Context) error
}

// BuildComponents assembles the gateway from cfg. On error, whatever was
// already built is closed.
func BuildComponents(ctx context.Context, cfg *config.Config, version string) (_ *Components, err error) {
	c := &Components{Health: health.New(0)}
	defer func() {
		if err != nil {
			_ = c.Close(context.Background())
		}
	}()

	c.Metrics = metrics.NewCollector(&cfg.Telemetry.Metrics, prometheus.NewRegistry())

	c.Tracer, err = tracing.New(ctx, &cfg.Telemetry.Tracing, version)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	if cfg.Server.TLS.Enabled {
		c.TLS, c.Certs, err = veiltls.New(cfg.Server.TLS)
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS certificate: %w", err)
		}
		c.Health.RegisterCheck("tls.certificate", c.Certs.Check)
	}

	c.Vault = vault.New(vault.Config{TTL: cfg.Vault.TTL, Shards: cfg.Vault.Shards})
	c.Sweeper = vault.NewSweeper(c.Vault, cfg.Vault.SweepSchedule, func(removed int, stats vault.Stats) {
		c.Metrics.RecordSwept(removed)
		c.Metrics.UpdateVault(stats.Sessions, stats.Entries)
	})

	tokenizer, err := NewTokenizer(cfg, c.Vault)
	if err != nil {
		return nil, err
	}

	c.Detector, err = detectorfactory.New(ctx, cfg.Detector)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize detector: %w", err)
	}
	for name, check := range c.Detector.Checks {
		c.Health.RegisterCheck("detector."+name, health.CheckFunc(check))
	}

	c.Providers = providerfactory.NewManager()
	if err := c.Providers.LoadFromConfig(cfg.Providers); err != nil {
		return nil, err
	}
	c.Provider, err = selectProvider(c.Providers, cfg.Pipeline.Provider)
	if err != nil {
		return nil, err
	}
	c.Health.RegisterCheck("provider."+c.Provider.GetName(), providerCheck(c.Provider, c.Metrics))

	var rec pipeline.Recorder
	if cfg.Evidence.Enabled {
		c.Evidence, err = storage.New(cfg.Evidence)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize evidence storage: %w", err)
		}
		if p, ok := c.Evidence.(pinger); ok {
			c.Health.RegisterCheck("evidence", p.Ping)
		}
		c.Recorder = recorder.New(c.Evidence, recorder.FromConfig(cfg.Evidence.Recorder))
		c.Pruner = retention.NewPruner(c.Evidence, retention.FromConfig(cfg.Evidence.Retention))
		rec = c.Recorder
	}

	c.Pipeline, err = pipeline.New(pipeline.Options{
		Detector:        c.Detector,
		Backend:         c.Detector.Backend,
		Entities:        c.Detector.Entities,
		Store:           c.Vault,
		Provider:        c.Provider,
		Tokenizer:       tokenizer,
		Model:           cfg.Pipeline.Model,
		ProviderTimeout: cfg.Pipeline.ProviderTimeout,
		DetectTimeout:   cfg.Pipeline.DetectTimeout,
		Metrics:         c.Metrics,
		Tracer:          c.Tracer,
		Recorder:        rec,
	})
	if err != nil {
		return nil, err
	}

	return c, nil
}

// selectProvider resolves the pipeline's provider: the named one, or the
// only one configured.
func selectProvider(m *providerfactory.Manager, name string) (providers.Provider, error) {
	if name != "" {
		return m.GetProvider(name)
	}
	names := m.GetProviderNames()
	switch len(names) {
	case 0:
		return nil, errors.New("no provider configured")
	case 1:
		return m.GetProvider(names[0])
	default:
		return nil, fmt.Errorf("pipeline.provider must name one of %v", names)
	}
}

// providerCheck reports the provider's last known health without calling it.
func providerCheck(p providers.Provider, collector *metrics.Collector) health.CheckFunc {
	return func(context.Context) error {
		h := p.GetHealth()
		collector.UpdateProviderHealth(p.GetName(), h.IsHealthy)
		if h.IsHealthy {
			return nil
		}
		if h.LastError != nil {
			return fmt.Errorf("provider %s unhealthy: %s", p.GetName(), providers.Category(h.LastError))
		}
		return fmt.Errorf("provider %s unhealthy", p.GetName())
	}
}

// NewTokenizer builds the tokenizer described by cfg on top of store.
func NewTokenizer(cfg *config.Config, store tokenize.Store) (*tokenize.Tokenizer, error) {
	gen, err := tokenize.NewGenerator(cfg.Vault.Placeholder)
	if err != nil {
		return nil, err
	}
	return tokenize.New(store, tokenize.Options{
		Policy: &tokenize.Policy{
			AgeLabels:    cfg.Tokenizer.AgeLabels,
			AgeThreshold: cfg.Tokenizer.Threshold(),
			MaxAge:       cfg.Tokenizer.MaxAge,
		},
		Generator: gen,
	}), nil
}

// Start launches background jobs: the vault sweeper, evidence retention and
// the certificate watcher. They stop when ctx is cancelled or Close is called.
func (c *Components) Start(ctx context.Context) error {
	if c.Certs != nil {
		go func() {
			if err := c.Certs.Watch(ctx); err != nil {
				slog.Warn("certificate watcher stopped", "error", err)
			}
		}()
	}
	if err := c.Sweeper.Start(ctx); err != nil {
		return err
	}
	if c.Pruner != nil {
		if err := c.Pruner.Start(ctx); err != nil {
			c.Sweeper.Stop()
			return err
		}
	}
	return nil
}

// Close stops background jobs, drains the evidence recorder, then releases
// storage, providers and the tracer, in that order. It is safe on a
// partially built Components.
func (c *Components) Close(ctx context.Context) error {
	var errs []error

	if c.Sweeper != nil {
		c.Sweeper.Stop()
	}
	if c.Pruner != nil {
		c.Pruner.Stop()
	}
	if c.Recorder != nil {
		if err := c.Recorder.Close(); err != nil {
			errs = append(errs, fmt.Errorf("evidence recorder: %w", err))
		}
		written, dropped, failed := c.Recorder.Stats()
		slog.Info("evidence recorder drained", "written", written, "dropped", dropped, "failed", failed)
	}
	if c.Evidence != nil {
		if err := c.Evidence.Close(); err != nil {
			errs = append(errs, fmt.Errorf("evidence storage: %w", err))
		}
	}
	if c.Providers != nil {
		if err := c.Providers.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Tracer != nil {
		if err := c.Tracer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer: %w", err))
		}
	}

	return errors.Join(errs...)
}
