// Package detectorfactory builds the configured PII detector.
package detectorfactory

import (
	"context"
	"fmt"
	"log/slog"

	"mercator-hq/veil/pkg/config"
	"mercator-hq/veil/pkg/detector"
	"mercator-hq/veil/pkg/detector/pattern"
	"mercator-hq/veil/pkg/detector/presidio"
)

// HealthCheck probes a remote dependency of the detector.
type HealthCheck func(ctx context.Context) error

// Detector is a built detector plus what callers need to run it.
type Detector struct {
	detector.Detector

	// Backend is the configured backend name.
	Backend string

	// Entities is the allow-list passed to every Detect call.
	Entities []string

	// Checks holds readiness probes keyed by component name.
	Checks map[string]HealthCheck
}

// New builds the detector described by cfg. When cfg.Pattern.Watch is set,
// the recognizer file is reloaded on change until ctx is cancelled.
func New(ctx context.Context, cfg config.DetectorConfig) (*Detector, error) {
	out := &Detector{
		Backend:  cfg.Backend,
		Entities: cfg.Entities,
		Checks:   make(map[string]HealthCheck),
	}
	if len(out.Entities) == 0 {
		out.Entities = detector.DefaultEntities
	}

	var d detector.Detector
	switch cfg.Backend {
	case "pattern", "":
		p, err := newPattern(ctx, cfg.Pattern)
		if err != nil {
			return nil, err
		}
		d = p

	case "presidio":
		c, err := newPresidio(cfg)
		if err != nil {
			return nil, err
		}
		out.Checks["presidio"] = c.Health
		d = c

	case "chain":
		p, err := newPattern(ctx, cfg.Pattern)
		if err != nil {
			return nil, err
		}
		c, err := newPresidio(cfg)
		if err != nil {
			return nil, err
		}
		out.Checks["presidio"] = c.Health
		d = detector.NewChain([]detector.Detector{p, c}, "pattern", "presidio")

	default:
		return nil, fmt.Errorf("unknown detector backend %q", cfg.Backend)
	}

	if cfg.MinScore > 0 {
		inner, min := d, cfg.MinScore
		d = detector.Func(func(ctx context.Context, text string, entities []string) ([]detector.Span, error) {
			spans, err := inner.Detect(ctx, text, entities)
			if err != nil {
				return nil, err
			}
			return detector.FilterScore(spans, min), nil
		})
	}
	out.Detector = d

	slog.Info("detector initialized",
		"backend", out.Backend,
		"entities", len(out.Entities),
		"min_score", cfg.MinScore,
	)
	return out, nil
}

func newPattern(ctx context.Context, cfg config.PatternConfig) (*pattern.Detector, error) {
	if cfg.File == "" {
		return pattern.New()
	}

	d, err := pattern.NewFromFile(cfg.File)
	if err != nil {
		return nil, err
	}
	if cfg.Watch {
		go func() {
			if err := d.Watch(ctx, cfg.File); err != nil {
				slog.Error("recognizer watch stopped", "path", cfg.File, "error", err)
			}
		}()
	}
	return d, nil
}

func newPresidio(cfg config.DetectorConfig) (*presidio.Client, error) {
	return presidio.New(presidio.Config{
		BaseURL:        cfg.Presidio.URL,
		Language:       cfg.Presidio.Language,
		ScoreThreshold: cfg.Presidio.ScoreThreshold,
		Timeout:        cfg.Timeout,
	})
}
