package providers

import (
	"context"
	"log/slog"
	"time"
)

const (
	// DefaultHealthCheckInterval applies when HealthCheckInterval is zero.
	DefaultHealthCheckInterval = 30 * time.Second

	healthCheckTimeout = 5 * time.Second
	maxHealthBackoff   = 5 * time.Minute
)

// StartHealthChecker probes the provider every HealthCheckInterval until
// ctx is done or Close is called, backing off while it stays unhealthy.
// Only the first call starts anything, and none do after Close.
func (p *HTTPProvider) StartHealthChecker(ctx context.Context) {
	p.checkerOnce.Do(func() {
		go func() {
			defer close(p.healthCheckStopped)
			p.healthLoop(ctx)
		}()
	})
}

func (p *HTTPProvider) healthLoop(ctx context.Context) {
	base := p.config.HealthCheckInterval
	if base <= 0 {
		base = DefaultHealthCheckInterval
	}
	timer := time.NewTimer(base)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopHealthCheck:
			return
		case <-timer.C:
		}

		p.probeOnce(ctx)
		timer.Reset(calculateBackoff(p.GetHealth().ConsecutiveFailures, base))
	}
}

// probeOnce runs HealthCheck under its own timeout. The probe records the
// outcome itself, through DoRequest or RecordOutcome.
func (p *HTTPProvider) probeOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	wasHealthy := p.IsHealthy()
	start := time.Now()
	err := p.HealthCheck(ctx)

	switch {
	case err != nil:
		slog.Warn("health check failed",
			"provider", p.config.Name,
			"error_category", Category(err),
			"latency", time.Since(start),
		)
	case !wasHealthy:
		slog.Info("provider marked healthy", "provider", p.config.Name)
	}
}

// HealthCheck runs the probe set with SetHealthProbe, or else a GET on
// BaseURL where any 2xx is healthy.
func (p *HTTPProvider) HealthCheck(ctx context.Context) error {
	if p.probe != nil {
		return p.probe(ctx)
	}

	var headers map[string]string
	if key := p.config.APIKey; key != "" {
		headers = map[string]string{"Authorization": "Bearer " + key}
	}
	resp, err := p.DoRequest(ctx, "GET", p.config.BaseURL, nil, headers)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

// calculateBackoff doubles the interval per consecutive failure, capped at
// ten times base and at maxHealthBackoff. No failures means base.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	factor := min(1<<min(failures, 4), 10)
	return min(base*time.Duration(factor), maxHealthBackoff)
}
