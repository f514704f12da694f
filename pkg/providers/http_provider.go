package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"
)

const (
	// DefaultRetryBackoff is the delay before the first retry. Each further
	// retry doubles it.
	DefaultRetryBackoff = time.Second

	// unhealthyThreshold consecutive failed requests mark a provider down.
	unhealthyThreshold = 3

	// maxErrorBody bounds how much of an upstream error body is kept.
	maxErrorBody = 4096
)

// HTTPProvider carries what every HTTP adapter shares: a pooled client,
// retries, the status-to-error mapping and health tracking. Adapters embed
// it and implement SendCompletion on top of DoJSONRequest.
type HTTPProvider struct {
	config ProviderConfig
	client *http.Client

	healthMu sync.RWMutex
	health   ProviderHealth
	probe    func(ctx context.Context) error

	checkerOnce        sync.Once
	closeOnce          sync.Once
	stopHealthCheck    chan struct{}
	healthCheckStopped chan struct{}
}

// NewHTTPProvider builds the shared base for an adapter.
func NewHTTPProvider(config ProviderConfig) *HTTPProvider {
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = DefaultRetryBackoff
	}

	now := time.Now()
	return &HTTPProvider{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        config.MaxIdleConns,
				MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
				IdleConnTimeout:     config.IdleConnTimeout,
				ForceAttemptHTTP2:   true,
			},
		},
		health:             ProviderHealth{IsHealthy: true, LastCheck: now, LastSuccessfulRequest: now},
		stopHealthCheck:    make(chan struct{}),
		healthCheckStopped: make(chan struct{}),
	}
}

func (p *HTTPProvider) GetName() string           { return p.config.Name }
func (p *HTTPProvider) GetType() string           { return p.config.Type }
func (p *HTTPProvider) GetConfig() ProviderConfig { return p.config }

// IsHealthy reports the tracked health.
func (p *HTTPProvider) IsHealthy() bool {
	p.healthMu.RLock()
	defer p.healthMu.RUnlock()
	return p.health.IsHealthy
}

// GetHealth returns a snapshot of the health counters.
func (p *HTTPProvider) GetHealth() ProviderHealth {
	p.healthMu.RLock()
	defer p.healthMu.RUnlock()
	return p.health
}

// SetHealthProbe replaces the default GET BaseURL probe used by HealthCheck.
func (p *HTTPProvider) SetHealthProbe(probe func(ctx context.Context) error) {
	p.probe = probe
}

// RecordOutcome feeds a request made outside DoRequest, for example through
// an SDK client, into the health tracker.
func (p *HTTPProvider) RecordOutcome(err error) {
	p.countAttempt(err == nil)
	p.updateHealth(err)
}

func (p *HTTPProvider) countAttempt(ok bool) {
	p.healthMu.Lock()
	p.health.TotalRequests++
	if !ok {
		p.health.FailedRequests++
	}
	p.healthMu.Unlock()
}

// updateHealth records the outcome of one logical request or probe.
func (p *HTTPProvider) updateHealth(err error) {
	p.healthMu.Lock()
	defer p.healthMu.Unlock()

	h := &p.health
	h.LastCheck = time.Now()
	if err == nil {
		h.IsHealthy = true
		h.ConsecutiveFailures = 0
		h.LastError = nil
		h.LastSuccessfulRequest = h.LastCheck
		return
	}

	h.ConsecutiveFailures++
	h.LastError = err
	if h.IsHealthy && h.ConsecutiveFailures >= unhealthyThreshold {
		h.IsHealthy = false
		slog.Warn("provider marked unhealthy",
			"provider", p.config.Name,
			"consecutive_failures", h.ConsecutiveFailures,
			"error_category", Category(err),
		)
	}
}

// DoRequest sends one logical request, retrying transport errors and 5xx
// responses up to MaxRetries times with doubling backoff. Auth failures,
// rate limits and other 4xx responses return at once. The caller owns the
// returned body.
func (p *HTTPProvider) DoRequest(ctx context.Context, method, url string, body []byte, headers map[string]string) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := p.wait(ctx, p.config.RetryBackoff<<(attempt-1)); err != nil {
				p.updateHealth(err)
				return nil, err
			}
			slog.Debug("retrying provider request", "provider", p.config.Name, "attempt", attempt)
		}

		resp, retry, err := p.attempt(ctx, method, url, body, headers)
		if err == nil {
			p.updateHealth(nil)
			return resp, nil
		}
		if !retry {
			var rl *RateLimitError
			if !errors.As(err, &rl) {
				p.updateHealth(err)
			}
			return nil, err
		}

		lastErr = err
		slog.Warn("provider request failed",
			"provider", p.config.Name,
			"attempt", attempt+1,
			"error_category", Category(err),
		)
	}

	p.updateHealth(lastErr)
	return nil, lastErr
}

// attempt performs a single HTTP exchange and reports whether a failure is
// worth retrying.
func (p *HTTPProvider) attempt(ctx context.Context, method, url string, body []byte, headers map[string]string) (*http.Response, bool, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.countAttempt(false)
		if ctx.Err() != nil {
			return nil, false, p.contextError(ctx)
		}
		return nil, true, &ProviderError{Provider: p.config.Name, Message: "request failed", Cause: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		p.countAttempt(true)
		return resp, false, nil
	}

	errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()
	p.countAttempt(false)

	err = p.statusError(resp, string(errBody))
	return nil, resp.StatusCode >= 500, err
}

// statusError maps a non-2xx response onto the typed provider errors.
func (p *HTTPProvider) statusError(resp *http.Response, body string) error {
	switch code := resp.StatusCode; {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return &AuthError{Provider: p.config.Name, Message: body}
	case code == http.StatusTooManyRequests:
		return &RateLimitError{
			Provider:   p.config.Name,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Message:    body,
		}
	default:
		return &ProviderError{Provider: p.config.Name, StatusCode: code, Message: body}
	}
}

// wait sleeps for d unless ctx finishes first.
func (p *HTTPProvider) wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return p.contextError(ctx)
	case <-timer.C:
		return nil
	}
}

// contextError turns an expired deadline into *TimeoutError. Cancellation
// is returned unchanged.
func (p *HTTPProvider) contextError(ctx context.Context) error {
	if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ctx.Err()
	}
	timeout := p.config.Timeout
	if deadline, ok := ctx.Deadline(); ok && timeout == 0 {
		timeout = time.Until(deadline)
	}
	return &TimeoutError{Provider: p.config.Name, Timeout: timeout}
}

// DoJSONRequest marshals reqBody, sends it through DoRequest and decodes
// the reply into respBody. Undecodable replies are *ParseError.
func (p *HTTPProvider) DoJSONRequest(ctx context.Context, method, url string, reqBody, respBody any, headers map[string]string) error {
	var payload []byte
	if reqBody != nil {
		var err error
		if payload, err = json.Marshal(reqBody); err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	resp, err := p.DoRequest(ctx, method, url, payload, headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ParseError{Provider: p.config.Name, Cause: fmt.Errorf("failed to read response: %w", err)}
	}
	if respBody == nil {
		return nil
	}
	if err := json.Unmarshal(raw, respBody); err != nil {
		return &ParseError{
			Provider:    p.config.Name,
			RawResponse: truncate(string(raw), maxErrorBody),
			Cause:       fmt.Errorf("failed to unmarshal response: %w", err),
		}
	}
	return nil
}

// Close stops the health checker if it was started and drops idle
// connections. Repeated calls are no-ops.
func (p *HTTPProvider) Close() error {
	p.closeOnce.Do(func() {
		close(p.stopHealthCheck)

		started := true
		p.checkerOnce.Do(func() { started = false })
		if started {
			select {
			case <-p.healthCheckStopped:
			case <-time.After(5 * time.Second):
				slog.Warn("health checker did not stop in time", "provider", p.config.Name)
			}
		}
		p.client.CloseIdleConnections()
	})
	return nil
}

// parseRetryAfter reads a Retry-After value in seconds or HTTP-date form.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		return time.Until(t)
	}
	return 0
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
