package providers

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Error categories reported by Category.
const (
	CategoryAuth       = "auth"
	CategoryRateLimit  = "rate_limit"
	CategoryTimeout    = "timeout"
	CategoryParse      = "parse"
	CategoryEmpty      = "empty_response"
	CategoryStatus     = "upstream_status"
	CategoryValidation = "validation"
	CategoryConfig     = "config"
	CategoryCanceled   = "canceled"
	CategoryUnknown    = "unavailable"
)

// categorized is implemented by every error type in this package.
type categorized interface {
	error
	category() string
}

// Category maps err to a short label that is safe to log and to return to
// clients. Context expiry wins over any wrapping error; otherwise the
// outermost typed error in the chain decides. Response bodies never appear
// in the label.
func Category(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout
	}
	if errors.Is(err, context.Canceled) {
		return CategoryCanceled
	}
	var c categorized
	if errors.As(err, &c) {
		return c.category()
	}
	return CategoryUnknown
}

// ProviderError is a non-2xx answer or a transport failure. StatusCode is
// 0 when no response arrived.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Cause      error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider %q error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider %q error: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error    { return e.Cause }
func (e *ProviderError) category() string { return CategoryStatus }

// AuthError is a 401 or 403.
type AuthError struct {
	Provider string
	Message  string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("provider %q authentication failed: %s", e.Provider, e.Message)
}

func (e *AuthError) category() string { return CategoryAuth }

// RateLimitError is a 429. RetryAfter is zero when the provider sent no
// usable Retry-After header.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("provider %q rate limit exceeded (retry after %s): %s", e.Provider, e.RetryAfter, e.Message)
	}
	return fmt.Sprintf("provider %q rate limit exceeded: %s", e.Provider, e.Message)
}

func (e *RateLimitError) category() string { return CategoryRateLimit }

type TimeoutError struct {
	Provider string
	Timeout  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("provider %q request timeout after %s", e.Provider, e.Timeout)
}

func (e *TimeoutError) category() string { return CategoryTimeout }

// ParseError is a 2xx body that did not decode. RawResponse is capped at
// maxErrorBody bytes.
type ParseError struct {
	Provider    string
	RawResponse string
	Cause       error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("provider %q response parse error: %v", e.Provider, e.Cause)
}

func (e *ParseError) Unwrap() error    { return e.Cause }
func (e *ParseError) category() string { return CategoryParse }

// EmptyResponseError is a successful answer with no completion text.
// Reason carries the provider's finish or block reason when it gave one.
type EmptyResponseError struct {
	Provider string
	Reason   string
}

func (e *EmptyResponseError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("provider %q returned an empty completion (%s)", e.Provider, e.Reason)
	}
	return fmt.Sprintf("provider %q returned an empty completion", e.Provider)
}

func (e *EmptyResponseError) category() string { return CategoryEmpty }

// ValidationError rejects a request before it is sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field %q: %s", e.Field, e.Message)
}

func (e *ValidationError) category() string { return CategoryValidation }

type ConfigError struct {
	Provider string
	Field    string
	Message  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("provider %q configuration error for field %q: %s", e.Provider, e.Field, e.Message)
}

func (e *ConfigError) category() string { return CategoryConfig }
