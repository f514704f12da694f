package config

import (
	"fmt"
	"net"
	"net/url"
	"slices"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Has reports whether field failed validation.
func (e ValidationError) Has(field string) bool {
	for _, fe := range e.Errors {
		if fe.Field == field {
			return true
		}
	}
	return false
}

// Provider types accepted in providers.<name>.type.
var providerTypes = []string{"openai", "anthropic", "gemini", "ollama", "echo"}

// Provider types that cannot run without an API key.
var keyedProviderTypes = []string{"openai", "anthropic", "gemini"}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All validation errors are collected and
// returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateVault(&cfg.Vault)...)
	errs = append(errs, validateDetector(&cfg.Detector)...)
	errs = append(errs, validateTokenizer(&cfg.Tokenizer)...)
	errs = append(errs, validateProviders(cfg.Providers)...)
	errs = append(errs, validatePipeline(&cfg.Pipeline, cfg.Providers)...)
	errs = append(errs, validateEvidence(&cfg.Evidence)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)
	errs = append(errs, validateSecurity(&cfg.Security)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{Field: "server.listen_address", Message: "listen address is required"})
	} else if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
		errs = append(errs, FieldError{Field: "server.listen_address", Message: "must be host:port"})
	}

	durations := map[string]bool{
		"server.read_timeout":     cfg.ReadTimeout < 0,
		"server.write_timeout":    cfg.WriteTimeout < 0,
		"server.idle_timeout":     cfg.IdleTimeout < 0,
		"server.shutdown_timeout": cfg.ShutdownTimeout < 0,
		"server.request_timeout":  cfg.RequestTimeout < 0,
	}
	for _, field := range sortedKeys(durations) {
		if durations[field] {
			errs = append(errs, FieldError{Field: field, Message: "must not be negative"})
		}
	}

	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{Field: "server.max_header_bytes", Message: "max header bytes must be non-negative"})
	}
	if cfg.MaxBodyBytes < 0 {
		errs = append(errs, FieldError{Field: "server.max_body_bytes", Message: "max body bytes must be non-negative"})
	}
	if cfg.CORS.MaxAge < 0 {
		errs = append(errs, FieldError{Field: "server.cors.max_age", Message: "must not be negative"})
	}
	errs = append(errs, validateTLS(&cfg.TLS)...)

	return errs
}

func validateTLS(cfg *TLSConfig) []FieldError {
	if !cfg.Enabled {
		return nil
	}

	var errs []FieldError
	if cfg.CertFile == "" {
		errs = append(errs, FieldError{Field: "server.tls.cert_file", Message: "field is required"})
	}
	if cfg.KeyFile == "" {
		errs = append(errs, FieldError{Field: "server.tls.key_file", Message: "field is required"})
	}
	switch cfg.MinVersion {
	case "", "1.2", "1.3":
	default:
		errs = append(errs, FieldError{Field: "server.tls.min_version", Message: fmt.Sprintf("invalid version %q (must be 1.2 or 1.3)", cfg.MinVersion)})
	}
	switch cfg.ClientAuth {
	case "", "require", "request", "verify_if_given":
	default:
		errs = append(errs, FieldError{Field: "server.tls.client_auth", Message: fmt.Sprintf("invalid mode %q (must be require, request or verify_if_given)", cfg.ClientAuth)})
	}
	return errs
}

func validateVault(cfg *VaultConfig) []FieldError {
	var errs []FieldError

	if cfg.TTL <= 0 {
		errs = append(errs, FieldError{Field: "vault.ttl", Message: "ttl must be positive"})
	}
	if cfg.Shards < 1 {
		errs = append(errs, FieldError{Field: "vault.shards", Message: "at least one shard is required"})
	}
	if err := validateSchedule(cfg.SweepSchedule); err != nil {
		errs = append(errs, FieldError{Field: "vault.sweep_schedule", Message: err.Error()})
	}
	if cfg.Placeholder != "random" && cfg.Placeholder != "counter" {
		errs = append(errs, FieldError{
			Field:   "vault.placeholder",
			Message: fmt.Sprintf("invalid generator %q (must be random or counter)", cfg.Placeholder),
		})
	}

	return errs
}

func validateDetector(cfg *DetectorConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "pattern":
	case "presidio", "chain":
		if cfg.Presidio.URL == "" {
			errs = append(errs, FieldError{
				Field:   "detector.presidio.url",
				Message: fmt.Sprintf("url is required for the %s backend", cfg.Backend),
			})
		} else if err := validateURL(cfg.Presidio.URL); err != nil {
			errs = append(errs, FieldError{Field: "detector.presidio.url", Message: err.Error()})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "detector.backend",
			Message: fmt.Sprintf("invalid backend %q (must be pattern, presidio or chain)", cfg.Backend),
		})
	}

	if cfg.MinScore < 0 || cfg.MinScore > 1 {
		errs = append(errs, FieldError{Field: "detector.min_score", Message: "must be between 0 and 1"})
	}
	if cfg.Presidio.ScoreThreshold < 0 || cfg.Presidio.ScoreThreshold > 1 {
		errs = append(errs, FieldError{Field: "detector.presidio.score_threshold", Message: "must be between 0 and 1"})
	}
	if cfg.Timeout < 0 {
		errs = append(errs, FieldError{Field: "detector.timeout", Message: "must not be negative"})
	}
	if cfg.Pattern.Watch && cfg.Pattern.File == "" {
		errs = append(errs, FieldError{Field: "detector.pattern.watch", Message: "watch requires detector.pattern.file"})
	}
	for i, e := range cfg.Entities {
		if strings.TrimSpace(e) == "" {
			errs = append(errs, FieldError{Field: fmt.Sprintf("detector.entities[%d]", i), Message: "entity type must not be empty"})
		}
	}

	return errs
}

func validateTokenizer(cfg *TokenizerConfig) []FieldError {
	var errs []FieldError

	if cfg.MaxAge < 1 {
		errs = append(errs, FieldError{Field: "tokenizer.max_age", Message: "must be positive"})
	}
	if t := cfg.Threshold(); t < 0 || t > cfg.MaxAge {
		errs = append(errs, FieldError{
			Field:   "tokenizer.age_threshold",
			Message: fmt.Sprintf("must be between 0 and max_age (%d)", cfg.MaxAge),
		})
	}

	return errs
}

func validateProviders(providers map[string]ProviderConfig) []FieldError {
	var errs []FieldError

	for _, name := range sortedKeys(providers) {
		p := providers[name]
		prefix := "providers." + name

		typ := p.ResolvedType(name)
		if typ == "" {
			errs = append(errs, FieldError{
				Field:   prefix + ".type",
				Message: "type is required when it cannot be inferred from the provider name",
			})
			continue
		}
		if !slices.Contains(providerTypes, typ) {
			errs = append(errs, FieldError{
				Field:   prefix + ".type",
				Message: fmt.Sprintf("unknown provider type %q (must be one of %s)", p.Type, strings.Join(providerTypes, ", ")),
			})
			continue
		}

		if slices.Contains(keyedProviderTypes, typ) && p.APIKey == "" {
			errs = append(errs, FieldError{Field: prefix + ".api_key", Message: "field is required"})
		}
		if p.BaseURL != "" {
			if err := validateURL(p.BaseURL); err != nil {
				errs = append(errs, FieldError{Field: prefix + ".base_url", Message: err.Error()})
			}
		}
		if p.Timeout < 0 {
			errs = append(errs, FieldError{Field: prefix + ".timeout", Message: "timeout must be positive"})
		}
		if p.MaxRetries < 0 {
			errs = append(errs, FieldError{Field: prefix + ".max_retries", Message: "max retries must be non-negative"})
		}
		if p.Temperature < 0 || p.Temperature > 2 {
			errs = append(errs, FieldError{Field: prefix + ".temperature", Message: "must be between 0 and 2"})
		}
		if p.MaxTokens < 0 {
			errs = append(errs, FieldError{Field: prefix + ".max_tokens", Message: "must not be negative"})
		}
	}

	return errs
}

func validatePipeline(cfg *PipelineConfig, providers map[string]ProviderConfig) []FieldError {
	var errs []FieldError

	if cfg.Provider != "" {
		if _, ok := providers[cfg.Provider]; !ok {
			errs = append(errs, FieldError{
				Field:   "pipeline.provider",
				Message: fmt.Sprintf("provider %q is not configured", cfg.Provider),
			})
		}
	} else if len(providers) > 1 {
		errs = append(errs, FieldError{
			Field:   "pipeline.provider",
			Message: "required when more than one provider is configured",
		})
	}
	if cfg.ProviderTimeout <= 0 {
		errs = append(errs, FieldError{Field: "pipeline.provider_timeout", Message: "must be positive"})
	}
	if cfg.DetectTimeout <= 0 {
		errs = append(errs, FieldError{Field: "pipeline.detect_timeout", Message: "must be positive"})
	}

	return errs
}

func validateEvidence(cfg *EvidenceConfig) []FieldError {
	var errs []FieldError

	if !cfg.Enabled {
		return nil
	}

	switch cfg.Backend {
	case "memory":
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{Field: "evidence.sqlite.path", Message: "path is required for the sqlite backend"})
		}
		if cfg.SQLite.Driver != "sqlite" && cfg.SQLite.Driver != "sqlite3" {
			errs = append(errs, FieldError{
				Field:   "evidence.sqlite.driver",
				Message: fmt.Sprintf("invalid driver %q (must be sqlite or sqlite3)", cfg.SQLite.Driver),
			})
		}
		if cfg.SQLite.MaxOpenConns < 1 {
			errs = append(errs, FieldError{Field: "evidence.sqlite.max_open_conns", Message: "must be positive"})
		}
		if cfg.SQLite.MaxIdleConns < 0 || cfg.SQLite.MaxIdleConns > cfg.SQLite.MaxOpenConns {
			errs = append(errs, FieldError{Field: "evidence.sqlite.max_idle_conns", Message: "must be between 0 and max_open_conns"})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "evidence.backend",
			Message: fmt.Sprintf("invalid backend %q (must be memory or sqlite)", cfg.Backend),
		})
	}

	if cfg.Recorder.AsyncBuffer < 1 {
		errs = append(errs, FieldError{Field: "evidence.recorder.async_buffer", Message: "must be positive"})
	}
	if cfg.Recorder.WriteTimeout <= 0 {
		errs = append(errs, FieldError{Field: "evidence.recorder.write_timeout", Message: "must be positive"})
	}
	if cfg.Retention.Days > 0 {
		if err := validateSchedule(cfg.Retention.Schedule); err != nil {
			errs = append(errs, FieldError{Field: "evidence.retention.schedule", Message: err.Error()})
		}
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid level %q (must be debug, info, warn or error)", cfg.Logging.Level),
		})
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid format %q (must be json or text)", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{Field: "telemetry.metrics.path", Message: "path must start with /"})
	}

	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{Field: "telemetry.tracing.endpoint", Message: "endpoint is required when tracing is enabled"})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		errs = append(errs, FieldError{Field: "telemetry.tracing.sample_ratio", Message: "must be between 0 and 1"})
	}

	return errs
}

func validateSecurity(cfg *SecurityConfig) []FieldError {
	var errs []FieldError

	auth := &cfg.Auth
	if !auth.Enabled {
		return nil
	}

	if len(auth.Keys) == 0 {
		errs = append(errs, FieldError{Field: "security.auth.keys", Message: "at least one key is required when authentication is enabled"})
	}
	seen := make(map[string]bool, len(auth.Keys))
	for i, k := range auth.Keys {
		field := fmt.Sprintf("security.auth.keys[%d].key", i)
		switch {
		case k.Key == "":
			errs = append(errs, FieldError{Field: field, Message: "field is required"})
		case seen[k.Key]:
			errs = append(errs, FieldError{Field: field, Message: "duplicate key"})
		}
		seen[k.Key] = true
	}
	for i, src := range auth.Sources {
		field := fmt.Sprintf("security.auth.sources[%d]", i)
		if src.Type != "header" && src.Type != "query" {
			errs = append(errs, FieldError{Field: field + ".type", Message: fmt.Sprintf("invalid type %q (must be header or query)", src.Type)})
		}
		if src.Name == "" {
			errs = append(errs, FieldError{Field: field + ".name", Message: "field is required"})
		}
	}

	return errs
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("URL must include a host")
	}
	return nil
}

func validateSchedule(spec string) error {
	if spec == "" {
		return fmt.Errorf("schedule is required")
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
