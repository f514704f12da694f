package config

import "time"

// Config is the root configuration structure for veil.
type Config struct {
	// Server contains HTTP listener configuration.
	Server ServerConfig `yaml:"server"`

	// Vault configures the session token vault.
	Vault VaultConfig `yaml:"vault"`

	// Detector selects and configures the PII detection backend.
	Detector DetectorConfig `yaml:"detector"`

	// Tokenizer contains the redaction policy.
	Tokenizer TokenizerConfig `yaml:"tokenizer"`

	// Providers contains completion backends keyed by name.
	Providers map[string]ProviderConfig `yaml:"providers"`

	// Pipeline wires detection, tokenization and the provider together.
	Pipeline PipelineConfig `yaml:"pipeline"`

	// Evidence configures the audit trail.
	Evidence EvidenceConfig `yaml:"evidence"`

	// Telemetry contains logging, metrics and tracing configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Security contains API key authentication.
	Security SecurityConfig `yaml:"security"`

	// Secrets configures ${secret:name} resolution.
	Secrets SecretsConfig `yaml:"secrets"`
}

// SecretsConfig configures where ${secret:name} references are looked up.
// Provider API keys and client API keys may use them.
type SecretsConfig struct {
	// EnvPrefix starts the environment variable for each secret.
	// Default: "VEIL_SECRET_"
	EnvPrefix string `yaml:"env_prefix"`

	// Dir holds one file per secret, checked after the environment.
	// Empty disables file lookup.
	Dir string `yaml:"dir"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout bounds response writes. It must exceed the provider
	// timeout or slow completions are cut off.
	// Default: 90s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle limit.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the grace period for in-flight requests.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// RequestTimeout bounds a whole request through the middleware chain.
	// Default: 120s
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// MaxHeaderBytes limits request header size.
	// Default: 1MB
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// MaxBodyBytes limits request body size.
	// Default: 1MB
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// CORS contains cross-origin settings.
	CORS CORSConfig `yaml:"cors"`

	// TLS serves HTTPS on the listener.
	TLS TLSConfig `yaml:"tls"`
}

// TLSConfig configures HTTPS termination. The certificate pair is reloaded
// when either file changes.
type TLSConfig struct {
	// Enabled turns on HTTPS.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// CertFile is the PEM certificate chain.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the PEM private key.
	KeyFile string `yaml:"key_file"`

	// MinVersion is "1.2" or "1.3".
	// Default: "1.3"
	MinVersion string `yaml:"min_version"`

	// ClientCAFile enables client certificate verification against this CA bundle.
	ClientCAFile string `yaml:"client_ca_file"`

	// ClientAuth is "require", "request" or "verify_if_given". Only used with ClientCAFile.
	// Default: "require"
	ClientAuth string `yaml:"client_auth"`
}

// CORSConfig contains CORS (Cross-Origin Resource Sharing) configuration.
type CORSConfig struct {
	// Enabled controls whether CORS headers are sent.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins lists permitted origins. "*" allows all.
	// Default: ["*"]
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods lists permitted methods.
	// Default: ["GET", "POST", "DELETE", "OPTIONS"]
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders lists permitted request headers.
	// Default: ["Content-Type", "Authorization", "X-Request-ID", "X-Session-ID"]
	AllowedHeaders []string `yaml:"allowed_headers"`

	// MaxAge is the preflight cache duration in seconds.
	// Default: 3600
	MaxAge int `yaml:"max_age"`
}

// VaultConfig configures the token vault.
type VaultConfig struct {
	// TTL is how long a session mapping lives after its last write.
	// Default: 24h
	TTL time.Duration `yaml:"ttl"`

	// Shards is the number of lock buckets.
	// Default: 32
	Shards int `yaml:"shards"`

	// SweepSchedule is the cron expression for removing expired sessions.
	// Default: "@every 5m"
	SweepSchedule string `yaml:"sweep_schedule"`

	// Placeholder selects the suffix generator.
	// Options: "random", "counter"
	// Default: "random"
	Placeholder string `yaml:"placeholder"`
}

// DetectorConfig selects the PII detector.
type DetectorConfig struct {
	// Backend is the detector implementation.
	// Options: "pattern", "presidio", "chain" (pattern then presidio)
	// Default: "pattern"
	Backend string `yaml:"backend"`

	// Entities is the allow-list of entity types. Empty means the default list.
	Entities []string `yaml:"entities"`

	// MinScore drops spans scoring below this value.
	// Default: 0
	MinScore float64 `yaml:"min_score"`

	// Timeout bounds a single detection call.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`

	// Pattern configures the built-in regex recognizers.
	Pattern PatternConfig `yaml:"pattern"`

	// Presidio configures the remote analyzer client.
	Presidio PresidioConfig `yaml:"presidio"`
}

// PatternConfig configures the regex recognizer set.
type PatternConfig struct {
	// File is an optional recognizers YAML file replacing the embedded set.
	File string `yaml:"file"`

	// Watch reloads File when it changes.
	// Default: false
	Watch bool `yaml:"watch"`
}

// PresidioConfig configures a Presidio analyzer client.
type PresidioConfig struct {
	// URL is the analyzer base URL, e.g. "http://localhost:5002".
	URL string `yaml:"url"`

	// Language is the analysis language.
	// Default: "en"
	Language string `yaml:"language"`

	// ScoreThreshold is forwarded to the analyzer.
	ScoreThreshold float64 `yaml:"score_threshold"`
}

// TokenizerConfig contains the redaction policy.
type TokenizerConfig struct {
	// AgeLabels are the entity types subject to the age exception.
	// Default: ["AGE"]
	AgeLabels []string `yaml:"age_labels"`

	// AgeThreshold is the largest age kept verbatim. An explicit 0
	// redacts every age; leaving it unset takes the default.
	// Default: 89
	AgeThreshold *int `yaml:"age_threshold"`

	// MaxAge is the largest value accepted as an age.
	// Default: 120
	MaxAge int `yaml:"max_age"`
}

// Threshold returns AgeThreshold, or DefaultAgeThreshold when unset.
func (c TokenizerConfig) Threshold() int {
	if c.AgeThreshold == nil {
		return DefaultAgeThreshold
	}
	return *c.AgeThreshold
}

// ProviderConfig contains configuration for a single completion backend.
type ProviderConfig struct {
	// Type is the adapter. Inferred from the provider name when empty.
	// Options: "openai", "anthropic", "gemini", "ollama", "echo"
	Type string `yaml:"type"`

	// BaseURL overrides the adapter's default endpoint.
	BaseURL string `yaml:"base_url"`

	// APIKey authenticates against the backend. Not needed for ollama or echo.
	APIKey string `yaml:"api_key"`

	// Model is the default model for this provider.
	Model string `yaml:"model"`

	// Timeout bounds each HTTP request.
	// Default: 60s
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is the retry count for transient failures.
	// Default: 3
	MaxRetries int `yaml:"max_retries"`

	// Temperature is the sampling temperature. Zero uses the adapter default.
	Temperature float64 `yaml:"temperature"`

	// MaxTokens caps completion length. Zero uses the adapter default.
	MaxTokens int `yaml:"max_tokens"`

	// HealthCheckInterval enables background health probing when positive.
	HealthCheckInterval time.Duration `yaml:"health_check_interval"`
}

// PipelineConfig wires the request path.
type PipelineConfig struct {
	// Provider names the entry in Providers used for completions.
	// Default: the only configured provider, if there is exactly one.
	Provider string `yaml:"provider"`

	// Model is sent when a request does not name one.
	Model string `yaml:"model"`

	// ProviderTimeout bounds the completion call.
	// Default: 60s
	ProviderTimeout time.Duration `yaml:"provider_timeout"`

	// DetectTimeout bounds the detection call.
	// Default: 10s
	DetectTimeout time.Duration `yaml:"detect_timeout"`
}

// EvidenceConfig configures the audit trail.
type EvidenceConfig struct {
	// Enabled turns audit records on.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Backend is the storage backend.
	// Options: "memory", "sqlite"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite storage settings.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Memory contains in-memory storage settings.
	Memory MemoryConfig `yaml:"memory"`

	// Recorder configures asynchronous writes.
	Recorder RecorderConfig `yaml:"recorder"`

	// Retention configures pruning of old records.
	Retention RetentionConfig `yaml:"retention"`
}

// SQLiteConfig contains SQLite-specific configuration.
type SQLiteConfig struct {
	// Path is the database file.
	// Default: "data/evidence.db"
	Path string `yaml:"path"`

	// Driver selects the database/sql driver.
	// Options: "sqlite" (modernc.org/sqlite, pure Go), "sqlite3" (mattn/go-sqlite3, cgo)
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// MaxOpenConns limits open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns limits idle connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long a writer waits on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// MemoryConfig configures the in-memory store.
type MemoryConfig struct {
	// MaxRecords evicts the oldest records beyond this count. Negative is unlimited.
	// Default: 10000
	MaxRecords int `yaml:"max_records"`
}

// RecorderConfig contains evidence recorder configuration.
type RecorderConfig struct {
	// AsyncBuffer is the queue length. Records are dropped when it is full.
	// Default: 1000
	AsyncBuffer int `yaml:"async_buffer"`

	// WriteTimeout bounds a single store write.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// RetentionConfig contains retention policy configuration.
type RetentionConfig struct {
	// Days is how long records are kept. Negative keeps them forever.
	// Default: 90
	Days int `yaml:"days"`

	// Schedule is the cron expression for pruning.
	// Default: "0 3 * * *"
	Schedule string `yaml:"schedule"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	AddSource bool `yaml:"add_source"`

	// RedactPII scrubs PII patterns and sensitive keys from log records.
	// Default: true
	RedactPII bool `yaml:"redact_pii"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "veil"
	Namespace string `yaml:"namespace"`

	// RequestDurationBuckets defines histogram buckets in seconds.
	RequestDurationBuckets []float64 `yaml:"request_duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether spans are exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP gRPC collector address.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS to the collector.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// SampleRatio is the fraction of traces sampled.
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// ServiceName is reported on every span.
	// Default: "veil"
	ServiceName string `yaml:"service_name"`
}

// SecurityConfig contains security-related configuration.
type SecurityConfig struct {
	Auth AuthenticationConfig `yaml:"auth"`
}

// AuthenticationConfig contains API key authentication configuration.
type AuthenticationConfig struct {
	// Enabled controls whether API key authentication is enforced.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sources defines where API keys are read from.
	// Default: Authorization: Bearer and X-API-Key headers
	Sources []APIKeySource `yaml:"sources"`

	// Keys is the list of valid API keys.
	Keys []APIKeyConfig `yaml:"keys"`
}

// APIKeySource defines where to extract an API key from.
type APIKeySource struct {
	// Type is the source type.
	// Options: "header", "query"
	Type string `yaml:"type"`

	// Name is the header or query parameter name.
	Name string `yaml:"name"`

	// Scheme is the header auth scheme, e.g. "Bearer". Empty reads the raw value.
	Scheme string `yaml:"scheme,omitempty"`
}

// APIKeyConfig contains configuration for a single API key.
type APIKeyConfig struct {
	// Key is the secret value presented by clients.
	Key string `yaml:"key"`

	// UserID identifies the caller in logs.
	UserID string `yaml:"user_id"`

	TeamID string `yaml:"team_id,omitempty"`

	// Disabled rejects the key without removing it from the file.
	Disabled bool `yaml:"disabled"`
}
