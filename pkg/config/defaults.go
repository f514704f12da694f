package config

import (
	"time"

	"mercator-hq/veil/pkg/security/secrets"
)

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 90 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultRequestTimeout  = 120 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB
	DefaultMaxBodyBytes    = int64(1048576)
	DefaultCORSMaxAge      = 3600

	// Vault defaults
	DefaultVaultTTL           = 24 * time.Hour
	DefaultVaultShards        = 32
	DefaultVaultSweepSchedule = "@every 5m"
	DefaultPlaceholder        = "random"

	// Detector defaults
	DefaultDetectorBackend  = "pattern"
	DefaultDetectorTimeout  = 10 * time.Second
	DefaultPresidioLanguage = "en"

	// Tokenizer defaults
	DefaultAgeLabel     = "AGE"
	DefaultAgeThreshold = 89
	DefaultMaxAge       = 120

	// Provider defaults
	DefaultProviderTimeout    = 60 * time.Second
	DefaultProviderMaxRetries = 3

	// Pipeline defaults
	DefaultPipelineProviderTimeout = 60 * time.Second
	DefaultPipelineDetectTimeout   = 10 * time.Second

	// Evidence defaults
	DefaultEvidenceBackend              = "sqlite"
	DefaultEvidenceSQLitePath           = "data/evidence.db"
	DefaultEvidenceSQLiteDriver         = "sqlite"
	DefaultEvidenceSQLiteMaxOpenConns   = 10
	DefaultEvidenceSQLiteMaxIdleConns   = 5
	DefaultEvidenceSQLiteBusyTimeout    = 5 * time.Second
	DefaultEvidenceMemoryMaxRecords     = 10000
	DefaultEvidenceRecorderAsyncBuffer  = 1000
	DefaultEvidenceRecorderWriteTimeout = 5 * time.Second
	DefaultEvidenceRetentionDays        = 90
	DefaultEvidenceRetentionSchedule    = "0 3 * * *"

	// Telemetry defaults
	DefaultLoggingLevel        = "info"
	DefaultLoggingFormat       = "json"
	DefaultPrometheusPath      = "/metrics"
	DefaultMetricsNamespace    = "veil"
	DefaultTracingEndpoint     = "localhost:4317"
	DefaultTracingSamplingRate = 1.0
	DefaultTracingServiceName  = "veil"
)

// Default returns a configuration with every default applied, including
// the boolean settings that default to true. LoadConfig decodes YAML on
// top of it so an explicit false in the file is kept.
func Default() *Config {
	cfg := &Config{
		Server: ServerConfig{
			CORS: CORSConfig{Enabled: true},
		},
		Evidence: EvidenceConfig{
			Enabled: true,
			SQLite:  SQLiteConfig{WALMode: true},
		},
		Telemetry: TelemetryConfig{
			Logging: LoggingConfig{RedactPII: true},
			Metrics: MetricsConfig{Enabled: true},
			Tracing: TracingConfig{Insecure: true},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with their defaults. Boolean
// fields are left alone; see Default.
// It is idempotent.
func ApplyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)

	// Vault
	if cfg.Vault.TTL == 0 {
		cfg.Vault.TTL = DefaultVaultTTL
	}
	if cfg.Vault.Shards == 0 {
		cfg.Vault.Shards = DefaultVaultShards
	}
	if cfg.Vault.SweepSchedule == "" {
		cfg.Vault.SweepSchedule = DefaultVaultSweepSchedule
	}
	if cfg.Vault.Placeholder == "" {
		cfg.Vault.Placeholder = DefaultPlaceholder
	}

	// Detector
	if cfg.Detector.Backend == "" {
		cfg.Detector.Backend = DefaultDetectorBackend
	}
	if cfg.Detector.Timeout == 0 {
		cfg.Detector.Timeout = DefaultDetectorTimeout
	}
	if cfg.Detector.Presidio.Language == "" {
		cfg.Detector.Presidio.Language = DefaultPresidioLanguage
	}

	// Tokenizer
	if len(cfg.Tokenizer.AgeLabels) == 0 {
		cfg.Tokenizer.AgeLabels = []string{DefaultAgeLabel}
	}
	if cfg.Tokenizer.AgeThreshold == nil {
		threshold := DefaultAgeThreshold
		cfg.Tokenizer.AgeThreshold = &threshold
	}
	if cfg.Tokenizer.MaxAge == 0 {
		cfg.Tokenizer.MaxAge = DefaultMaxAge
	}

	// Provider defaults - applied to each provider
	for name, provider := range cfg.Providers {
		if provider.Timeout == 0 {
			provider.Timeout = DefaultProviderTimeout
		}
		if provider.MaxRetries == 0 {
			provider.MaxRetries = DefaultProviderMaxRetries
		}
		cfg.Providers[name] = provider
	}

	// Pipeline
	if cfg.Pipeline.Provider == "" && len(cfg.Providers) == 1 {
		for name := range cfg.Providers {
			cfg.Pipeline.Provider = name
		}
	}
	if cfg.Pipeline.ProviderTimeout == 0 {
		cfg.Pipeline.ProviderTimeout = DefaultPipelineProviderTimeout
	}
	if cfg.Pipeline.DetectTimeout == 0 {
		cfg.Pipeline.DetectTimeout = DefaultPipelineDetectTimeout
	}

	applyEvidenceDefaults(&cfg.Evidence)

	// Telemetry
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultPrometheusPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Tracing.Endpoint == "" {
		cfg.Telemetry.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSamplingRate
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingServiceName
	}

	if cfg.Secrets.EnvPrefix == "" {
		cfg.Secrets.EnvPrefix = secrets.DefaultEnvPrefix
	}

	// Security
	if len(cfg.Security.Auth.Sources) == 0 {
		cfg.Security.Auth.Sources = []APIKeySource{
			{Type: "header", Name: "Authorization", Scheme: "Bearer"},
			{Type: "header", Name: "X-API-Key"},
		}
	}
}

func applyServerDefaults(s *ServerConfig) {
	if s.ListenAddress == "" {
		s.ListenAddress = DefaultListenAddress
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = DefaultReadTimeout
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = DefaultWriteTimeout
	}
	if s.IdleTimeout == 0 {
		s.IdleTimeout = DefaultIdleTimeout
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = DefaultShutdownTimeout
	}
	if s.RequestTimeout == 0 {
		s.RequestTimeout = DefaultRequestTimeout
	}
	if s.MaxHeaderBytes == 0 {
		s.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if s.MaxBodyBytes == 0 {
		s.MaxBodyBytes = DefaultMaxBodyBytes
	}

	cors := &s.CORS
	if len(cors.AllowedOrigins) == 0 {
		cors.AllowedOrigins = []string{"*"}
	}
	if len(cors.AllowedMethods) == 0 {
		cors.AllowedMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	}
	if len(cors.AllowedHeaders) == 0 {
		cors.AllowedHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "X-Session-ID"}
	}
	if cors.MaxAge == 0 {
		cors.MaxAge = DefaultCORSMaxAge
	}
}

func applyEvidenceDefaults(e *EvidenceConfig) {
	if e.Backend == "" {
		e.Backend = DefaultEvidenceBackend
	}
	if e.SQLite.Path == "" {
		e.SQLite.Path = DefaultEvidenceSQLitePath
	}
	if e.SQLite.Driver == "" {
		e.SQLite.Driver = DefaultEvidenceSQLiteDriver
	}
	if e.SQLite.MaxOpenConns == 0 {
		e.SQLite.MaxOpenConns = DefaultEvidenceSQLiteMaxOpenConns
	}
	if e.SQLite.MaxIdleConns == 0 {
		e.SQLite.MaxIdleConns = DefaultEvidenceSQLiteMaxIdleConns
	}
	if e.SQLite.BusyTimeout == 0 {
		e.SQLite.BusyTimeout = DefaultEvidenceSQLiteBusyTimeout
	}
	if e.Memory.MaxRecords == 0 {
		e.Memory.MaxRecords = DefaultEvidenceMemoryMaxRecords
	}
	if e.Recorder.AsyncBuffer == 0 {
		e.Recorder.AsyncBuffer = DefaultEvidenceRecorderAsyncBuffer
	}
	if e.Recorder.WriteTimeout == 0 {
		e.Recorder.WriteTimeout = DefaultEvidenceRecorderWriteTimeout
	}
	if e.Retention.Days == 0 {
		e.Retention.Days = DefaultEvidenceRetentionDays
	}
	if e.Retention.Schedule == "" {
		e.Retention.Schedule = DefaultEvidenceRetentionSchedule
	}
}
