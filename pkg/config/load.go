package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix starts every environment override.
const EnvPrefix = "VEIL_"

// vendorKeyEnv lists the conventional vendor variables consulted when a
// configured provider of that type has no API key.
var vendorKeyEnv = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
	"gemini":    "GEMINI_API_KEY",
}

// wellKnownProviders get a providers entry from environment variables alone.
var wellKnownProviders = []string{"openai", "anthropic", "gemini", "ollama", "echo"}

// LoadConfig loads configuration from a YAML file at the specified path.
// It decodes the file over Default, applies defaults to anything still
// unset and validates the result. Environment variables are ignored; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	cfg, err := parseFile(path)
	if err != nil {
		return nil, err
	}

	ApplyDefaults(cfg)
	if err := resolveSecrets(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies VEIL_SECTION_FIELD environment overrides before validating, so a
// secret such as VEIL_PROVIDERS_GEMINI_API_KEY can satisfy a required
// field the file leaves empty. An empty path skips the file and starts
// from Default.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply environment variable overrides
// 3. Apply default values
// 4. Resolve ${secret:name} references
// 5. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = parseFile(path); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)
	ApplyDefaults(cfg)
	if err := resolveSecrets(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (".env" when none
// are named) into the process environment. Variables that are already set
// win, and missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

func parseFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Values that fail to parse are ignored.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	envString("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	envDuration("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	envDuration("SERVER_REQUEST_TIMEOUT", &cfg.Server.RequestTimeout)
	if val := os.Getenv(EnvPrefix + "SERVER_MAX_BODY_BYTES"); val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.Server.MaxBodyBytes = n
		}
	}
	envBool("SERVER_CORS_ENABLED", &cfg.Server.CORS.Enabled)
	envBool("SERVER_TLS_ENABLED", &cfg.Server.TLS.Enabled)
	envString("SERVER_TLS_CERT_FILE", &cfg.Server.TLS.CertFile)
	envString("SERVER_TLS_KEY_FILE", &cfg.Server.TLS.KeyFile)

	// Vault overrides
	envDuration("VAULT_TTL", &cfg.Vault.TTL)
	envInt("VAULT_SHARDS", &cfg.Vault.Shards)
	envString("VAULT_SWEEP_SCHEDULE", &cfg.Vault.SweepSchedule)
	envString("VAULT_PLACEHOLDER", &cfg.Vault.Placeholder)

	// Detector overrides
	envString("DETECTOR_BACKEND", &cfg.Detector.Backend)
	envList("DETECTOR_ENTITIES", &cfg.Detector.Entities)
	envFloat("DETECTOR_MIN_SCORE", &cfg.Detector.MinScore)
	envDuration("DETECTOR_TIMEOUT", &cfg.Detector.Timeout)
	envString("DETECTOR_PATTERN_FILE", &cfg.Detector.Pattern.File)
	envBool("DETECTOR_PATTERN_WATCH", &cfg.Detector.Pattern.Watch)
	envString("DETECTOR_PRESIDIO_URL", &cfg.Detector.Presidio.URL)
	envString("DETECTOR_PRESIDIO_LANGUAGE", &cfg.Detector.Presidio.Language)

	// Tokenizer overrides
	envList("TOKENIZER_AGE_LABELS", &cfg.Tokenizer.AgeLabels)
	var threshold int
	if envInt("TOKENIZER_AGE_THRESHOLD", &threshold) {
		cfg.Tokenizer.AgeThreshold = &threshold
	}
	envInt("TOKENIZER_MAX_AGE", &cfg.Tokenizer.MaxAge)

	// Provider overrides: configured providers plus the vendor names
	for _, name := range wellKnownProviders {
		applyProviderEnvOverrides(cfg, name)
	}
	for name := range cfg.Providers {
		applyProviderEnvOverrides(cfg, name)
	}
	applyVendorKeys(cfg)

	// Pipeline overrides
	envString("PIPELINE_PROVIDER", &cfg.Pipeline.Provider)
	envString("PIPELINE_MODEL", &cfg.Pipeline.Model)
	envDuration("PIPELINE_PROVIDER_TIMEOUT", &cfg.Pipeline.ProviderTimeout)
	envDuration("PIPELINE_DETECT_TIMEOUT", &cfg.Pipeline.DetectTimeout)

	// Evidence overrides
	envBool("EVIDENCE_ENABLED", &cfg.Evidence.Enabled)
	envString("EVIDENCE_BACKEND", &cfg.Evidence.Backend)
	envString("EVIDENCE_SQLITE_PATH", &cfg.Evidence.SQLite.Path)
	envString("EVIDENCE_SQLITE_DRIVER", &cfg.Evidence.SQLite.Driver)
	envInt("EVIDENCE_RETENTION_DAYS", &cfg.Evidence.Retention.Days)
	envString("EVIDENCE_RETENTION_SCHEDULE", &cfg.Evidence.Retention.Schedule)

	// Telemetry overrides
	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("TELEMETRY_LOGGING_REDACT_PII", &cfg.Telemetry.Logging.RedactPII)
	envBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	envFloat("TELEMETRY_TRACING_SAMPLE_RATIO", &cfg.Telemetry.Tracing.SampleRatio)

	// Security overrides
	envBool("SECURITY_AUTH_ENABLED", &cfg.Security.Auth.Enabled)
	envString("SECRETS_DIR", &cfg.Secrets.Dir)
}

// applyProviderEnvOverrides applies environment variable overrides for a specific provider.
// Provider environment variables follow the format VEIL_PROVIDERS_<NAME>_<FIELD>
// where NAME is the uppercase provider name with dashes turned into underscores.
// An entry is created only when at least one variable is set.
func applyProviderEnvOverrides(cfg *Config, providerName string) {
	if cfg.Providers == nil {
		cfg.Providers = make(map[string]ProviderConfig)
	}

	provider, exists := cfg.Providers[providerName]
	key := "PROVIDERS_" + strings.ToUpper(strings.ReplaceAll(providerName, "-", "_")) + "_"

	modified := false
	modified = envString(key+"TYPE", &provider.Type) || modified
	modified = envString(key+"BASE_URL", &provider.BaseURL) || modified
	modified = envString(key+"API_KEY", &provider.APIKey) || modified
	modified = envString(key+"MODEL", &provider.Model) || modified
	modified = envDuration(key+"TIMEOUT", &provider.Timeout) || modified
	modified = envInt(key+"MAX_RETRIES", &provider.MaxRetries) || modified
	modified = envFloat(key+"TEMPERATURE", &provider.Temperature) || modified
	modified = envInt(key+"MAX_TOKENS", &provider.MaxTokens) || modified

	if modified || exists {
		cfg.Providers[providerName] = provider
	}
}

// applyVendorKeys fills empty API keys from OPENAI_API_KEY and friends, and
// an empty ollama base URL from OLLAMA_HOST.
func applyVendorKeys(cfg *Config) {
	for name, p := range cfg.Providers {
		typ := p.ResolvedType(name)
		if env, ok := vendorKeyEnv[typ]; ok && p.APIKey == "" {
			p.APIKey = os.Getenv(env)
		}
		if typ == "ollama" && p.BaseURL == "" {
			if host := os.Getenv("OLLAMA_HOST"); strings.HasPrefix(host, "http") {
				p.BaseURL = host
			}
		}
		cfg.Providers[name] = p
	}
}

func envString(key string, dst *string) bool {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		*dst = val
		return true
	}
	return false
}

func envDuration(key string, dst *time.Duration) bool {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
			return true
		}
	}
	return false
}

func envInt(key string, dst *int) bool {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
			return true
		}
	}
	return false
}

func envFloat(key string, dst *float64) bool {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			*dst = f
			return true
		}
	}
	return false
}

func envBool(key string, dst *bool) bool {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
			return true
		}
	}
	return false
}

func envList(key string, dst *[]string) bool {
	val := os.Getenv(EnvPrefix + key)
	if val == "" {
		return false
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
	return true
}
