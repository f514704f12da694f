// Package config loads and validates veil's configuration.
//
// # Configuration Loading
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("veil.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("veil.yaml")
//
// LoadDotEnv reads a .env file into the environment first, so provider keys
// can live next to the binary without being committed to the YAML file.
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention VEIL_SECTION_FIELD:
//
//   - VEIL_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - VEIL_PROVIDERS_GEMINI_API_KEY overrides providers.gemini.api_key
//   - VEIL_DETECTOR_ENTITIES=US_SSN,PHONE_NUMBER overrides detector.entities
//
// Setting any VEIL_PROVIDERS_<NAME>_* variable for openai, anthropic,
// gemini, ollama or echo creates that provider entry. Empty API keys fall
// back to OPENAI_API_KEY, ANTHROPIC_API_KEY and GEMINI_API_KEY.
//
// # Validation
//
// Validation collects every problem into a ValidationError:
//
//	configuration validation failed with 2 errors:
//	  - providers.gemini.api_key: field is required
//	  - detector.presidio.url: url is required for the presidio backend
//
// # Example Configuration
//
//	server:
//	  listen_address: "127.0.0.1:8080"
//
//	detector:
//	  backend: pattern
//
//	providers:
//	  gemini: # api_key read from GEMINI_API_KEY
//	    model: gemini-2.5-flash
//
//	pipeline:
//	  provider: gemini
//	  provider_timeout: 60s
//
//	evidence:
//	  backend: sqlite
//	  sqlite:
//	    path: data/evidence.db
package config
