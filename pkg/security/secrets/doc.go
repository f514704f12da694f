// Package secrets resolves ${secret:name} references in configuration.
//
// Provider API keys and gateway client keys can be written as
//
//	providers:
//	  openai:
//	    api_key: ${secret:openai-api-key}
//
// and are looked up when the configuration loads: first in the environment
// (VEIL_SECRET_OPENAI_API_KEY), then in the secrets directory, one file per
// secret. An unresolved reference fails the load rather than passing the
// literal reference upstream.
package secrets
