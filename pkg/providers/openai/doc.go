// Package openai implements the OpenAI provider adapter for the chat
// completions API (POST {base_url}/chat/completions).
//
// Any OpenAI-compatible server works by pointing BaseURL at it. Requests
// always ask for a single choice; an answer with no choices or blank content
// is reported as providers.EmptyResponseError.
//
//	provider, err := openai.NewProvider(providers.ProviderConfig{
//	    Name:   "openai",
//	    Type:   "openai",
//	    APIKey: os.Getenv("OPENAI_API_KEY"),
//	    Model:  "gpt-4o-mini",
//	})
package openai
