// Package anthropic implements the Anthropic provider adapter.
//
// It sends sanitized prompts to the Messages API (POST /v1/messages). System
// messages are lifted into the top-level system field, and the remaining
// turns must start with the user and alternate.
//
// # Basic Usage
//
//	provider, err := anthropic.NewProvider(providers.ProviderConfig{
//	    Name:   "anthropic",
//	    Type:   "anthropic",
//	    APIKey: os.Getenv("ANTHROPIC_API_KEY"),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
// # Error Handling
//
// HTTP failures map to the providers error types (AuthError, RateLimitError,
// ProviderError, TimeoutError). A response without any text block is
// reported as providers.EmptyResponseError carrying the stop reason.
package anthropic
