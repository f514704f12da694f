package providers

import "context"

// Provider is a completion backend. The gateway only sends it sanitized
// text, so an implementation never sees a raw entity value.
//
//	resp, err := p.SendCompletion(ctx, &providers.CompletionRequest{
//	    Messages: []providers.Message{{Role: providers.RoleUser, Content: sanitized}},
//	})
//
// Blocking methods return once ctx is done.
type Provider interface {
	// SendCompletion returns the normalized reply. A reply with no text is
	// *EmptyResponseError.
	SendCompletion(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// HealthCheck probes the backend once and updates the tracked health.
	HealthCheck(ctx context.Context) error

	GetName() string
	GetType() string
	GetConfig() ProviderConfig

	// IsHealthy and GetHealth read the tracked state without any I/O.
	IsHealthy() bool
	GetHealth() ProviderHealth

	Close() error
}
