package logging

import "context"

// field identifies one request-scoped value that Handler copies onto every
// record logged with the context.
type field int

const (
	requestIDField field = iota
	userField
	sessionField
	providerField
	modelField
	numFields
)

var fieldNames = [numFields]string{"request_id", "user", "session", "provider", "model"}

func with(ctx context.Context, f field, v string) context.Context {
	return context.WithValue(ctx, f, v)
}

func get(ctx context.Context, f field) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(f).(string)
	return v
}

// WithRequestID tags ctx with the request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return with(ctx, requestIDField, id)
}

// GetRequestID returns the request ID, or "".
func GetRequestID(ctx context.Context) string { return get(ctx, requestIDField) }

// WithSession tags ctx with a session identifier. Callers pass the session
// hash, never the raw ID.
func WithSession(ctx context.Context, session string) context.Context {
	return with(ctx, sessionField, session)
}

func GetSession(ctx context.Context) string { return get(ctx, sessionField) }

func WithProvider(ctx context.Context, provider string) context.Context {
	return with(ctx, providerField, provider)
}

func GetProvider(ctx context.Context) string { return get(ctx, providerField) }

func WithModel(ctx context.Context, model string) context.Context {
	return with(ctx, modelField, model)
}

func GetModel(ctx context.Context) string { return get(ctx, modelField) }

// WithUser tags ctx with the authenticated caller.
func WithUser(ctx context.Context, user string) context.Context {
	return with(ctx, userField, user)
}

func GetUser(ctx context.Context) string { return get(ctx, userField) }
