// Package logging provides structured logging with PII redaction.
//
// A Logger wraps log/slog. Its Handler scrubs emails, SSNs, phone numbers,
// card numbers, IP addresses, bearer tokens and API keys from messages and
// attribute values, and hides string values logged under sensitive keys
// such as api_key or prompt. Request-scoped fields stored with
// WithRequestID, WithSession, WithProvider and WithModel are added to every
// record logged with a context.
//
//	logger, err := logging.New(logging.Config{Level: "info", Format: "json", RedactPII: true})
//	if err != nil {
//	    return err
//	}
//	logger.SetDefault()
//
//	ctx = logging.WithRequestID(ctx, "req-123")
//	slog.InfoContext(ctx, "chat completed", "entities", 3)
//
// The pipeline never logs original values or placeholder mappings;
// redaction is a second line for free-form text such as upstream error
// messages.
package logging
