// Package proxy holds the HTTP surface shared by the gateway's handlers:
// request decoding, response encoding and error mapping.
//
// Request bodies are size limited and validated before they reach the
// pipeline. Malformed JSON is rejected without echoing the body, since it
// may carry PII.
//
// HandleError maps pipeline failures to status codes:
//
//	detection          503 (504 on deadline)
//	tokenization       500
//	provider timeout   504
//	provider 429       429
//	provider other     502 (503 when unreachable or misconfigured)
//	bad request body   400
//
// Every message is built from stage and category names, never from prompt
// text, completions or provider response bodies.
//
// Subpackages:
//
//   - handlers: /v1/chat, /v1/detect, /v1/sessions/{id}, /, /health, /ready
//   - middleware: request ID, logging, recovery, timeout, CORS, body limits, metrics
//   - types: JSON request and response bodies
package proxy
