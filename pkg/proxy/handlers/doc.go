// Package handlers implements the gateway's HTTP endpoints.
//
// # Endpoints
//
//   - ChatHandler: POST /v1/chat, the full detect, tokenize, complete,
//     detokenize round trip for one prompt
//   - DetectHandler: POST /v1/detect, spans only, no provider call
//   - SessionHandler: DELETE /v1/sessions/{id}, drop a session mapping early
//   - InfoHandler: GET /, service name, version and endpoint list
//
// /health, /ready and /metrics are served by the telemetry packages.
//
// # Chat Response
//
//	{
//	  "original_prompt": "Call 555-123-4567",
//	  "deidentified_prompt": "Call [PHONE_NUMBER_3f9a0c12]",
//	  "llm_response": "Calling [PHONE_NUMBER_3f9a0c12] now",
//	  "reidentified_response": "Calling 555-123-4567 now",
//	  "detected_entities": [{"entity_type": "PHONE_NUMBER", "start": 5, "end": 17, "score": 0.75, "text": "555-123-4567"}],
//	  "tokens_used": {"placeholders": 1, "session": 1, "redacted": 1, "kept": 0},
//	  "session_id": "7d0c..."
//	}
//
// Handlers depend on the Processor and SessionStore interfaces so tests can
// run them against a real pipeline with in-process detector and provider.
package handlers
