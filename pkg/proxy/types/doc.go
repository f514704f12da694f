// Package types defines the JSON bodies of the gateway's HTTP API.
//
// Chat responses keep the field names existing clients expect
// (original_prompt, deidentified_prompt, llm_response,
// reidentified_response, detected_entities, tokens_used, session_id).
// tokens_used carries counts only; the placeholder mapping never leaves the
// gateway.
//
// Errors use the OpenAI error envelope:
//
//	{"error": {"message": "...", "type": "bad_gateway", "code": "provider_error"}}
package types
