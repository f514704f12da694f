/*
Package auth provides API key authentication for the gateway's HTTP API.

Keys come from the security.auth section of the configuration:

	security:
	  auth:
	    enabled: true
	    sources:
	      - type: header
	        name: Authorization
	        scheme: Bearer
	      - type: header
	        name: X-API-Key
	    keys:
	      - key: ${VEIL_CLINIC_KEY}
	        user_id: clinic-frontend

FromConfig returns nil when authentication is disabled, and a nil
middleware passes requests through, so callers can wrap unconditionally:

	handler = auth.FromConfig(cfg.Security.Auth).Handle(handler)

Authenticated requests carry their APIKeyInfo in the context
(GetAPIKeyInfo) and the user id in the logging context. Failures return an
OpenAI-style 401 error body. Keys are indexed by SHA-256 digest and never
logged.
*/
package auth
