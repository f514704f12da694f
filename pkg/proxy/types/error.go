package types

import "net/http"

// ErrorResponse is the body of every failed request. The envelope matches
// the one OpenAI clients already parse.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes one failure. Message is assembled from stage and
// category names only and never echoes prompt text or original values.
type ErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Param   string `json:"param,omitempty"`
	Code    string `json:"code,omitempty"`
}

// Error types, one per HTTP status the gateway returns.
const (
	ErrorTypeInvalidRequest     = "invalid_request_error"
	ErrorTypeAuthentication     = "authentication_error"
	ErrorTypePermissionDenied   = "permission_denied"
	ErrorTypeNotFound           = "not_found"
	ErrorTypeRateLimitExceeded  = "rate_limit_exceeded"
	ErrorTypeServerError        = "server_error"
	ErrorTypeBadGateway         = "bad_gateway"
	ErrorTypeServiceUnavailable = "service_unavailable"
	ErrorTypeGatewayTimeout     = "gateway_timeout"
)

var statusByType = map[string]int{
	ErrorTypeInvalidRequest:     http.StatusBadRequest,
	ErrorTypeAuthentication:     http.StatusUnauthorized,
	ErrorTypePermissionDenied:   http.StatusForbidden,
	ErrorTypeNotFound:           http.StatusNotFound,
	ErrorTypeRateLimitExceeded:  http.StatusTooManyRequests,
	ErrorTypeServerError:        http.StatusInternalServerError,
	ErrorTypeBadGateway:         http.StatusBadGateway,
	ErrorTypeServiceUnavailable: http.StatusServiceUnavailable,
	ErrorTypeGatewayTimeout:     http.StatusGatewayTimeout,
}

// Machine-readable codes.
const (
	CodeMissingField    = "missing_field"
	CodeInvalidValue    = "invalid_value"
	CodeInvalidJSON     = "invalid_json"
	CodeRequestTooLarge = "request_too_large"
	CodeInternalError   = "internal_error"
	CodeNotFound        = "not_found"

	// The prompt is never forwarded when detection fails.
	CodeDetectionFailed    = "detection_failed"
	CodeTokenizationFailed = "tokenization_failed"

	CodeProviderError       = "provider_error"
	CodeProviderTimeout     = "provider_timeout"
	CodeProviderUnavailable = "provider_unavailable"
	CodeProviderRateLimited = "provider_rate_limited"
)

// NewErrorResponse builds an error body.
func NewErrorResponse(message, errorType, param, code string) *ErrorResponse {
	return &ErrorResponse{Error: ErrorDetail{Message: message, Type: errorType, Param: param, Code: code}}
}

// NewInvalidRequestError is a 400 naming the offending parameter.
func NewInvalidRequestError(message, param, code string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeInvalidRequest, param, code)
}

// NewServerError is a 500.
func NewServerError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeServerError, "", CodeInternalError)
}

// NewBadGatewayError is a 502 for provider failures.
func NewBadGatewayError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeBadGateway, "", CodeProviderError)
}

// NewServiceUnavailableError is a 503 for a provider that cannot be used.
func NewServiceUnavailableError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeServiceUnavailable, "", CodeProviderUnavailable)
}

// NewGatewayTimeoutError is a 504 for provider deadlines.
func NewGatewayTimeoutError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeGatewayTimeout, "", CodeProviderTimeout)
}

// HTTPStatusCode maps Type to a status. Unknown types are 500.
func (e *ErrorDetail) HTTPStatusCode() int {
	if status, ok := statusByType[e.Type]; ok {
		return status
	}
	return http.StatusInternalServerError
}
