package proxy

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"mercator-hq/veil/pkg/proxy/types"
)

const (
	// MaxRequestBodySize is the body limit used when none is configured.
	MaxRequestBodySize = 1 << 20

	// UserIDHeader names the caller when authentication is off.
	UserIDHeader = "X-User-ID"
)

// ParseChatRequest reads, decodes and validates a POST /v1/chat body of at
// most maxBytes (MaxRequestBodySize when maxBytes <= 0).
func ParseChatRequest(r *http.Request, maxBytes int64) (*types.ChatRequest, error) {
	return parseBody[types.ChatRequest](r, maxBytes)
}

// ParseDetectRequest does the same for POST /v1/detect.
func ParseDetectRequest(r *http.Request, maxBytes int64) (*types.DetectRequest, error) {
	return parseBody[types.DetectRequest](r, maxBytes)
}

// parseBody failures are *RequestError except for I/O errors other than
// the size limit.
func parseBody[T any, PT interface {
	*T
	Validate() error
}](r *http.Request, maxBytes int64) (*T, error) {
	if maxBytes <= 0 {
		maxBytes = MaxRequestBodySize
	}
	if r.Body == nil {
		return nil, &RequestError{Message: "request body is empty", Code: types.CodeMissingField, Param: "body"}
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes+1))
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return nil, tooLarge(maxErr.Limit)
	case err != nil:
		return nil, fmt.Errorf("failed to read request body: %w", err)
	case int64(len(body)) > maxBytes:
		return nil, tooLarge(maxBytes)
	}

	dst := PT(new(T))
	if err := json.Unmarshal(body, dst); err != nil {
		// json errors can quote the body, which may hold PII.
		return nil, &RequestError{Message: "request body is not valid JSON", Code: types.CodeInvalidJSON, Param: "body"}
	}
	if err := dst.Validate(); err != nil {
		var ve *types.ValidationError
		if !errors.As(err, &ve) {
			return nil, err
		}
		code := types.CodeInvalidValue
		if strings.HasSuffix(ve.Message, "is required") {
			code = types.CodeMissingField
		}
		return nil, &RequestError{Message: ve.Message, Code: code, Param: ve.Field}
	}
	return dst, nil
}

func tooLarge(limit int64) error {
	return &RequestError{
		Message: fmt.Sprintf("request body exceeds maximum size of %d bytes", limit),
		Code:    types.CodeRequestTooLarge,
		Param:   "body",
	}
}

// ExtractUserID returns the trimmed X-User-ID header.
func ExtractUserID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(UserIDHeader))
}

// RequestError is a client mistake in the request body. Message never
// contains body content.
type RequestError struct {
	Message string
	Code    string
	Param   string
}

func (e *RequestError) Error() string { return e.Message }

func (e *RequestError) ToErrorResponse() *types.ErrorResponse {
	return types.NewInvalidRequestError(e.Message, e.Param, e.Code)
}
