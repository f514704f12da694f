package proxy

import (
	"context"
	"errors"
	"fmt"

	"mercator-hq/veil/pkg/pipeline"
	"mercator-hq/veil/pkg/providers"
	"mercator-hq/veil/pkg/proxy/types"
)

// HandleError converts an error into an error response. Messages are built
// from stage and category names only, so prompt text and original values
// never reach the client.
//
// Example usage:
//
//	if err != nil {
//	    WriteErrorResponse(w, HandleError(err))
//	    return
//	}
func HandleError(err error) *types.ErrorResponse {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.ToErrorResponse()
	}

	var failure *pipeline.Failure
	if errors.As(err, &failure) {
		return handleFailure(failure)
	}

	return types.NewServerError("An internal error occurred. Please try again later.")
}

func handleFailure(f *pipeline.Failure) *types.ErrorResponse {
	category := pipeline.Category(f.Cause)
	msg := fmt.Sprintf("%s failed: %s", f.Stage, category)

	switch f.Stage {
	case pipeline.StageDetection:
		switch {
		case category == pipeline.CategoryEmptyPrompt:
			return types.NewInvalidRequestError("prompt is required", "prompt", types.CodeMissingField)
		case errors.Is(f.Cause, context.DeadlineExceeded):
			return types.NewErrorResponse(msg, types.ErrorTypeGatewayTimeout, "", types.CodeDetectionFailed)
		default:
			return types.NewErrorResponse(msg, types.ErrorTypeServiceUnavailable, "", types.CodeDetectionFailed)
		}

	case pipeline.StageTokenization:
		return types.NewErrorResponse(msg, types.ErrorTypeServerError, "", types.CodeTokenizationFailed)

	case pipeline.StageProvider:
		return handleProviderFailure(f.Cause, msg)
	}

	return types.NewServerError(msg)
}

func handleProviderFailure(cause error, msg string) *types.ErrorResponse {
	switch providers.Category(cause) {
	case providers.CategoryTimeout:
		return types.NewGatewayTimeoutError(msg)
	case providers.CategoryRateLimit:
		return types.NewErrorResponse(msg, types.ErrorTypeRateLimitExceeded, "", types.CodeProviderRateLimited)
	case providers.CategoryConfig, providers.CategoryUnknown:
		return types.NewServiceUnavailableError(msg)
	default:
		// Auth, parse, empty and upstream status errors are the provider's
		// fault from the client's point of view.
		return types.NewBadGatewayError(msg)
	}
}
