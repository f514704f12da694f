package handlers

import (
	"log/slog"
	"net/http"

	"mercator-hq/veil/pkg/proxy"
)

// DetectHandler serves POST /v1/detect. It reports spans without
// tokenizing or calling a provider, and leaves the vault untouched.
type DetectHandler struct {
	processor    Processor
	maxBodyBytes int64
}

// NewDetectHandler creates a detect handler.
func NewDetectHandler(p Processor, maxBodyBytes int64) *DetectHandler {
	return &DetectHandler{processor: p, maxBodyBytes: maxBodyBytes}
}

// ServeHTTP implements http.Handler.
func (h *DetectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		writeMethodNotAllowed(ctx, w, r.Method, http.MethodPost)
		return
	}

	req, err := proxy.ParseDetectRequest(r, h.maxBodyBytes)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	spans, err := h.processor.Detect(ctx, req.Text)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	if err := proxy.WriteJSONResponse(w, http.StatusOK, proxy.FormatDetectResponse(spans)); err != nil {
		slog.ErrorContext(ctx, "failed to write response", "error", err)
	}
}
