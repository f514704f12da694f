package handlers

import (
	"net/http"

	"mercator-hq/veil/pkg/proxy"
	"mercator-hq/veil/pkg/proxy/types"
)

// Endpoints served by the gateway, as advertised on GET /.
var Endpoints = map[string]string{
	"chat":    "POST /v1/chat",
	"detect":  "POST /v1/detect",
	"session": "DELETE /v1/sessions/{id}",
	"health":  "GET /health",
	"ready":   "GET /ready",
	"metrics": "GET /metrics",
}

// InfoHandler serves GET / with the service name, version and endpoints.
type InfoHandler struct {
	version string
}

// NewInfoHandler creates an info handler.
func NewInfoHandler(version string) *InfoHandler {
	return &InfoHandler{version: version}
}

// ServeHTTP implements http.Handler.
func (h *InfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Registered on "/", which also matches unknown paths.
	if r.URL.Path != "/" {
		_ = proxy.WriteErrorResponse(w, types.NewErrorResponse("Not found", types.ErrorTypeNotFound, "", types.CodeNotFound))
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeMethodNotAllowed(r.Context(), w, r.Method, http.MethodGet)
		return
	}

	_ = proxy.WriteJSONResponse(w, http.StatusOK, types.ServiceInfo{
		Message:   "Veil PII tokenization gateway",
		Status:    "running",
		Version:   h.version,
		Endpoints: Endpoints,
	})
}
