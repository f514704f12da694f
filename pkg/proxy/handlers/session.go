package handlers

import (
	"log/slog"
	"net/http"

	"mercator-hq/veil/pkg/evidence"
	"mercator-hq/veil/pkg/proxy"
	"mercator-hq/veil/pkg/proxy/types"
	"mercator-hq/veil/pkg/telemetry/logging"
)

// SessionHandler serves DELETE /v1/sessions/{id}, dropping the session's
// mapping before its TTL. Deleting an unknown session is not an error; the
// response reports whether anything was removed.
type SessionHandler struct {
	store SessionStore
}

// NewSessionHandler creates a session handler.
func NewSessionHandler(store SessionStore) *SessionHandler {
	return &SessionHandler{store: store}
}

// ServeHTTP implements http.Handler. It must be registered on a pattern
// with an {id} wildcard.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodDelete {
		writeMethodNotAllowed(ctx, w, r.Method, http.MethodDelete)
		return
	}

	id := r.PathValue("id")
	if id == "" || len(id) > types.MaxSessionIDLength {
		writeError(ctx, w, &proxy.RequestError{
			Message: "session id is missing or too long",
			Code:    types.CodeInvalidValue,
			Param:   "id",
		})
		return
	}

	deleted := h.store.Delete(id)
	slog.InfoContext(logging.WithSession(ctx, evidence.HashSession(id)), "session deleted", "found", deleted)

	resp := types.SessionDeleteResponse{SessionID: id, Deleted: deleted}
	if err := proxy.WriteJSONResponse(w, http.StatusOK, resp); err != nil {
		slog.ErrorContext(ctx, "failed to write response", "error", err)
	}
}
