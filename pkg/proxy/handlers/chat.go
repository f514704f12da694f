package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"mercator-hq/veil/pkg/pipeline"
	"mercator-hq/veil/pkg/proxy"
	"mercator-hq/veil/pkg/proxy/types"
	"mercator-hq/veil/pkg/security/auth"
	"mercator-hq/veil/pkg/telemetry/logging"
)

// ChatHandler serves POST /v1/chat: detect, tokenize, complete and
// detokenize one prompt within a session.
type ChatHandler struct {
	processor    Processor
	maxBodyBytes int64
}

// NewChatHandler creates a chat handler. maxBodyBytes <= 0 selects
// proxy.MaxRequestBodySize.
func NewChatHandler(p Processor, maxBodyBytes int64) *ChatHandler {
	return &ChatHandler{processor: p, maxBodyBytes: maxBodyBytes}
}

// ServeHTTP implements http.Handler.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	if r.Method != http.MethodPost {
		writeMethodNotAllowed(ctx, w, r.Method, http.MethodPost)
		return
	}

	chatReq, err := proxy.ParseChatRequest(r, h.maxBodyBytes)
	if err != nil {
		slog.WarnContext(ctx, "rejected chat request", "error", err)
		writeError(ctx, w, err)
		return
	}

	res, err := h.processor.Process(ctx, pipeline.Request{
		Prompt:    chatReq.Prompt,
		SessionID: chatReq.SessionID,
		Model:     chatReq.Model,
		RequestID: logging.GetRequestID(ctx),
		UserID:    userID(r),
	})
	if err != nil {
		// The pipeline already logged the failure with its stage and category.
		writeError(ctx, w, err)
		return
	}

	slog.DebugContext(ctx, "chat request served",
		"entities", len(res.DetectedEntities),
		"placeholders", res.TokenCounts.Placeholders,
		"total_latency_ms", time.Since(startTime).Milliseconds(),
	)

	if err := proxy.WriteJSONResponse(w, http.StatusOK, proxy.FormatChatResponse(res)); err != nil {
		slog.ErrorContext(ctx, "failed to write response", "error", err)
	}
}

// userID prefers the identity bound to the API key over the X-User-ID header.
func userID(r *http.Request) string {
	if info, ok := auth.GetAPIKeyInfo(r.Context()); ok && info.UserID != "" {
		return info.UserID
	}
	return proxy.ExtractUserID(r)
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	if err := proxy.WriteErrorResponse(w, proxy.HandleError(err)); err != nil {
		slog.ErrorContext(ctx, "failed to write error response", "error", err)
	}
}

func writeMethodNotAllowed(ctx context.Context, w http.ResponseWriter, method string, allowed string) {
	w.Header().Set("Allow", allowed)
	errResp := types.NewInvalidRequestError(
		fmt.Sprintf("Method %s not allowed. Use %s instead.", method, allowed),
		"method",
		"method_not_allowed",
	)
	if err := proxy.WriteJSONResponse(w, http.StatusMethodNotAllowed, errResp); err != nil {
		slog.ErrorContext(ctx, "failed to write error response", "error", err)
	}
}
