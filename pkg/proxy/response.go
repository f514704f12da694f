package proxy

import (
	"encoding/json"
	"fmt"
	"net/http"

	"mercator-hq/veil/pkg/detector"
	"mercator-hq/veil/pkg/pipeline"
	"mercator-hq/veil/pkg/proxy/types"
)

// FormatChatResponse converts a pipeline result to the chat response body.
func FormatChatResponse(res *pipeline.Result) *types.ChatResponse {
	resp := &types.ChatResponse{
		OriginalPrompt:       res.OriginalPrompt,
		DeidentifiedPrompt:   res.SanitizedPrompt,
		LLMResponse:          res.RawCompletion,
		ReidentifiedResponse: res.ReconstructedCompletion,
		DetectedEntities:     FormatEntities(res.DetectedEntities),
		TokensUsed: types.TokensUsed{
			Placeholders: res.TokenCounts.Placeholders,
			Session:      res.TokenCounts.Session,
			Redacted:     res.TokenCounts.Redacted,
			Kept:         res.TokenCounts.Kept,
		},
		SessionID: res.SessionID,
		Model:     res.Model,
		Provider:  res.Provider,
	}
	if res.Usage.TotalTokens > 0 {
		resp.Usage = &types.Usage{
			PromptTokens:     res.Usage.PromptTokens,
			CompletionTokens: res.Usage.CompletionTokens,
			TotalTokens:      res.Usage.TotalTokens,
		}
	}
	return resp
}

// FormatDetectResponse converts detected spans to the detect response body.
func FormatDetectResponse(spans []detector.Span) *types.DetectResponse {
	entities := FormatEntities(spans)
	return &types.DetectResponse{Entities: entities, Count: len(entities)}
}

// FormatEntities converts spans to their wire form. The result is never
// nil so it encodes as [].
func FormatEntities(spans []detector.Span) []types.Entity {
	out := make([]types.Entity, 0, len(spans))
	for _, s := range spans {
		out = append(out, types.Entity{
			EntityType: s.Type,
			Start:      s.Start,
			End:        s.End,
			Score:      s.Score,
			Text:       s.Text,
		})
	}
	return out
}

// WriteJSONResponse writes a JSON response to the HTTP response writer.
func WriteJSONResponse(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON response: %w", err)
	}

	return nil
}

// WriteErrorResponse writes an error response with the status code implied
// by its type.
func WriteErrorResponse(w http.ResponseWriter, errResp *types.ErrorResponse) error {
	return WriteJSONResponse(w, errResp.Error.HTTPStatusCode(), errResp)
}
