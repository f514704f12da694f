package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mercator-hq/veil/pkg/detector"
	"mercator-hq/veil/pkg/pipeline"
	"mercator-hq/veil/pkg/providers"
	"mercator-hq/veil/pkg/proxy/types"
	"mercator-hq/veil/pkg/tokenize"
)

func TestFormatChatResponse(t *testing.T) {
	res := &pipeline.Result{
		OriginalPrompt:          "Call 555-123-4567",
		SanitizedPrompt:         "Call <PHONE_NUMBER_1>",
		RawCompletion:           "Calling <PHONE_NUMBER_1>",
		ReconstructedCompletion: "Calling 555-123-4567",
		DetectedEntities: []detector.Span{
			{Type: detector.EntityPhoneNumber, Start: 5, End: 17, Score: 0.75, Text: "555-123-4567"},
		},
		TokenCounts: pipeline.TokenCounts{Placeholders: 1, Session: 1, Redacted: 1},
		SessionID:   "s-1",
		Model:       "gpt-4",
		Provider:    "echo",
	}

	got := FormatChatResponse(res)

	if got.DeidentifiedPrompt != res.SanitizedPrompt {
		t.Errorf("DeidentifiedPrompt = %q", got.DeidentifiedPrompt)
	}
	if got.LLMResponse != res.RawCompletion || got.ReidentifiedResponse != res.ReconstructedCompletion {
		t.Errorf("completion fields = %q / %q", got.LLMResponse, got.ReidentifiedResponse)
	}
	if len(got.DetectedEntities) != 1 || got.DetectedEntities[0].EntityType != detector.EntityPhoneNumber {
		t.Errorf("DetectedEntities = %+v", got.DetectedEntities)
	}
	if got.TokensUsed.Placeholders != 1 || got.TokensUsed.Session != 1 {
		t.Errorf("TokensUsed = %+v", got.TokensUsed)
	}
	if got.Usage != nil {
		t.Errorf("Usage = %+v, want nil without provider usage", got.Usage)
	}

	data, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	for _, key := range []string{
		`"original_prompt"`, `"deidentified_prompt"`, `"llm_response"`,
		`"reidentified_response"`, `"detected_entities"`, `"tokens_used"`, `"session_id"`,
	} {
		if !strings.Contains(string(data), key) {
			t.Errorf("response JSON missing %s: %s", key, data)
		}
	}
}

func TestFormatChatResponse_Usage(t *testing.T) {
	res := &pipeline.Result{Usage: providers.TokenUsage{PromptTokens: 3, CompletionTokens: 4, TotalTokens: 7}}
	got := FormatChatResponse(res)
	if got.Usage == nil || got.Usage.TotalTokens != 7 {
		t.Errorf("Usage = %+v", got.Usage)
	}
}

func TestFormatDetectResponse(t *testing.T) {
	got := FormatDetectResponse(nil)
	if got.Entities == nil || got.Count != 0 {
		t.Errorf("empty response = %+v", got)
	}

	data, _ := json.Marshal(got)
	if !strings.Contains(string(data), `"entities":[]`) {
		t.Errorf("entities should encode as []: %s", data)
	}

	got = FormatDetectResponse([]detector.Span{
		{Type: detector.EntitySSN, Start: 4, End: 15, Score: 0.85, Text: "123-45-6789"},
		{Type: detector.EntityAge, Start: 20, End: 22, Score: 0.6, Text: "95"},
	})
	if got.Count != 2 || got.Entities[1].Text != "95" {
		t.Errorf("response = %+v", got)
	}
}

func TestWriteJSONResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	if err := WriteJSONResponse(rec, http.StatusCreated, map[string]string{"status": "ok"}); err != nil {
		t.Fatalf("WriteJSONResponse() error = %v", err)
	}

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil || body["status"] != "ok" {
		t.Errorf("body = %v, err = %v", body, err)
	}
}

func TestWriteErrorResponse(t *testing.T) {
	tests := []struct {
		name       string
		errResp    *types.ErrorResponse
		wantStatus int
	}{
		{"invalid request", types.NewInvalidRequestError("bad", "prompt", types.CodeMissingField), http.StatusBadRequest},
		{"server error", types.NewServerError("boom"), http.StatusInternalServerError},
		{"bad gateway", types.NewBadGatewayError("upstream"), http.StatusBadGateway},
		{"unavailable", types.NewServiceUnavailableError("down"), http.StatusServiceUnavailable},
		{"timeout", types.NewGatewayTimeoutError("slow"), http.StatusGatewayTimeout},
		{"unknown type", types.NewErrorResponse("x", "mystery", "", ""), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			if err := WriteErrorResponse(rec, tt.errResp); err != nil {
				t.Fatalf("WriteErrorResponse() error = %v", err)
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "request error",
			err:        &RequestError{Message: "bad", Code: types.CodeInvalidJSON, Param: "body"},
			wantStatus: http.StatusBadRequest,
			wantCode:   types.CodeInvalidJSON,
		},
		{
			name:       "empty prompt",
			err:        &pipeline.Failure{Stage: pipeline.StageDetection, Cause: pipeline.ErrEmptyPrompt},
			wantStatus: http.StatusBadRequest,
			wantCode:   types.CodeMissingField,
		},
		{
			name:       "detector down",
			err:        &pipeline.Failure{Stage: pipeline.StageDetection, Cause: errors.New("connection refused")},
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   types.CodeDetectionFailed,
		},
		{
			name:       "detector timeout",
			err:        &pipeline.Failure{Stage: pipeline.StageDetection, Cause: context.DeadlineExceeded},
			wantStatus: http.StatusGatewayTimeout,
			wantCode:   types.CodeDetectionFailed,
		},
		{
			name:       "invalid span",
			err:        &pipeline.Failure{Stage: pipeline.StageTokenization, Cause: &tokenize.InvalidSpanError{Start: 4, End: 2}},
			wantStatus: http.StatusInternalServerError,
			wantCode:   types.CodeTokenizationFailed,
		},
		{
			name:       "provider rate limit",
			err:        &pipeline.Failure{Stage: pipeline.StageProvider, Cause: &providers.RateLimitError{Provider: "openai"}},
			wantStatus: http.StatusTooManyRequests,
			wantCode:   "provider_rate_limited",
		},
		{
			name:       "provider timeout",
			err:        &pipeline.Failure{Stage: pipeline.StageProvider, Cause: fmt.Errorf("send: %w", context.DeadlineExceeded)},
			wantStatus: http.StatusGatewayTimeout,
			wantCode:   types.CodeProviderTimeout,
		},
		{
			name:       "provider status",
			err:        &pipeline.Failure{Stage: pipeline.StageProvider, Cause: &providers.ProviderError{Provider: "openai", StatusCode: 500}},
			wantStatus: http.StatusBadGateway,
			wantCode:   types.CodeProviderError,
		},
		{
			name:       "provider unreachable",
			err:        &pipeline.Failure{Stage: pipeline.StageProvider, Cause: errors.New("dial tcp: refused")},
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   types.CodeProviderUnavailable,
		},
		{
			name:       "unknown",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   types.CodeInternalError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HandleError(tt.err)
			if status := got.Error.HTTPStatusCode(); status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}
			if got.Error.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", got.Error.Code, tt.wantCode)
			}
		})
	}
}

func TestHandleError_NoSensitiveText(t *testing.T) {
	cause := &providers.ProviderError{Provider: "openai", StatusCode: 400, Message: "bad prompt: Jane Doe 123-45-6789"}
	got := HandleError(&pipeline.Failure{Stage: pipeline.StageProvider, SessionID: "s", Cause: cause})

	if strings.Contains(got.Error.Message, "Jane") || strings.Contains(got.Error.Message, "123-45-6789") {
		t.Errorf("message leaks provider body: %q", got.Error.Message)
	}
	if got.Error.Message != "provider failed: upstream_status" {
		t.Errorf("message = %q", got.Error.Message)
	}
}
