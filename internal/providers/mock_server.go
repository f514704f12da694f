package providers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// MockServer stands in for an upstream provider. Each path serves a canned
// MockResponse; unknown paths get 404. Every request is recorded so tests
// can check exactly what left the gateway.
type MockServer struct {
	srv *httptest.Server

	mu    sync.Mutex
	paths map[string]MockResponse
	seen  []RecordedRequest
}

// MockResponse is a canned reply. Body may be a string, []byte or any
// value that encodes as JSON. StatusCode 0 means 200.
type MockResponse struct {
	StatusCode int
	Body       any
	Delay      time.Duration
	Headers    map[string]string
}

type RecordedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

func NewMockServer() *MockServer {
	ms := &MockServer{paths: map[string]MockResponse{}}
	ms.srv = httptest.NewServer(http.HandlerFunc(ms.serve))
	return ms
}

func (ms *MockServer) URL() string { return ms.srv.URL }
func (ms *MockServer) Close()      { ms.srv.Close() }

func (ms *MockServer) SetResponse(path string, r MockResponse) {
	ms.mu.Lock()
	ms.paths[path] = r
	ms.mu.Unlock()
}

func (ms *MockServer) LastRequest() (RecordedRequest, bool) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if n := len(ms.seen); n > 0 {
		return ms.seen[n-1], true
	}
	return RecordedRequest{}, false
}

// DecodeLastRequest unmarshals the last request body into v.
func (ms *MockServer) DecodeLastRequest(v any) error {
	last, ok := ms.LastRequest()
	if !ok {
		return errors.New("no request received")
	}
	return json.Unmarshal(last.Body, v)
}

func (ms *MockServer) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	ms.mu.Lock()
	ms.seen = append(ms.seen, RecordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Header: r.Header.Clone(),
		Body:   body,
	})
	resp, ok := ms.paths[r.URL.Path]
	ms.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	if resp.Delay > 0 {
		select {
		case <-time.After(resp.Delay):
		case <-r.Context().Done():
			return
		}
	}

	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(max(resp.StatusCode, http.StatusOK))

	switch b := resp.Body.(type) {
	case nil:
	case string:
		_, _ = io.WriteString(w, b)
	case []byte:
		_, _ = w.Write(b)
	default:
		_ = json.NewEncoder(w).Encode(b)
	}
}

// MockOpenAIResponse is a one-choice chat completion. Usage is 10+20.
func MockOpenAIResponse(content, model string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-123",
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   model,
		"choices": []any{map[string]any{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 20, "total_tokens": 30},
	}
}

// MockAnthropicResponse is a single text block message. Usage is 10+20.
func MockAnthropicResponse(content, model string) map[string]any {
	return map[string]any{
		"id":          "msg_123",
		"type":        "message",
		"role":        "assistant",
		"content":     []any{map[string]any{"type": "text", "text": content}},
		"model":       model,
		"stop_reason": "end_turn",
		"usage":       map[string]any{"input_tokens": 10, "output_tokens": 20},
	}
}

// MockGeminiResponse is a single candidate generateContent reply.
func MockGeminiResponse(content, model string) map[string]any {
	return map[string]any{
		"candidates": []any{map[string]any{
			"content":      map[string]any{"role": "model", "parts": []any{map[string]any{"text": content}}},
			"finishReason": "STOP",
		}},
		"usageMetadata": map[string]any{"promptTokenCount": 10, "candidatesTokenCount": 20, "totalTokenCount": 30},
		"modelVersion":  model,
	}
}

// MockOllamaResponse is a finished, non-streaming /api/chat reply.
func MockOllamaResponse(content, model string) map[string]any {
	return map[string]any{
		"model":             model,
		"created_at":        time.Now().UTC().Format(time.RFC3339Nano),
		"message":           map[string]any{"role": "assistant", "content": content},
		"done":              true,
		"done_reason":       "stop",
		"prompt_eval_count": 10,
		"eval_count":        20,
	}
}

func mockError(status int, msg string) MockResponse {
	return MockResponse{
		StatusCode: status,
		Body: map[string]any{"error": map[string]any{
			"message": msg,
			"type":    "invalid_request_error",
			"code":    status,
		}},
	}
}

// MockAuthError is a 401 with an OpenAI-style error body.
func MockAuthError() MockResponse { return mockError(http.StatusUnauthorized, "Invalid API key") }

// MockRateLimitError is a 429 carrying Retry-After in seconds.
func MockRateLimitError(retryAfter int) MockResponse {
	r := mockError(http.StatusTooManyRequests, "Rate limit exceeded")
	r.Headers = map[string]string{"Retry-After": strconv.Itoa(retryAfter)}
	return r
}
