package presidio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"mercator-hq/veil/pkg/detector"
	"mercator-hq/veil/pkg/telemetry/tracing"
)

const (
	// DefaultTimeout bounds a single analyze call.
	DefaultTimeout = 10 * time.Second

	// DefaultLanguage is sent when Config.Language is empty.
	DefaultLanguage = "en"
)

// Config configures a Client.
type Config struct {
	// BaseURL is the analyzer root, e.g. "http://presidio-analyzer:3000".
	BaseURL string

	// Language is the analysis language. Default: "en".
	Language string

	// ScoreThreshold drops results below this score on the server side.
	ScoreThreshold float64

	// Timeout bounds each request. Default: 10s.
	Timeout time.Duration

	// HTTPClient overrides the transport.
	HTTPClient *http.Client
}

// Client calls a Presidio analyzer's /analyze endpoint.
type Client struct {
	url       string
	language  string
	threshold float64
	http      *http.Client
}

// New creates a Client. BaseURL is required.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("presidio: base URL is required")
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		url:       strings.TrimRight(cfg.BaseURL, "/") + "/analyze",
		language:  cfg.Language,
		threshold: cfg.ScoreThreshold,
		http:      hc,
	}, nil
}

type analyzeRequest struct {
	Text           string   `json:"text"`
	Language       string   `json:"language"`
	Entities       []string `json:"entities,omitempty"`
	ScoreThreshold float64  `json:"score_threshold,omitempty"`
}

type analyzeResult struct {
	EntityType string  `json:"entity_type"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Score      float64 `json:"score"`
}

// StatusError is returned for non-2xx analyzer responses.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("presidio: analyzer returned status %d", e.StatusCode)
}

// Detect implements detector.Detector. Presidio reports offsets in code
// points; they are converted to byte offsets before returning. Any transport
// or decoding failure is returned as an error so the caller can fail closed.
func (c *Client) Detect(ctx context.Context, text string, entities []string) ([]detector.Span, error) {
	body, err := json.Marshal(analyzeRequest{
		Text:           text,
		Language:       c.language,
		Entities:       entities,
		ScoreThreshold: c.threshold,
	})
	if err != nil {
		return nil, fmt.Errorf("presidio: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("presidio: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	tracing.Inject(ctx, req.Header)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("presidio: analyze: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	var results []analyzeResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("presidio: decode: %w", err)
	}

	offsets := runeOffsets(text)
	spans := make([]detector.Span, 0, len(results))
	for _, r := range results {
		if r.Start < 0 || r.End > len(offsets)-1 || r.Start >= r.End {
			return nil, fmt.Errorf("presidio: result %s [%d:%d] outside text", r.EntityType, r.Start, r.End)
		}
		start, end := offsets[r.Start], offsets[r.End]
		spans = append(spans, detector.Span{
			Type:  r.EntityType,
			Start: start,
			End:   end,
			Score: r.Score,
			Text:  text[start:end],
		})
	}
	return detector.FilterEntities(spans, entities), nil
}

// Health calls the analyzer's /health endpoint.
func (c *Client) Health(ctx context.Context) error {
	url := strings.TrimSuffix(c.url, "/analyze") + "/health"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("presidio: health: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &StatusError{StatusCode: resp.StatusCode}
	}
	return nil
}

// runeOffsets maps each code point index (and the end position) to a byte
// offset in text.
func runeOffsets(text string) []int {
	offsets := make([]int, 0, utf8.RuneCountInString(text)+1)
	for i := range text {
		offsets = append(offsets, i)
	}
	return append(offsets, len(text))
}
