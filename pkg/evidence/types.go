package evidence

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Record statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Record is the audit entry for one pipeline request. It carries counts,
// labels and timings only: never prompt text, completions, placeholders or
// mapping values. The session id is stored as a SHA-256 hash.
type Record struct {
	// Identity
	ID          string `json:"id"`           // UUID v4
	RequestID   string `json:"request_id"`   // From the HTTP layer, may be empty
	SessionHash string `json:"session_hash"` // SHA-256 hex of the session id
	UserID      string `json:"user_id"`      // Authenticated API key owner, may be empty

	// Timestamps
	RequestTime  time.Time `json:"request_time"`
	RecordedTime time.Time `json:"recorded_time"`

	// Routing
	Provider string `json:"provider"`
	Model    string `json:"model"`

	// Outcome
	Status     string `json:"status"`      // StatusSuccess or StatusError
	ErrorStage string `json:"error_stage"` // detection, tokenization or provider
	ErrorType  string `json:"error_type"`  // sanitized error category

	// Tokenization
	EntityCounts   map[string]int `json:"entity_counts"` // detected spans by entity type
	Redacted       int            `json:"redacted"`
	Kept           int            `json:"kept"`
	Placeholders   int            `json:"placeholders"`    // placeholders minted by this request
	SessionEntries int            `json:"session_entries"` // session mapping size after merge

	// Provider usage
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`

	// Latencies
	DetectLatency   time.Duration `json:"detect_latency"`
	ProviderLatency time.Duration `json:"provider_latency"`
	TotalLatency    time.Duration `json:"total_latency"`
}

// NewRecord starts a record for a request on sessionID.
func NewRecord(requestID, sessionID string, requestTime time.Time) *Record {
	return &Record{
		ID:           uuid.NewString(),
		RequestID:    requestID,
		SessionHash:  HashSession(sessionID),
		RequestTime:  requestTime,
		Status:       StatusSuccess,
		EntityCounts: map[string]int{},
	}
}

// HashSession returns the hex SHA-256 of a session id. Empty ids hash to "".
func HashSession(sessionID string) string {
	if sessionID == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(sessionID))
	return hex.EncodeToString(sum[:])
}

// Query filters evidence records.
type Query struct {
	StartTime   *time.Time `json:"start_time,omitempty"` // inclusive
	EndTime     *time.Time `json:"end_time,omitempty"`   // inclusive
	Provider    string     `json:"provider,omitempty"`
	Model       string     `json:"model,omitempty"`
	Status      string     `json:"status,omitempty"`
	SessionHash string     `json:"session_hash,omitempty"`

	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`

	// SortOrder is "asc" or "desc" by request time. Default: "desc".
	SortOrder string `json:"sort_order,omitempty"`
}

// Storage persists evidence records. Implementations must be safe for
// concurrent use.
type Storage interface {
	// Store persists a record.
	Store(ctx context.Context, record *Record) error

	// Query returns records matching q, newest first unless q.SortOrder is "asc".
	Query(ctx context.Context, q *Query) ([]*Record, error)

	// Count returns the number of records matching q.
	Count(ctx context.Context, q *Query) (int64, error)

	// Delete removes records matching q and returns how many were removed.
	Delete(ctx context.Context, q *Query) (int64, error)

	// Close releases resources held by the backend.
	Close() error
}
