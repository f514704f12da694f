package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers "sqlite3" (cgo)
	_ "modernc.org/sqlite"          // registers "sqlite" (pure Go)

	"mercator-hq/veil/pkg/evidence"
)

// SQLite driver names.
const (
	DriverModernc = "sqlite"
	DriverMattn   = "sqlite3"
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// Driver is DriverModernc (default) or DriverMattn.
	Driver string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging.
	WALMode bool

	// BusyTimeout is how long to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/evidence.db",
		Driver:       DriverModernc,
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements evidence.Storage on SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage opens the database, creating the parent directory and
// schema as needed.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if config.Driver == "" {
		config.Driver = DriverModernc
	}
	if config.Driver != DriverModernc && config.Driver != DriverMattn {
		return nil, evidence.NewStorageError("sqlite", "open", fmt.Errorf("unknown driver %q", config.Driver))
	}
	if config.MaxOpenConns <= 0 {
		config.MaxOpenConns = 10
	}
	if config.MaxIdleConns <= 0 {
		config.MaxIdleConns = 5
	}
	if config.BusyTimeout <= 0 {
		config.BusyTimeout = 5 * time.Second
	}

	logger := slog.Default().With("component", "evidence.storage.sqlite")

	if dir := filepath.Dir(config.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, evidence.NewStorageError("sqlite", "mkdir", err)
		}
	}

	db, err := sql.Open(config.Driver, dataSourceName(config))
	if err != nil {
		return nil, evidence.NewStorageError("sqlite", "open", err)
	}
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStorage{db: db, config: config, logger: logger}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite storage initialized",
		"path", config.Path,
		"driver", config.Driver,
		"wal_mode", config.WALMode,
	)
	return s, nil
}

func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return evidence.NewStorageError("sqlite", "enable_wal", err)
		}
	}

	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds())); err != nil {
		return evidence.NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return evidence.NewStorageError("sqlite", "create_schema", err)
	}
	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return evidence.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return evidence.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return evidence.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}
	return nil
}

// Store persists an evidence record.
func (s *SQLiteStorage) Store(ctx context.Context, record *evidence.Record) error {
	counts, err := json.Marshal(record.EntityCounts)
	if err != nil {
		return evidence.NewStorageError("sqlite", "store", err)
	}

	query := "INSERT INTO evidence (" + evidenceColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
	_, err = s.db.ExecContext(ctx, query,
		record.ID, record.RequestID, record.SessionHash, record.UserID,
		record.RequestTime.UnixNano(), record.RecordedTime.UnixNano(),
		record.Provider, record.Model,
		record.Status, nullString(record.ErrorStage), nullString(record.ErrorType),
		string(counts), record.Redacted, record.Kept, record.Placeholders, record.SessionEntries,
		record.PromptTokens, record.CompletionTokens, record.TotalTokens,
		int64(record.DetectLatency), int64(record.ProviderLatency), int64(record.TotalLatency),
	)
	if err != nil {
		return evidence.NewStorageError("sqlite", "store", err)
	}
	return nil
}

// Query retrieves evidence records matching q.
func (s *SQLiteStorage) Query(ctx context.Context, q *evidence.Query) ([]*evidence.Record, error) {
	if q == nil {
		q = &evidence.Query{}
	}
	where, args := buildWhereClause(q)

	sqlQuery := "SELECT " + evidenceColumns + " FROM evidence" + where
	order := "DESC"
	if strings.EqualFold(q.SortOrder, "asc") {
		order = "ASC"
	}
	sqlQuery += " ORDER BY request_time " + order + ", id " + order

	limit := -1
	if q.Limit > 0 {
		limit = q.Limit
	}
	sqlQuery += fmt.Sprintf(" LIMIT %d", limit)
	if q.Offset > 0 {
		sqlQuery += fmt.Sprintf(" OFFSET %d", q.Offset)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, evidence.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	records := []*evidence.Record{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, evidence.NewStorageError("sqlite", "scan", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, evidence.NewStorageError("sqlite", "query", err)
	}
	return records, nil
}

// Count returns the number of evidence records matching q.
func (s *SQLiteStorage) Count(ctx context.Context, q *evidence.Query) (int64, error) {
	if q == nil {
		q = &evidence.Query{}
	}
	where, args := buildWhereClause(q)

	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM evidence"+where, args...).Scan(&count); err != nil {
		return 0, evidence.NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// Delete removes evidence records matching q.
func (s *SQLiteStorage) Delete(ctx context.Context, q *evidence.Query) (int64, error) {
	if q == nil {
		q = &evidence.Query{}
	}
	where, args := buildWhereClause(q)

	result, err := s.db.ExecContext(ctx, "DELETE FROM evidence"+where, args...)
	if err != nil {
		return 0, evidence.NewStorageError("sqlite", "delete", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, evidence.NewStorageError("sqlite", "delete", err)
	}
	return count, nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return evidence.NewStorageError("sqlite", "close", err)
	}
	s.logger.Info("SQLite storage closed")
	return nil
}

// Ping checks the database connection.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// buildWhereClause returns " WHERE ..." (or "") and its arguments.
func buildWhereClause(q *evidence.Query) (string, []any) {
	var conditions []string
	var args []any

	if q.StartTime != nil {
		conditions = append(conditions, "request_time >= ?")
		args = append(args, q.StartTime.UnixNano())
	}
	if q.EndTime != nil {
		conditions = append(conditions, "request_time <= ?")
		args = append(args, q.EndTime.UnixNano())
	}
	if q.Provider != "" {
		conditions = append(conditions, "provider = ?")
		args = append(args, q.Provider)
	}
	if q.Model != "" {
		conditions = append(conditions, "model = ?")
		args = append(args, q.Model)
	}
	if q.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, q.Status)
	}
	if q.SessionHash != "" {
		conditions = append(conditions, "session_hash = ?")
		args = append(args, q.SessionHash)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func scanRecord(rows *sql.Rows) (*evidence.Record, error) {
	var r evidence.Record
	var requestID, sessionHash, userID, model, errorStage, errorType, counts sql.NullString
	var requestTime, recordedTime int64
	var promptTokens, completion, total, detectLatency, providerLat, totalLat sql.NullInt64

	err := rows.Scan(
		&r.ID, &requestID, &sessionHash, &userID,
		&requestTime, &recordedTime,
		&r.Provider, &model,
		&r.Status, &errorStage, &errorType,
		&counts, &r.Redacted, &r.Kept, &r.Placeholders, &r.SessionEntries,
		&promptTokens, &completion, &total,
		&detectLatency, &providerLat, &totalLat,
	)
	if err != nil {
		return nil, err
	}

	r.RequestID = requestID.String
	r.SessionHash = sessionHash.String
	r.UserID = userID.String
	r.Model = model.String
	r.ErrorStage = errorStage.String
	r.ErrorType = errorType.String
	r.RequestTime = time.Unix(0, requestTime).UTC()
	r.RecordedTime = time.Unix(0, recordedTime).UTC()
	r.PromptTokens = int(promptTokens.Int64)
	r.CompletionTokens = int(completion.Int64)
	r.TotalTokens = int(total.Int64)
	r.DetectLatency = time.Duration(detectLatency.Int64)
	r.ProviderLatency = time.Duration(providerLat.Int64)
	r.TotalLatency = time.Duration(totalLat.Int64)

	if counts.Valid && counts.String != "" {
		if err := json.Unmarshal([]byte(counts.String), &r.EntityCounts); err != nil {
			return nil, err
		}
	}
	if r.EntityCounts == nil {
		r.EntityCounts = map[string]int{}
	}
	return &r, nil
}

// dataSourceName sets busy_timeout for every pooled connection.
func dataSourceName(config *SQLiteConfig) string {
	ms := config.BusyTimeout.Milliseconds()
	if config.Driver == DriverMattn {
		return fmt.Sprintf("file:%s?_busy_timeout=%d", config.Path, ms)
	}
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)", config.Path, ms)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
