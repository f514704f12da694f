package evidence

import "fmt"

// Each error below wraps the failure that caused it, so errors.Is and
// errors.As see through to driver, I/O and context errors.

// StorageError is a failed backend operation.
type StorageError struct {
	Backend   string // "memory" or "sqlite"
	Operation string // "store", "query", "delete", ...
	Cause     error
}

func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{Backend: backend, Operation: operation, Cause: cause}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("evidence %s %s: %v", e.Backend, e.Operation, e.Cause)
}

func (e *StorageError) Unwrap() error { return e.Cause }

// RecorderError is a record the async recorder did not accept.
type RecorderError struct {
	RecordID string
	Cause    error
}

func NewRecorderError(recordID string, cause error) *RecorderError {
	return &RecorderError{RecordID: recordID, Cause: cause}
}

func (e *RecorderError) Error() string {
	if e.RecordID == "" {
		return fmt.Sprintf("evidence record not written: %v", e.Cause)
	}
	return fmt.Sprintf("evidence record %s not written: %v", e.RecordID, e.Cause)
}

func (e *RecorderError) Unwrap() error { return e.Cause }

// RetentionError is a prune that failed.
type RetentionError struct {
	RetentionDays int
	Cause         error
}

func NewRetentionError(days int, cause error) *RetentionError {
	return &RetentionError{RetentionDays: days, Cause: cause}
}

func (e *RetentionError) Error() string {
	return fmt.Sprintf("evidence pruning (%d day retention): %v", e.RetentionDays, e.Cause)
}

func (e *RetentionError) Unwrap() error { return e.Cause }

// QueryError is a query rejected before it reached storage.
type QueryError struct {
	Query *Query
	Cause error
}

func NewQueryError(q *Query, cause error) *QueryError {
	return &QueryError{Query: q, Cause: cause}
}

func (e *QueryError) Error() string { return fmt.Sprintf("invalid evidence query: %v", e.Cause) }

func (e *QueryError) Unwrap() error { return e.Cause }

// ExportError is a write failure part way through an export. RecordCount
// is how many records were written before it.
type ExportError struct {
	Format      string
	RecordCount int
	Cause       error
}

func NewExportError(format string, written int, cause error) *ExportError {
	return &ExportError{Format: format, RecordCount: written, Cause: cause}
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("evidence %s export failed after %d records: %v", e.Format, e.RecordCount, e.Cause)
}

func (e *ExportError) Unwrap() error { return e.Cause }
