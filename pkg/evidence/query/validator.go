package query

import (
	"errors"
	"fmt"

	"mercator-hq/veil/pkg/evidence"
)

const (
	// DefaultLimit applies when a query leaves Limit at zero.
	DefaultLimit = 100

	// MaxLimit caps a single page of results.
	MaxLimit = 10000
)

// ValidSortOrders lists the accepted SortOrder values.
var ValidSortOrders = map[string]bool{
	"asc":  true,
	"desc": true,
}

// Validate checks paging, ordering, the time window and the status filter.
func Validate(q *evidence.Query) error {
	if q == nil {
		return evidence.NewQueryError(q, errors.New("query is nil"))
	}
	if q.Limit < 0 {
		return evidence.NewQueryError(q, fmt.Errorf("limit must be >= 0, got %d", q.Limit))
	}
	if q.Limit > MaxLimit {
		return evidence.NewQueryError(q, fmt.Errorf("limit must be <= %d, got %d", MaxLimit, q.Limit))
	}
	if q.Offset < 0 {
		return evidence.NewQueryError(q, fmt.Errorf("offset must be >= 0, got %d", q.Offset))
	}
	if q.SortOrder != "" && !ValidSortOrders[q.SortOrder] {
		return evidence.NewQueryError(q, fmt.Errorf("invalid sort order: %s (must be 'asc' or 'desc')", q.SortOrder))
	}
	if q.StartTime != nil && q.EndTime != nil && q.StartTime.After(*q.EndTime) {
		return evidence.NewQueryError(q, errors.New("start_time must be before end_time"))
	}
	switch q.Status {
	case "", evidence.StatusSuccess, evidence.StatusError:
	default:
		return evidence.NewQueryError(q, fmt.Errorf("invalid status: %s (must be '%s' or '%s')",
			q.Status, evidence.StatusSuccess, evidence.StatusError))
	}
	return nil
}

// ApplyDefaults fills Limit and SortOrder.
func ApplyDefaults(q *evidence.Query) {
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	if q.SortOrder == "" {
		q.SortOrder = "desc"
	}
}
