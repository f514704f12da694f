package storage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"mercator-hq/veil/pkg/evidence"
)

// MemoryStorage keeps evidence records in process memory. Once maxRecords
// is reached the oldest stored record is evicted.
type MemoryStorage struct {
	records    map[string]*evidence.Record
	order      []string // insertion order, oldest first
	maxRecords int
	mu         sync.RWMutex
}

// NewMemoryStorage creates an in-memory backend. maxRecords <= 0 is
// unlimited.
func NewMemoryStorage(maxRecords int) *MemoryStorage {
	return &MemoryStorage{
		records:    make(map[string]*evidence.Record),
		maxRecords: maxRecords,
	}
}

// Store saves a copy of record.
func (s *MemoryStorage) Store(ctx context.Context, record *evidence.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[record.ID]; !exists {
		s.order = append(s.order, record.ID)
	}
	s.records[record.ID] = copyRecord(record)

	for s.maxRecords > 0 && len(s.order) > s.maxRecords {
		delete(s.records, s.order[0])
		s.order = s.order[1:]
	}
	return nil
}

// Query returns copies of the records matching q.
func (s *MemoryStorage) Query(ctx context.Context, q *evidence.Query) ([]*evidence.Record, error) {
	if q == nil {
		q = &evidence.Query{}
	}

	s.mu.RLock()
	results := []*evidence.Record{}
	for _, id := range s.order {
		if record := s.records[id]; matchesQuery(record, q) {
			results = append(results, copyRecord(record))
		}
	}
	s.mu.RUnlock()

	asc := strings.EqualFold(q.SortOrder, "asc")
	sort.SliceStable(results, func(i, j int) bool {
		if asc {
			return results[i].RequestTime.Before(results[j].RequestTime)
		}
		return results[i].RequestTime.After(results[j].RequestTime)
	})

	if q.Offset >= len(results) {
		return []*evidence.Record{}, nil
	}
	results = results[q.Offset:]
	if q.Limit > 0 && q.Limit < len(results) {
		results = results[:q.Limit]
	}
	return results, nil
}

// Count returns the number of records matching q.
func (s *MemoryStorage) Count(ctx context.Context, q *evidence.Query) (int64, error) {
	if q == nil {
		q = &evidence.Query{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, record := range s.records {
		if matchesQuery(record, q) {
			count++
		}
	}
	return count, nil
}

// Delete removes records matching q.
func (s *MemoryStorage) Delete(ctx context.Context, q *evidence.Query) (int64, error) {
	if q == nil {
		q = &evidence.Query{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.order[:0]
	var deleted int64
	for _, id := range s.order {
		if matchesQuery(s.records[id], q) {
			delete(s.records, id)
			deleted++
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return deleted, nil
}

// Close drops all records.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*evidence.Record)
	s.order = nil
	return nil
}

// Size returns the number of stored records.
func (s *MemoryStorage) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func matchesQuery(record *evidence.Record, q *evidence.Query) bool {
	if q.StartTime != nil && record.RequestTime.Before(*q.StartTime) {
		return false
	}
	if q.EndTime != nil && record.RequestTime.After(*q.EndTime) {
		return false
	}
	if q.Provider != "" && record.Provider != q.Provider {
		return false
	}
	if q.Model != "" && record.Model != q.Model {
		return false
	}
	if q.Status != "" && record.Status != q.Status {
		return false
	}
	if q.SessionHash != "" && record.SessionHash != q.SessionHash {
		return false
	}
	return true
}

func copyRecord(r *evidence.Record) *evidence.Record {
	c := *r
	c.EntityCounts = make(map[string]int, len(r.EntityCounts))
	for k, v := range r.EntityCounts {
		c.EntityCounts[k] = v
	}
	return &c
}
