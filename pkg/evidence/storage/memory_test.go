package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"mercator-hq/veil/pkg/config"
	"mercator-hq/veil/pkg/evidence"
)

func testRecord(id string, at time.Time) *evidence.Record {
	r := evidence.NewRecord("req-"+id, "session-"+id, at)
	r.ID = id
	r.Provider = "openai"
	r.Model = "gpt-4"
	r.EntityCounts = map[string]int{"PHONE_NUMBER": 1}
	r.Redacted = 1
	return r
}

func TestMemoryStorage_StoreAndQuery(t *testing.T) {
	s := NewMemoryStorage(0)
	ctx := context.Background()

	if err := s.Store(ctx, testRecord("a", time.Now())); err != nil {
		t.Fatalf("Store() failed: %v", err)
	}

	results, err := s.Query(ctx, nil)
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 record, got %d", len(results))
	}
	if results[0].ID != "a" {
		t.Errorf("expected ID 'a', got %q", results[0].ID)
	}
	if results[0].SessionHash != evidence.HashSession("session-a") {
		t.Errorf("session hash mismatch: %q", results[0].SessionHash)
	}
}

func TestMemoryStorage_QueryOrderingAndPagination(t *testing.T) {
	s := NewMemoryStorage(0)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		if err := s.Store(ctx, testRecord(fmt.Sprintf("r%d", i), base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("Store() failed: %v", err)
		}
	}

	desc, _ := s.Query(ctx, &evidence.Query{})
	if desc[0].ID != "r4" || desc[4].ID != "r0" {
		t.Errorf("default order should be newest first, got %s..%s", desc[0].ID, desc[4].ID)
	}

	asc, _ := s.Query(ctx, &evidence.Query{SortOrder: "asc"})
	if asc[0].ID != "r0" {
		t.Errorf("asc order should start with r0, got %s", asc[0].ID)
	}

	page, _ := s.Query(ctx, &evidence.Query{Limit: 2, Offset: 1})
	if len(page) != 2 || page[0].ID != "r3" || page[1].ID != "r2" {
		t.Errorf("unexpected page: %+v", page)
	}

	empty, _ := s.Query(ctx, &evidence.Query{Offset: 10})
	if len(empty) != 0 {
		t.Errorf("offset past end should return nothing, got %d", len(empty))
	}
}

func TestMemoryStorage_Filters(t *testing.T) {
	s := NewMemoryStorage(0)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	ok := testRecord("ok", base)
	failed := testRecord("failed", base.Add(time.Hour))
	failed.Status = evidence.StatusError
	failed.ErrorStage = "provider"
	failed.Provider = "anthropic"

	s.Store(ctx, ok)
	s.Store(ctx, failed)

	tests := []struct {
		name  string
		query evidence.Query
		want  int64
	}{
		{"all", evidence.Query{}, 2},
		{"provider", evidence.Query{Provider: "anthropic"}, 1},
		{"status", evidence.Query{Status: evidence.StatusSuccess}, 1},
		{"session", evidence.Query{SessionHash: evidence.HashSession("session-ok")}, 1},
		{"model", evidence.Query{Model: "gpt-3.5"}, 0},
		{"start", evidence.Query{StartTime: ptr(base.Add(time.Minute))}, 1},
		{"end", evidence.Query{EndTime: ptr(base.Add(time.Minute))}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Count(ctx, &tt.query)
			if err != nil {
				t.Fatalf("Count() failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Count() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMemoryStorage_Delete(t *testing.T) {
	s := NewMemoryStorage(0)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		s.Store(ctx, testRecord(fmt.Sprintf("r%d", i), base.AddDate(0, 0, i)))
	}

	deleted, err := s.Delete(ctx, &evidence.Query{EndTime: ptr(base.AddDate(0, 0, 1))})
	if err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("expected 2 deleted, got %d", deleted)
	}
	if s.Size() != 2 {
		t.Errorf("expected 2 remaining, got %d", s.Size())
	}
}

func TestMemoryStorage_Eviction(t *testing.T) {
	s := NewMemoryStorage(3)
	ctx := context.Background()
	base := time.Now()

	for i := 0; i < 5; i++ {
		s.Store(ctx, testRecord(fmt.Sprintf("r%d", i), base.Add(time.Duration(i)*time.Second)))
	}

	if s.Size() != 3 {
		t.Fatalf("expected 3 records, got %d", s.Size())
	}
	results, _ := s.Query(ctx, &evidence.Query{SortOrder: "asc"})
	if results[0].ID != "r2" {
		t.Errorf("oldest records should be evicted, first is %s", results[0].ID)
	}
}

func TestMemoryStorage_RecordIsolation(t *testing.T) {
	s := NewMemoryStorage(0)
	ctx := context.Background()

	r := testRecord("a", time.Now())
	s.Store(ctx, r)
	r.EntityCounts["PHONE_NUMBER"] = 99

	results, _ := s.Query(ctx, nil)
	results[0].EntityCounts["PHONE_NUMBER"] = 42

	again, _ := s.Query(ctx, nil)
	if again[0].EntityCounts["PHONE_NUMBER"] != 1 {
		t.Errorf("stored record was mutated: %v", again[0].EntityCounts)
	}
}

func TestMemoryStorage_Close(t *testing.T) {
	s := NewMemoryStorage(0)
	s.Store(context.Background(), testRecord("a", time.Now()))

	if err := s.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if s.Size() != 0 {
		t.Errorf("expected empty storage after Close, got %d", s.Size())
	}
}

func TestMemoryStorage_Concurrency(t *testing.T) {
	s := NewMemoryStorage(0)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Store(ctx, testRecord(fmt.Sprintf("r%d", i), time.Now()))
			s.Query(ctx, &evidence.Query{Limit: 5})
		}(i)
	}
	wg.Wait()

	if s.Size() != 20 {
		t.Errorf("expected 20 records, got %d", s.Size())
	}
}

func TestNew(t *testing.T) {
	mem, err := New(config.EvidenceConfig{Backend: BackendMemory, Memory: config.MemoryConfig{MaxRecords: 5}})
	if err != nil {
		t.Fatalf("New(memory) failed: %v", err)
	}
	if _, ok := mem.(*MemoryStorage); !ok {
		t.Errorf("expected *MemoryStorage, got %T", mem)
	}

	sq, err := New(config.EvidenceConfig{
		Backend: BackendSQLite,
		SQLite:  config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "nested", "evidence.db")},
	})
	if err != nil {
		t.Fatalf("New(sqlite) failed: %v", err)
	}
	defer sq.Close()
	if _, ok := sq.(*SQLiteStorage); !ok {
		t.Errorf("expected *SQLiteStorage, got %T", sq)
	}

	if _, err := New(config.EvidenceConfig{Backend: "postgres"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func ptr(t time.Time) *time.Time { return &t }
