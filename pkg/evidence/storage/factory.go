package storage

import (
	"fmt"

	"mercator-hq/veil/pkg/config"
	"mercator-hq/veil/pkg/evidence"
)

// Backend names.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// New opens the backend selected by cfg.Backend.
func New(cfg config.EvidenceConfig) (evidence.Storage, error) {
	switch cfg.Backend {
	case BackendMemory:
		return NewMemoryStorage(cfg.Memory.MaxRecords), nil
	case BackendSQLite, "":
		return NewSQLiteStorage(&SQLiteConfig{
			Path:         cfg.SQLite.Path,
			Driver:       cfg.SQLite.Driver,
			MaxOpenConns: cfg.SQLite.MaxOpenConns,
			MaxIdleConns: cfg.SQLite.MaxIdleConns,
			WALMode:      cfg.SQLite.WALMode,
			BusyTimeout:  cfg.SQLite.BusyTimeout,
		})
	default:
		return nil, evidence.NewStorageError(cfg.Backend, "open", fmt.Errorf("unknown evidence backend %q", cfg.Backend))
	}
}
