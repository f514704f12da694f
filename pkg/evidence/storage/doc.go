// Package storage provides backends for evidence records.
//
// Two backends implement evidence.Storage:
//
//   - SQLite: durable single-node storage. Either the pure Go driver
//     (modernc.org/sqlite, driver name "sqlite") or the cgo driver
//     (github.com/mattn/go-sqlite3, driver name "sqlite3") can be used.
//   - Memory: bounded in-process storage for tests and ephemeral runs.
//
// Times and durations are stored as integer nanoseconds so range queries
// behave the same under both drivers.
//
// # Usage
//
//	store, err := storage.New(cfg.Evidence)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	records, err := store.Query(ctx, &evidence.Query{
//	    Status: evidence.StatusError,
//	    Limit:  50,
//	})
package storage
