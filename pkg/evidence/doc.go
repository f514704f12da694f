// Package evidence keeps an audit trail of tokenization pipeline requests.
//
// # Architecture
//
//  1. Record - one entry per request: counts, labels, timings
//  2. Storage - memory or SQLite backend (storage package)
//  3. Recorder - asynchronous buffered writer (recorder package)
//  4. Retention - cron-scheduled pruning by age (retention package)
//
// # What Is Recorded
//
// A Record never holds prompt text, completions, placeholders or mapping
// values. The session id is reduced to a SHA-256 hash so requests from one
// conversation can be correlated without storing the id itself.
//
//   - entity counts by type, redacted and kept totals
//   - placeholders minted and the session mapping size after merge
//   - provider, model and token usage
//   - status, failing stage and sanitized error category
//   - detection, provider and total latency
//
// # Basic Usage
//
//	store, err := storage.New(cfg.Evidence)
//	if err != nil {
//		return err
//	}
//	rec := recorder.New(store, recorder.FromConfig(cfg.Evidence.Recorder))
//	defer rec.Close()
//
//	r := evidence.NewRecord(requestID, sessionID, time.Now())
//	r.Provider = "echo"
//	rec.Record(ctx, r)
package evidence
