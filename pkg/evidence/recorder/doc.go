// Package recorder writes evidence records asynchronously.
//
// The pipeline builds one evidence.Record per request and hands it to
// Record, which enqueues it on a bounded channel and returns at once. A
// single worker drains the channel into the storage backend. When the
// channel is full the record is dropped and counted; the request that
// produced it is never delayed.
//
// # Usage
//
//	rec := recorder.New(store, recorder.FromConfig(cfg.Evidence.Recorder))
//	defer rec.Close()
//
//	if err := rec.Record(ctx, record); err != nil {
//	    logger.Warn("evidence dropped", "error", err)
//	}
//
// Close stops intake, writes everything still queued and waits for the
// worker to exit.
package recorder
