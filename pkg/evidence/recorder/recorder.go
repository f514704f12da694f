package recorder

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"mercator-hq/veil/pkg/config"
	"mercator-hq/veil/pkg/evidence"
)

var (
	// ErrBufferFull means the queue was full and the record was dropped.
	ErrBufferFull = errors.New("evidence buffer full")

	// ErrClosed means the record arrived after Close.
	ErrClosed = errors.New("evidence recorder closed")
)

const (
	defaultBuffer       = 1000
	defaultWriteTimeout = 5 * time.Second
)

// Config sizes the queue and bounds each storage write.
type Config struct {
	AsyncBuffer  int
	WriteTimeout time.Duration
}

func DefaultConfig() *Config {
	return &Config{AsyncBuffer: defaultBuffer, WriteTimeout: defaultWriteTimeout}
}

func FromConfig(cfg config.RecorderConfig) *Config {
	return &Config{AsyncBuffer: cfg.AsyncBuffer, WriteTimeout: cfg.WriteTimeout}
}

// Recorder queues evidence and writes it from one background goroutine.
// A slow or failing store never holds up a request: the queue is bounded
// and a full queue drops the record.
type Recorder struct {
	storage evidence.Storage
	config  *Config
	logger  *slog.Logger

	mu     sync.RWMutex // guards closed against sends on queue
	closed bool
	queue  chan *evidence.Record
	worker sync.WaitGroup

	written, dropped, failed atomic.Int64
}

// New starts the writer. Zero config fields take their defaults.
func New(storage evidence.Storage, cfg *Config) *Recorder {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.AsyncBuffer = cmp.Or(max(cfg.AsyncBuffer, 0), defaultBuffer)
	cfg.WriteTimeout = cmp.Or(max(cfg.WriteTimeout, 0), defaultWriteTimeout)

	r := &Recorder{
		storage: storage,
		config:  cfg,
		logger:  slog.Default().With("component", "evidence.recorder"),
		queue:   make(chan *evidence.Record, cfg.AsyncBuffer),
	}
	r.worker.Go(func() {
		for rec := range r.queue {
			r.write(rec)
		}
	})

	r.logger.Info("evidence recorder initialized",
		"async_buffer", cfg.AsyncBuffer,
		"write_timeout", cfg.WriteTimeout,
	)
	return r
}

// Record queues rec without blocking. A dropped record comes back as a
// *evidence.RecorderError wrapping ErrBufferFull or ErrClosed. A nil
// Recorder accepts and discards everything.
func (r *Recorder) Record(_ context.Context, rec *evidence.Record) error {
	if r == nil || rec == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	cause := ErrClosed
	if !r.closed {
		select {
		case r.queue <- rec:
			return nil
		default:
			cause = ErrBufferFull
			r.logger.Warn("evidence buffer full, dropping record",
				"record_id", rec.ID,
				"request_id", rec.RequestID,
				"channel_capacity", r.config.AsyncBuffer,
			)
		}
	}
	r.dropped.Add(1)
	return evidence.NewRecorderError(rec.ID, cause)
}

// Stats returns the written, dropped and failed counts so far.
func (r *Recorder) Stats() (written, dropped, failed int64) {
	return r.written.Load(), r.dropped.Load(), r.failed.Load()
}

// Close refuses new records, writes out what is queued and returns once the
// writer exits. Later calls do nothing.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	pending := len(r.queue)
	close(r.queue)
	r.mu.Unlock()

	r.logger.Info("draining evidence queue", "pending_count", pending)
	r.worker.Wait()

	w, d, f := r.Stats()
	r.logger.Info("evidence recorder stopped", "written", w, "dropped", d, "failed", f)
	return nil
}

func (r *Recorder) write(rec *evidence.Record) {
	timeout := r.config.WriteTimeout
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if rec.RecordedTime.IsZero() {
		rec.RecordedTime = time.Now().UTC()
	}

	start := time.Now()
	err := r.storage.Store(ctx, rec)
	elapsed := time.Since(start)

	log := r.logger.With("record_id", rec.ID, "request_id", rec.RequestID)
	switch {
	case err != nil:
		r.failed.Add(1)
		log.Error("failed to store evidence record", "error", err)
	case elapsed > timeout/2:
		r.written.Add(1)
		log.Warn("slow evidence write", "duration_ms", elapsed.Milliseconds(), "threshold_ms", (timeout / 2).Milliseconds())
	default:
		r.written.Add(1)
		log.Debug("evidence recorded", "status", rec.Status, "duration_ms", elapsed.Milliseconds())
	}
}
