package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs a Pruner on its cron schedule. Overlapping runs are
// skipped rather than queued.
type Scheduler struct {
	pruner *Pruner
	logger *slog.Logger

	mu   sync.Mutex
	cron *cron.Cron // nil while idle
}

func NewScheduler(pruner *Pruner) *Scheduler {
	return &Scheduler{
		pruner: pruner,
		logger: slog.Default().With("component", "evidence.scheduler"),
	}
}

// Start schedules pruning with a standard five-field expression or a
// descriptor such as "@daily". A blank schedule, or retention that keeps
// records forever, leaves the scheduler idle. The scheduler stops itself
// when ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}

	cfg := s.pruner.config
	if cfg.Schedule == "" || cfg.RetentionDays <= 0 {
		s.logger.Info("evidence pruning not scheduled",
			"schedule", cfg.Schedule,
			"retention_days", cfg.RetentionDays,
		)
		return nil
	}

	spec, err := cron.ParseStandard(cfg.Schedule)
	if err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", cfg.Schedule, err)
	}

	log := cronLogger{s.logger}
	c := cron.New(cron.WithLogger(log), cron.WithChain(cron.Recover(log), cron.SkipIfStillRunning(log)))
	c.Schedule(spec, cron.FuncJob(func() {
		if _, err := s.pruner.Prune(ctx); err != nil {
			s.logger.Error("scheduled pruning failed", "error", err)
		}
	}))
	c.Start()
	s.cron = c

	s.logger.Info("retention scheduler started",
		"schedule", cfg.Schedule,
		"retention_days", cfg.RetentionDays,
	)
	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop halts the schedule and waits for a prune in progress.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.cron = nil
	s.logger.Info("retention scheduler stopped")
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cron != nil
}

// NextRun is the next prune time, or nil while idle.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return nil
	}
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	return &entries[0].Next
}

// cronLogger routes cron's own logging to slog. Routine scheduling chatter
// goes to debug.
type cronLogger struct{ l *slog.Logger }

func (c cronLogger) Info(msg string, kv ...any) { c.l.Debug("cron: "+msg, kv...) }

func (c cronLogger) Error(err error, msg string, kv ...any) {
	c.l.Error("cron: "+msg, append(kv, "error", err)...)
}
