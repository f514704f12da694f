package vault

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSweepSchedule runs the expiry sweep every five minutes.
const DefaultSweepSchedule = "@every 5m"

// SweepFunc observes the outcome of a sweep.
type SweepFunc func(removed int, stats Stats)

// Sweeper periodically removes expired sessions from a Vault.
// It runs on its own cron goroutine and never touches the request path
// beyond the per-shard locks SweepExpired takes.
type Sweeper struct {
	vault    *Vault
	schedule string
	onSweep  SweepFunc
	cron     *cron.Cron
	mu       sync.Mutex
	logger   *slog.Logger
	running  bool
}

// NewSweeper creates a sweeper for v. An empty schedule uses DefaultSweepSchedule.
// onSweep may be nil.
func NewSweeper(v *Vault, schedule string, onSweep SweepFunc) *Sweeper {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	return &Sweeper{
		vault:    v,
		schedule: schedule,
		onSweep:  onSweep,
		cron:     cron.New(),
		logger:   slog.Default().With("component", "vault.sweeper"),
	}
}

// Start schedules the sweep. The sweeper stops when ctx is cancelled.
//
// The schedule accepts standard five-field cron expressions as well as
// descriptors such as "@every 1m" and "@hourly".
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}

	if _, err := s.cron.AddFunc(s.schedule, func() { s.Sweep() }); err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("vault sweeper started",
		"schedule", s.schedule,
		"ttl", s.vault.TTL().String(),
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Sweep runs one expiry pass immediately and returns the number of removed sessions.
func (s *Sweeper) Sweep() int {
	start := time.Now()
	removed := s.vault.SweepExpired()
	stats := s.vault.Stats()

	if removed > 0 {
		s.logger.Info("expired sessions swept",
			"removed", removed,
			"sessions", stats.Sessions,
			"duration", time.Since(start).String(),
		)
	} else {
		s.logger.Debug("vault sweep completed, nothing expired", "sessions", stats.Sessions)
	}

	if s.onSweep != nil {
		s.onSweep(removed, stats)
	}
	return removed
}

// Stop halts the schedule and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("vault sweeper stopped")
}

// IsRunning reports whether the schedule is active.
func (s *Sweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled sweep, or nil when not scheduled.
func (s *Sweeper) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
