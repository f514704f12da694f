package retention

import (
	"context"
	"log/slog"
	"time"

	"mercator-hq/veil/pkg/config"
	"mercator-hq/veil/pkg/evidence"
)

// Config controls pruning. RetentionDays <= 0 keeps records forever; an
// empty Schedule means Prune only runs when called.
type Config struct {
	RetentionDays int
	Schedule      string
}

// DefaultConfig keeps 90 days and prunes daily at 03:00.
func DefaultConfig() *Config {
	return &Config{RetentionDays: 90, Schedule: "0 3 * * *"}
}

func FromConfig(cfg config.RetentionConfig) *Config {
	return &Config{RetentionDays: cfg.Days, Schedule: cfg.Schedule}
}

// Pruner deletes evidence older than the retention period.
type Pruner struct {
	storage   evidence.Storage
	config    *Config
	scheduler *Scheduler
	logger    *slog.Logger
	now       func() time.Time
}

// NewPruner uses DefaultConfig when cfg is nil.
func NewPruner(storage evidence.Storage, cfg *Config) *Pruner {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	p := &Pruner{
		storage: storage,
		config:  cfg,
		logger:  slog.Default().With("component", "evidence.retention"),
		now:     time.Now,
	}
	p.scheduler = NewScheduler(p)
	return p
}

// Prune removes records with a request time before the cutoff and returns
// how many went.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	days := p.config.RetentionDays
	if days <= 0 {
		return 0, nil
	}

	cutoff := p.now().AddDate(0, 0, -days)
	n, err := p.storage.Delete(ctx, &evidence.Query{EndTime: &cutoff})
	if err != nil {
		return 0, evidence.NewRetentionError(days, err)
	}

	level := slog.LevelDebug
	if n > 0 {
		level = slog.LevelInfo
	}
	p.logger.Log(ctx, level, "evidence pruned",
		"deleted_count", n,
		"cutoff_time", cutoff,
		"retention_days", days,
	)
	return n, nil
}

// Start begins scheduled pruning until ctx is done or Stop is called.
func (p *Pruner) Start(ctx context.Context) error { return p.scheduler.Start(ctx) }

// Stop ends scheduled pruning, waiting for a run in progress.
func (p *Pruner) Stop() { p.scheduler.Stop() }

// NextPruning is the next scheduled run, or nil.
func (p *Pruner) NextPruning() *time.Time { return p.scheduler.NextRun() }
