package core

// scheduler.go runs the history retention job.
//
// The job deletes conversion records older than the retention window. It
// runs once on start and then on every tick until the context ends. A
// failed run is logged and retried on the next tick.

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// RetentionConfig controls the history retention job.
type RetentionConfig struct {
	RetentionDays int           // records older than this are deleted (default: 30)
	CheckInterval time.Duration // time between runs (default: 24h)
}

func (c RetentionConfig) withDefaults() RetentionConfig {
	if c.RetentionDays <= 0 {
		c.RetentionDays = 30
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = 24 * time.Hour
	}
	return c
}

// StartRetentionScheduler blocks, pruning history until ctx is cancelled.
// It returns immediately when history is disabled.
func (s *Service) StartRetentionScheduler(ctx context.Context, cfg RetentionConfig) {
	if s.store == nil {
		return
	}
	cfg = cfg.withDefaults()

	slog.Info("retention scheduler started",
		"retention_days", cfg.RetentionDays,
		"interval", cfg.CheckInterval.String(),
	)

	s.runRetentionJob(ctx, cfg, time.Now())

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("retention scheduler stopped")
			return
		case now := <-ticker.C:
			s.runRetentionJob(ctx, cfg, now)
		}
	}
}

// runRetentionJob deletes records created before now minus the retention
// window and returns how many went.
func (s *Service) runRetentionJob(ctx context.Context, cfg RetentionConfig, now time.Time) int64 {
	start := time.Now()
	cutoff := now.AddDate(0, 0, -cfg.RetentionDays)

	deleted, err := s.store.DeleteConversionsBefore(ctx, pgtype.Timestamptz{Time: cutoff, Valid: true})
	if err != nil {
		slog.Error("history retention failed", "error", err)
		return 0
	}

	slog.Info("history retention completed",
		"deleted", deleted,
		"cutoff", cutoff.Format(time.RFC3339),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return deleted
}
