package services

import (
	"context"
	"time"

	"github.com/composedeck/backend/internal/core/ports"
	"github.com/composedeck/backend/internal/infrastructure/logger"
)

// Sweeper periodically evicts finished jobs from the store once they are
// older than the retention period. With a history log attached it also
// prunes audit entries past their own retention.
type Sweeper struct {
	store     *JobStore
	retention time.Duration
	interval  time.Duration
	logger    *logger.Logger

	history          ports.DeploymentLogRepository
	historyRetention time.Duration
}

func NewSweeper(store *JobStore, retention, interval time.Duration, log *logger.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{store: store, retention: retention, interval: interval, logger: log}
}

// WithHistory makes each tick also prune audit entries older than
// retention. A zero retention leaves the log untouched.
func (s *Sweeper) WithHistory(history ports.DeploymentLogRepository, retention time.Duration) *Sweeper {
	s.history = history
	s.historyRetention = retention
	return s
}

// Run blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Infow("job_sweeper_started", "retention", s.retention.String(), "interval", s.interval.String())
	for {
		select {
		case <-ctx.Done():
			s.logger.Infow("job_sweeper_stopped")
			return
		case <-ticker.C:
			s.SweepOnce()
			s.PruneHistory(ctx)
		}
	}
}

func (s *Sweeper) SweepOnce() int {
	removed := s.store.SweepOlderThan(s.retention)
	if removed > 0 {
		s.logger.Infow("job_store_sweep", "removed", removed, "remaining", s.store.Len())
	}
	return removed
}

func (s *Sweeper) PruneHistory(ctx context.Context) int64 {
	if s.history == nil || s.historyRetention <= 0 {
		return 0
	}
	removed, err := s.history.CleanupOld(ctx, s.historyRetention)
	if err != nil {
		s.logger.Warnw("deployment_history_prune_failed", "error", err)
		return 0
	}
	return removed
}
