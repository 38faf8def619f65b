package application

import (
	"context"
	"log/slog"
	"time"
)

// SyncScheduler runs both sync workers on a fixed interval, Vercel first so
// newly discovered projects are already in the store when the GitHub worker
// builds its candidate list. Manual trigger endpoints call the same workers
// directly; the scheduler adds nothing but the clock.
type SyncScheduler struct {
	vercel   *VercelSyncWorker
	github   *GitHubSyncWorker
	interval time.Duration
}

// NewSyncScheduler creates a SyncScheduler.
func NewSyncScheduler(vercel *VercelSyncWorker, github *GitHubSyncWorker, interval time.Duration) *SyncScheduler {
	return &SyncScheduler{
		vercel:   vercel,
		github:   github,
		interval: interval,
	}
}

// Start runs an immediate sync cycle, then one per interval tick. It blocks
// until the context is canceled.
func (s *SyncScheduler) Start(ctx context.Context) {
	s.runCycle(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("sync scheduler stopped")
			return
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

// runCycle executes one Vercel-then-GitHub sync pass. Worker-fatal errors
// are logged here; per-project failures are already handled inside the
// workers themselves.
func (s *SyncScheduler) runCycle(ctx context.Context) {
	if _, err := s.vercel.Run(ctx); err != nil {
		slog.Error("scheduled vercel sync failed", "error", err)
	}

	if ctx.Err() != nil {
		return
	}

	if _, err := s.github.Run(ctx); err != nil {
		slog.Error("scheduled github sync failed", "error", err)
	}
}
