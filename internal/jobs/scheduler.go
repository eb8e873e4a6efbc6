// internal/jobs/scheduler.go
package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Scheduler runs the background jobs on fixed intervals until the context
// is cancelled. Each job also runs once at startup so a freshly deployed
// instance does not wait a full interval.
type Scheduler struct {
	backfill         *GeoBackfillJob
	cleanup          *CleanupJob
	backfillInterval time.Duration
	cleanupInterval  time.Duration

	wg sync.WaitGroup
}

func NewScheduler(backfill *GeoBackfillJob, cleanup *CleanupJob, backfillInterval, cleanupInterval time.Duration) *Scheduler {
	return &Scheduler{
		backfill:         backfill,
		cleanup:          cleanup,
		backfillInterval: backfillInterval,
		cleanupInterval:  cleanupInterval,
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(2)

	go s.loop(ctx, "geo_backfill", s.backfillInterval, func(ctx context.Context) error {
		_, err := s.backfill.Run(ctx)
		return err
	})
	go s.loop(ctx, "retention_cleanup", s.cleanupInterval, func(ctx context.Context) error {
		_, err := s.cleanup.Run(ctx)
		return err
	})
}

// Wait blocks until every job loop has observed cancellation and returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, name string, interval time.Duration, run func(context.Context) error) {
	defer s.wg.Done()

	if err := run(ctx); err != nil {
		logrus.WithError(err).WithField("job", name).Error("Background job failed")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := run(ctx); err != nil {
				logrus.WithError(err).WithField("job", name).Error("Background job failed")
			}
		}
	}
}
