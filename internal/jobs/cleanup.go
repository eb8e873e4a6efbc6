// internal/jobs/cleanup.go
package jobs

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/homedar/homedar-backend/internal/models"
)

const cleanupLockName = "retention_cleanup"

// CleanupJob sweeps aged rows: product views past retention, rate events
// that fell out of every window, and verification codes that can never be
// redeemed again.
type CleanupJob struct {
	db            *gorm.DB
	lock          DistributedLock
	lockTTL       time.Duration
	viewRetention time.Duration
}

type CleanupStats struct {
	Skipped       bool
	ViewsDeleted  int64
	EventsDeleted int64
	OTPsDeleted   int64
}

func NewCleanupJob(db *gorm.DB, lock DistributedLock, lockTTL, viewRetention time.Duration) *CleanupJob {
	return &CleanupJob{
		db:            db,
		lock:          lock,
		lockTTL:       lockTTL,
		viewRetention: viewRetention,
	}
}

func (j *CleanupJob) Run(ctx context.Context) (*CleanupStats, error) {
	acquired, err := j.lock.Acquire(cleanupLockName, j.lockTTL)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return &CleanupStats{Skipped: true}, nil
	}
	defer func() {
		if err := j.lock.Release(cleanupLockName); err != nil {
			logrus.WithError(err).Warn("Failed to release cleanup lock")
		}
	}()

	now := time.Now()
	stats := &CleanupStats{}

	views := j.db.Where("viewed_at < ?", now.Add(-j.viewRetention)).Delete(&models.ProductView{})
	if views.Error != nil {
		return nil, views.Error
	}
	stats.ViewsDeleted = views.RowsAffected

	// The widest rate window is one hour; anything older than a day is noise.
	events := j.db.Where("occurred_at < ?", now.Add(-24*time.Hour)).Delete(&models.RateEvent{})
	if events.Error != nil {
		return nil, events.Error
	}
	stats.EventsDeleted = events.RowsAffected

	otps := j.db.Where("used = ? OR expires_at < ?", true, now.Add(-24*time.Hour)).Delete(&models.EmailOTP{})
	if otps.Error != nil {
		return nil, otps.Error
	}
	stats.OTPsDeleted = otps.RowsAffected

	logrus.WithFields(logrus.Fields{
		"views_deleted":  stats.ViewsDeleted,
		"events_deleted": stats.EventsDeleted,
		"otps_deleted":   stats.OTPsDeleted,
	}).Info("Retention cleanup finished")
	return stats, nil
}
