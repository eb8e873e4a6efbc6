// internal/jobs/lock.go
package jobs

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/homedar/homedar-backend/internal/models"
)

// DistributedLock is the set-if-absent primitive the background jobs use for
// cluster-wide mutual exclusion. Acquire returns false without blocking when
// another holder owns the name; the TTL guarantees release even if the
// holder dies.
type DistributedLock interface {
	Acquire(name string, ttl time.Duration) (bool, error)
	Release(name string) error
}

// GormLock implements DistributedLock on a single database table. The
// acquire is one atomic insert that ignores conflicts, so two instances
// racing for the same name cannot both win.
type GormLock struct {
	db    *gorm.DB
	owner string

	now func() time.Time
}

func NewGormLock(db *gorm.DB) *GormLock {
	return &GormLock{
		db:    db,
		owner: uuid.NewString(),
		now:   time.Now,
	}
}

func (l *GormLock) Acquire(name string, ttl time.Duration) (bool, error) {
	now := l.now()

	// Sweep an expired holder first so its row does not block the insert.
	if err := l.db.
		Where("name = ? AND locked_until <= ?", name, now).
		Delete(&models.JobLock{}).Error; err != nil {
		return false, fmt.Errorf("failed to sweep expired lock: %w", err)
	}

	lock := models.JobLock{
		Name:        name,
		Owner:       l.owner,
		LockedUntil: now.Add(ttl),
	}
	result := l.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&lock)
	if result.Error != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (l *GormLock) Release(name string) error {
	// Only the owner's own row is removed; releasing after the TTL expired
	// and another holder took over must not free their lock.
	if err := l.db.
		Where("name = ? AND owner = ?", name, l.owner).
		Delete(&models.JobLock{}).Error; err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}
