// internal/models/infra.go
package models

import (
	"time"
)

// JobLock backs the cluster-wide mutual exclusion for background jobs: one
// row per lock name, held until locked_until. Acquisition is an insert that
// ignores conflicts, so exactly one instance wins.
type JobLock struct {
	Name        string    `gorm:"size:100;primary_key"`
	Owner       string    `gorm:"size:64;not null"`
	LockedUntil time.Time `gorm:"not null;index"`
}

// RateEvent is one counted request in a sliding rate-limit window. Rows
// outside the window are ignored by the gate and swept by the cleanup job.
type RateEvent struct {
	ID         uint      `gorm:"primary_key"`
	Scope      RateScope `gorm:"size:32;not null;index:idx_rate_events_key"`
	Identity   string    `gorm:"size:64;not null;index:idx_rate_events_key"`
	Target     string    `gorm:"size:254;not null;index:idx_rate_events_key"`
	OccurredAt time.Time `gorm:"not null;index:idx_rate_events_key"`
}
