// internal/jobs/cleanup_test.go
package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homedar/homedar-backend/internal/models"
)

func TestCleanupDeletesOnlyAgedRows(t *testing.T) {
	db := openTestDB(t)
	retention := 30 * 24 * time.Hour
	job := NewCleanupJob(db, NewGormLock(db), time.Minute, retention)

	fresh := seedUnresolvedView(t, db, "v-fresh", 1, 1)
	old := seedUnresolvedView(t, db, "v-old", 2, 2)
	require.NoError(t, db.Model(&models.ProductView{}).
		Where("id = ?", old.ID).
		Update("viewed_at", time.Now().Add(-31*24*time.Hour)).Error)

	require.NoError(t, db.Create(&models.RateEvent{
		Scope: models.RateScopeLogin, Identity: "ip", Target: "t",
		OccurredAt: time.Now().Add(-48 * time.Hour),
	}).Error)
	require.NoError(t, db.Create(&models.RateEvent{
		Scope: models.RateScopeLogin, Identity: "ip", Target: "t",
		OccurredAt: time.Now(),
	}).Error)

	require.NoError(t, db.Create(&models.EmailOTP{
		Email: "a@example.com", Purpose: models.OTPPurposeSignup, Code: "1234",
		ExpiresAt: time.Now().Add(10 * time.Minute), Used: true,
	}).Error)
	require.NoError(t, db.Create(&models.EmailOTP{
		Email: "b@example.com", Purpose: models.OTPPurposeSignup, Code: "5678",
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}).Error)

	stats, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, stats.Skipped)
	assert.Equal(t, int64(1), stats.ViewsDeleted)
	assert.Equal(t, int64(1), stats.EventsDeleted)
	assert.Equal(t, int64(1), stats.OTPsDeleted)

	var view models.ProductView
	assert.NoError(t, db.First(&view, "id = ?", fresh.ID).Error)
}

func TestCleanupSkipsWhenLockHeld(t *testing.T) {
	db := openTestDB(t)
	job := NewCleanupJob(db, NewGormLock(db), time.Minute, time.Hour)

	other := NewGormLock(db)
	ok, err := other.Acquire("retention_cleanup", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	stats, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, stats.Skipped)
}
