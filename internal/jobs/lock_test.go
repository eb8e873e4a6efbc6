// internal/jobs/lock_test.go
package jobs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockMutualExclusion(t *testing.T) {
	db := openTestDB(t)
	first := NewGormLock(db)
	second := NewGormLock(db)

	ok, err := first.Acquire("job", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.Acquire("job", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLockReleaseAllowsReacquire(t *testing.T) {
	db := openTestDB(t)
	first := NewGormLock(db)
	second := NewGormLock(db)

	ok, err := first.Acquire("job", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, first.Release("job"))

	ok, err = second.Acquire("job", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLockExpiresAfterTTL(t *testing.T) {
	db := openTestDB(t)
	holder := NewGormLock(db)
	waiter := NewGormLock(db)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	holder.now = func() time.Time { return base }
	waiter.now = func() time.Time { return base }

	ok, err := holder.Acquire("job", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	// Still held inside the TTL.
	waiter.now = func() time.Time { return base.Add(30 * time.Second) }
	ok, err = waiter.Acquire("job", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// A dead holder's lock frees itself once the TTL passes.
	waiter.now = func() time.Time { return base.Add(2 * time.Minute) }
	ok, err = waiter.Acquire("job", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLockReleaseIgnoresOtherOwners(t *testing.T) {
	db := openTestDB(t)
	holder := NewGormLock(db)
	stranger := NewGormLock(db)

	ok, err := holder.Acquire("job", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	// A late release from a previous holder must not free the current lock.
	require.NoError(t, stranger.Release("job"))

	ok, err = stranger.Acquire("job", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLockNamesAreIndependent(t *testing.T) {
	db := openTestDB(t)
	lock := NewGormLock(db)

	ok, err := lock.Acquire("job-a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = lock.Acquire("job-b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
