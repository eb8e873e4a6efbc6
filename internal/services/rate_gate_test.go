// internal/services/rate_gate_test.go
package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homedar/homedar-backend/internal/models"
)

func newRateGate(t *testing.T) *RateGate {
	return NewRateGate(openTestDB(t))
}

func TestRateGateAllowsUpToLimit(t *testing.T) {
	gate := newRateGate(t)

	for i := 0; i < 5; i++ {
		result := gate.Allow(models.RateScopeLogin, "203.0.113.7", "alice")
		assert.True(t, result.Allowed, "attempt %d should pass", i+1)
	}

	result := gate.Allow(models.RateScopeLogin, "203.0.113.7", "alice")
	assert.False(t, result.Allowed)
	assert.Greater(t, result.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, result.RetryAfter, 15*time.Minute)
}

func TestRateGateScopesAreIndependent(t *testing.T) {
	gate := newRateGate(t)

	for i := 0; i < 5; i++ {
		require.True(t, gate.Allow(models.RateScopeLogin, "203.0.113.7", "alice").Allowed)
	}
	require.False(t, gate.Allow(models.RateScopeLogin, "203.0.113.7", "alice").Allowed)

	// A full login window does not touch the signup budget.
	assert.True(t, gate.Allow(models.RateScopeSignup, "203.0.113.7", "alice").Allowed)
}

func TestRateGateTargetsAreIndependent(t *testing.T) {
	gate := newRateGate(t)

	for i := 0; i < 5; i++ {
		require.True(t, gate.Allow(models.RateScopeLogin, "203.0.113.7", "alice").Allowed)
	}
	require.False(t, gate.Allow(models.RateScopeLogin, "203.0.113.7", "alice").Allowed)

	assert.True(t, gate.Allow(models.RateScopeLogin, "203.0.113.7", "bob").Allowed)
}

func TestRateGateWindowSlides(t *testing.T) {
	gate := newRateGate(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	gate.now = func() time.Time { return base }

	for i := 0; i < 3; i++ {
		require.True(t, gate.Allow(models.RateScopeSignup, "203.0.113.7", "x@example.com").Allowed)
	}
	require.False(t, gate.Allow(models.RateScopeSignup, "203.0.113.7", "x@example.com").Allowed)

	// Once the hour passes, the budget is back.
	gate.now = func() time.Time { return base.Add(61 * time.Minute) }
	assert.True(t, gate.Allow(models.RateScopeSignup, "203.0.113.7", "x@example.com").Allowed)
}

func TestRateGateRejectionDoesNotConsumeBudget(t *testing.T) {
	gate := newRateGate(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	gate.now = func() time.Time { return base }

	for i := 0; i < 3; i++ {
		require.True(t, gate.Allow(models.RateScopeSignup, "203.0.113.7", "x@example.com").Allowed)
	}
	for i := 0; i < 10; i++ {
		require.False(t, gate.Allow(models.RateScopeSignup, "203.0.113.7", "x@example.com").Allowed)
	}

	var count int64
	require.NoError(t, gate.db.Model(&models.RateEvent{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)
}

func TestRateGateFailsOpenOnDBError(t *testing.T) {
	gate := newRateGate(t)

	// Drop the table out from under the gate.
	require.NoError(t, gate.db.Migrator().DropTable(&models.RateEvent{}))

	result := gate.Allow(models.RateScopeLogin, "203.0.113.7", "alice")
	assert.True(t, result.Allowed)
}

func TestRateGateUnknownScopePasses(t *testing.T) {
	gate := newRateGate(t)

	result := gate.Allow(models.RateScope("unknown"), "203.0.113.7", "alice")
	assert.True(t, result.Allowed)
}
