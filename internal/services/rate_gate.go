// internal/services/rate_gate.go
package services

import (
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/homedar/homedar-backend/internal/models"
)

// RateGate throttles sensitive auth flows with sliding windows persisted in
// the database, so the count holds across instances and restarts. The gate
// fails open: if the database cannot answer, the request goes through.
type RateGate struct {
	db *gorm.DB

	now func() time.Time
}

type rateLimit struct {
	Max    int
	Window time.Duration
}

var rateLimits = map[models.RateScope]rateLimit{
	models.RateScopeLogin:         {Max: 5, Window: 15 * time.Minute},
	models.RateScopeSignup:        {Max: 3, Window: time.Hour},
	models.RateScopePasswordReset: {Max: 3, Window: time.Hour},
}

// GateResult reports a single admission decision. RetryAfter is only
// meaningful when Allowed is false.
type GateResult struct {
	Allowed    bool
	RetryAfter time.Duration
}

func NewRateGate(db *gorm.DB) *RateGate {
	return &RateGate{
		db:  db,
		now: time.Now,
	}
}

// Allow admits or rejects one attempt for (scope, identity, target) and, when
// admitted, counts it against the window. Identity is the caller's IP; target
// is the account or email being acted on, so one attacker cannot exhaust the
// budget of every account from a single window.
func (g *RateGate) Allow(scope models.RateScope, identity, target string) GateResult {
	limit, ok := rateLimits[scope]
	if !ok {
		return GateResult{Allowed: true}
	}

	now := g.now()
	since := now.Add(-limit.Window)

	var count int64
	err := g.db.Model(&models.RateEvent{}).
		Where("scope = ? AND identity = ? AND target = ? AND occurred_at >= ?", scope, identity, target, since).
		Count(&count).Error
	if err != nil {
		logrus.WithError(err).WithField("scope", scope).Warn("Rate gate count failed, allowing request")
		return GateResult{Allowed: true}
	}

	if count >= int64(limit.Max) {
		retryAfter := limit.Window
		var oldest models.RateEvent
		err := g.db.
			Where("scope = ? AND identity = ? AND target = ? AND occurred_at >= ?", scope, identity, target, since).
			Order("occurred_at ASC").
			First(&oldest).Error
		if err == nil {
			retryAfter = oldest.OccurredAt.Add(limit.Window).Sub(now)
			if retryAfter < time.Second {
				retryAfter = time.Second
			}
		}
		return GateResult{Allowed: false, RetryAfter: retryAfter}
	}

	event := models.RateEvent{
		Scope:      scope,
		Identity:   identity,
		Target:     target,
		OccurredAt: now,
	}
	if err := g.db.Create(&event).Error; err != nil {
		logrus.WithError(err).WithField("scope", scope).Warn("Rate gate record failed, allowing request")
	}
	return GateResult{Allowed: true}
}
