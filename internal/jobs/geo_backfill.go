// internal/jobs/geo_backfill.go
package jobs

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/homedar/homedar-backend/internal/geo"
	"github.com/homedar/homedar-backend/internal/models"
)

const geoBackfillLockName = "geo_backfill"

// GeoBackfillJob resolves country/city names for rows that have coordinates
// but no place name yet. Views get coordinates from the browser faster than
// the request path can geocode them, so the names are filled in here, out of
// band and rate-limit friendly.
//
// At most one instance runs the job at a time, cluster-wide.
type GeoBackfillJob struct {
	db      *gorm.DB
	geo     geo.Lookuper
	lock    DistributedLock
	lockTTL time.Duration
}

// BackfillStats reports one run. Skipped means another instance held the
// lock and this run did nothing.
type BackfillStats struct {
	Skipped        bool
	PairsResolved  int
	PairsFailed    int
	ViewsUpdated   int64
	ProfilesUpdate int64
}

type coordPair struct {
	Latitude  float64
	Longitude float64
}

func NewGeoBackfillJob(db *gorm.DB, lookuper geo.Lookuper, lock DistributedLock, lockTTL time.Duration) *GeoBackfillJob {
	return &GeoBackfillJob{
		db:      db,
		geo:     lookuper,
		lock:    lock,
		lockTTL: lockTTL,
	}
}

// Run executes one backfill pass. Each distinct coordinate pair is resolved
// with a single reverse lookup and then written to every row carrying it. A
// failed lookup skips only its own pair.
func (j *GeoBackfillJob) Run(ctx context.Context) (*BackfillStats, error) {
	acquired, err := j.lock.Acquire(geoBackfillLockName, j.lockTTL)
	if err != nil {
		return nil, err
	}
	if !acquired {
		logrus.Debug("Geo backfill already running elsewhere, skipping")
		return &BackfillStats{Skipped: true}, nil
	}
	defer func() {
		if err := j.lock.Release(geoBackfillLockName); err != nil {
			logrus.WithError(err).Warn("Failed to release geo backfill lock")
		}
	}()

	pairs, err := j.pendingPairs()
	if err != nil {
		return nil, err
	}

	stats := &BackfillStats{}
	for _, pair := range pairs {
		if ctx.Err() != nil {
			break
		}

		country, city := j.geo.Reverse(ctx, pair.Latitude, pair.Longitude)
		if country == "" && city == "" {
			stats.PairsFailed++
			continue
		}
		stats.PairsResolved++

		views, profiles, err := j.applyPair(pair, country, city)
		if err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"lat": pair.Latitude,
				"lon": pair.Longitude,
			}).Error("Failed to apply resolved location")
			continue
		}
		stats.ViewsUpdated += views
		stats.ProfilesUpdate += profiles
	}

	if stats.PairsResolved > 0 || stats.PairsFailed > 0 {
		logrus.WithFields(logrus.Fields{
			"pairs_resolved":   stats.PairsResolved,
			"pairs_failed":     stats.PairsFailed,
			"views_updated":    stats.ViewsUpdated,
			"profiles_updated": stats.ProfilesUpdate,
		}).Info("Geo backfill pass finished")
	}
	return stats, nil
}

// pendingPairs collects the distinct coordinates that still need a place
// name, across both views and profiles, so each pair costs one lookup total.
func (j *GeoBackfillJob) pendingPairs() ([]coordPair, error) {
	var viewPairs []coordPair
	if err := j.db.Model(&models.ProductView{}).
		Distinct("latitude, longitude").
		Where("latitude IS NOT NULL AND longitude IS NOT NULL").
		Where("country IS NULL OR city IS NULL").
		Scan(&viewPairs).Error; err != nil {
		return nil, err
	}

	var profilePairs []coordPair
	if err := j.db.Model(&models.VisitorProfile{}).
		Distinct("latitude, longitude").
		Where("latitude IS NOT NULL AND longitude IS NOT NULL").
		Where("country IS NULL OR city IS NULL").
		Scan(&profilePairs).Error; err != nil {
		return nil, err
	}

	seen := make(map[coordPair]bool, len(viewPairs)+len(profilePairs))
	pairs := make([]coordPair, 0, len(viewPairs)+len(profilePairs))
	for _, p := range append(viewPairs, profilePairs...) {
		if seen[p] {
			continue
		}
		seen[p] = true
		pairs = append(pairs, p)
	}
	return pairs, nil
}

func (j *GeoBackfillJob) applyPair(pair coordPair, country, city string) (int64, int64, error) {
	updates := map[string]interface{}{}
	if country != "" {
		updates["country"] = country
	}
	if city != "" {
		updates["city"] = city
	}

	viewsResult := j.db.Model(&models.ProductView{}).
		Where("latitude = ? AND longitude = ?", pair.Latitude, pair.Longitude).
		Where("country IS NULL OR city IS NULL").
		Updates(updates)
	if viewsResult.Error != nil {
		return 0, 0, viewsResult.Error
	}

	profilesResult := j.db.Model(&models.VisitorProfile{}).
		Where("latitude = ? AND longitude = ?", pair.Latitude, pair.Longitude).
		Where("country IS NULL OR city IS NULL").
		Updates(updates)
	if profilesResult.Error != nil {
		return viewsResult.RowsAffected, 0, profilesResult.Error
	}

	return viewsResult.RowsAffected, profilesResult.RowsAffected, nil
}
