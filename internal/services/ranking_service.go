// internal/services/ranking_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/homedar/homedar-backend/internal/models"
)

// RankingService computes the derived recommendation views over recorded
// product-view events. All three operations are read-only.
type RankingService struct {
	db *gorm.DB

	now func() time.Time
}

const alsoViewedHardCap = 10

func NewRankingService(db *gorm.DB) *RankingService {
	return &RankingService{
		db:  db,
		now: time.Now,
	}
}

var periodWindows = map[string]time.Duration{
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
	"90d": 90 * 24 * time.Hour,
}

// Each operation has its own period menu. Popular covers short horizons,
// also-viewed needs a longer history to find co-occurrences.
var (
	popularPeriods    = []string{"24h", "7d", "30d"}
	alsoViewedPeriods = []string{"30d", "90d"}
)

// resolvePeriod maps a period token to its duration, restricted to the
// tokens the operation accepts. Anything else resolves to the fallback.
func resolvePeriod(period, fallback string, allowed []string) (string, time.Duration) {
	for _, token := range allowed {
		if period == token {
			return token, periodWindows[token]
		}
	}
	return fallback, periodWindows[fallback]
}

// RecentForVisitor returns the visitor's most recently viewed products,
// deduplicated by product. The upsert in RecordView already guarantees one
// row per pair; the dedup here is kept as a safety net.
func (s *RankingService) RecentForVisitor(visitorID string, limit int) ([]models.Product, error) {
	if visitorID == "" {
		return []models.Product{}, nil
	}
	if limit < 1 || limit > 50 {
		limit = 10
	}

	var views []models.ProductView
	if err := s.db.
		Where("visitor_id = ?", visitorID).
		Order("viewed_at DESC").
		Find(&views).Error; err != nil {
		return nil, fmt.Errorf("failed to list product views: %w", err)
	}

	seen := make(map[uuid.UUID]bool)
	ids := make([]uuid.UUID, 0, limit)
	for _, view := range views {
		if seen[view.ProductID] {
			continue
		}
		seen[view.ProductID] = true
		ids = append(ids, view.ProductID)
		if len(ids) >= limit {
			break
		}
	}

	return fetchProductsOrdered(s.db, ids)
}

type popularRow struct {
	ProductID        uuid.UUID
	ViewCount        int64
	LastViewedAt     time.Time
	LocationPriority int
}

// Popular ranks products by views inside the window, prioritising the
// requesting visitor's location: exact (country, city) matches first, then
// same-country, then the rest. Within a tier the order is view count,
// recency, then alphabetical country/city purely for deterministic output.
func (s *RankingService) Popular(period string, limit int, visitorID string) ([]models.Product, string, error) {
	resolved, window := resolvePeriod(period, "7d", popularPeriods)
	since := s.now().Add(-window)

	if limit < 1 || limit > 50 {
		limit = 10
	}

	// Location of the requesting visitor, if known. Unknown visitors simply
	// get no location boost.
	var visitorCountry, visitorCity string
	if visitorID != "" {
		var visitor models.VisitorProfile
		err := s.db.First(&visitor, "visitor_id = ?", visitorID).Error
		if err == nil {
			if visitor.Country != nil {
				visitorCountry = *visitor.Country
			}
			if visitor.City != nil {
				visitorCity = *visitor.City
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, resolved, fmt.Errorf("failed to load visitor profile: %w", err)
		}
	}

	var rows []popularRow
	err := s.db.Model(&models.ProductView{}).
		Select(`product_id,
			COUNT(*) AS view_count,
			MAX(viewed_at) AS last_viewed_at,
			MAX(CASE WHEN country = ? AND city = ? THEN 2 WHEN country = ? THEN 1 ELSE 0 END) AS location_priority`,
			visitorCountry, visitorCity, visitorCountry).
		Where("viewed_at >= ?", since).
		Group("product_id").
		Order("location_priority DESC, view_count DESC, last_viewed_at DESC, MIN(COALESCE(country, '')) ASC, MIN(COALESCE(city, '')) ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, resolved, fmt.Errorf("failed to aggregate popular products: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ProductID)
	}

	products, err := fetchProductsOrdered(s.db, ids)
	return products, resolved, err
}

// AlsoViewed implements item-based collaborative filtering by visitor
// co-occurrence: products viewed by the visitors who viewed the given
// product inside the period, ranked by view count then recency. When a
// requesting visitor is known, products they already viewed are excluded.
func (s *RankingService) AlsoViewed(productID uuid.UUID, limit int, period string, visitorID string) ([]models.Product, error) {
	var product models.Product
	if err := s.db.Select("id").First(&product, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}

	if limit < 1 || limit > alsoViewedHardCap {
		limit = alsoViewedHardCap
	}

	_, window := resolvePeriod(period, "90d", alsoViewedPeriods)
	since := s.now().Add(-window)

	// Step 1: distinct visitors who viewed this product within the period.
	var coVisitors []string
	if err := s.db.Model(&models.ProductView{}).
		Distinct("visitor_id").
		Where("product_id = ? AND viewed_at >= ?", productID, since).
		Pluck("visitor_id", &coVisitors).Error; err != nil {
		return nil, fmt.Errorf("failed to collect co-visitors: %w", err)
	}
	if len(coVisitors) == 0 {
		return []models.Product{}, nil
	}

	query := s.db.Model(&models.ProductView{}).
		Where("visitor_id IN ?", coVisitors).
		Where("viewed_at >= ?", since).
		Where("product_id <> ?", productID)

	// Personalized dedup only when the caller identifies themselves.
	if visitorID != "" {
		seen := s.db.Model(&models.ProductView{}).
			Distinct("product_id").
			Where("visitor_id = ?", visitorID)
		query = query.Where("product_id NOT IN (?)", seen)
	}

	var rows []popularRow
	if err := query.
		Select("product_id, COUNT(*) AS view_count, MAX(viewed_at) AS last_viewed_at").
		Group("product_id").
		Order("view_count DESC, last_viewed_at DESC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate also-viewed products: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ProductID)
	}
	return fetchProductsOrdered(s.db, ids)
}
