// internal/services/tracking_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/homedar/homedar-backend/internal/models"
)

// TrackingService records product-view, like and review events for anonymous
// visitors.
type TrackingService struct {
	db       *gorm.DB
	visitors *VisitorService

	now func() time.Time
}

type RecordViewInput struct {
	VisitorID string
	ProductID uuid.UUID
	ClientIP  string
	Latitude  *float64
	Longitude *float64
	UserAgent string
}

type RecordViewResult struct {
	Duplicate bool
}

func NewTrackingService(db *gorm.DB, visitors *VisitorService) *TrackingService {
	return &TrackingService{
		db:       db,
		visitors: visitors,
		now:      time.Now,
	}
}

// RecordView stores a product view, merging with the visitor's previous view
// of the same product. A pair never accumulates more than one row: repeat
// views refresh viewed_at, and a coordinate change additionally clears the
// event's country/city snapshot so the backfill job can re-resolve it.
func (s *TrackingService) RecordView(ctx context.Context, in RecordViewInput) (*RecordViewResult, error) {
	visitor, err := s.visitors.Ensure(ctx, in.VisitorID, in.ClientIP, in.Latitude, in.Longitude)
	if err != nil {
		return nil, err
	}

	var product models.Product
	if err := s.db.Select("id").First(&product, "id = ?", in.ProductID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}

	now := s.now()

	var existing models.ProductView
	err = s.db.
		Where("visitor_id = ? AND product_id = ?", visitor.VisitorID, in.ProductID).
		Order("viewed_at DESC").
		First(&existing).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		view := models.ProductView{
			VisitorID: visitor.VisitorID,
			ProductID: in.ProductID,
			ViewedAt:  now,
			Country:   visitor.Country,
			City:      visitor.City,
			Latitude:  in.Latitude,
			Longitude: in.Longitude,
		}
		if in.UserAgent != "" {
			ua := truncate(in.UserAgent, 256)
			view.UserAgent = &ua
		}
		if err := s.db.Create(&view).Error; err != nil {
			return nil, fmt.Errorf("failed to create product view: %w", err)
		}
		return &RecordViewResult{Duplicate: false}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up product view: %w", err)
	}

	updates := map[string]interface{}{"viewed_at": now}

	locationChanged := false
	if in.Latitude != nil && (existing.Latitude == nil || *existing.Latitude != *in.Latitude) {
		updates["latitude"] = *in.Latitude
		locationChanged = true
	}
	if in.Longitude != nil && (existing.Longitude == nil || *existing.Longitude != *in.Longitude) {
		updates["longitude"] = *in.Longitude
		locationChanged = true
	}

	// The location moved, so the stored place name no longer describes it.
	if locationChanged {
		updates["country"] = nil
		updates["city"] = nil
	}

	if err := s.db.Model(&models.ProductView{}).Where("id = ?", existing.ID).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update product view: %w", err)
	}

	return &RecordViewResult{Duplicate: true}, nil
}

type LikeResult struct {
	Liked     bool      `json:"liked"`
	ProductID uuid.UUID `json:"product_id"`
	LikeCount int64     `json:"like_count"`
}

// ToggleLike flips the like state for a (visitor, product) pair. Two calls
// in a row restore the original state.
func (s *TrackingService) ToggleLike(ctx context.Context, visitorID string, productID uuid.UUID, clientIP string) (*LikeResult, error) {
	visitor, err := s.visitors.Ensure(ctx, visitorID, clientIP, nil, nil)
	if err != nil {
		return nil, err
	}

	var product models.Product
	if err := s.db.Select("id").First(&product, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}

	var like models.ProductLike
	err = s.db.Where("visitor_id = ? AND product_id = ?", visitor.VisitorID, productID).First(&like).Error

	liked := false
	switch {
	case err == nil:
		if err := s.db.Delete(&like).Error; err != nil {
			return nil, fmt.Errorf("failed to remove like: %w", err)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		like = models.ProductLike{
			VisitorID: visitor.VisitorID,
			ProductID: productID,
		}
		if err := s.db.Create(&like).Error; err != nil {
			return nil, fmt.Errorf("failed to create like: %w", err)
		}
		liked = true
	default:
		return nil, fmt.Errorf("failed to look up like: %w", err)
	}

	count, err := s.likeCount(productID)
	if err != nil {
		return nil, err
	}

	return &LikeResult{Liked: liked, ProductID: productID, LikeCount: count}, nil
}

// LikeStatus reports whether the visitor liked the product. An unknown or
// empty visitor id degrades to liked=false rather than erroring.
func (s *TrackingService) LikeStatus(visitorID string, productID uuid.UUID) (*LikeResult, error) {
	var product models.Product
	if err := s.db.Select("id").First(&product, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}

	count, err := s.likeCount(productID)
	if err != nil {
		return nil, err
	}

	liked := false
	if visitorID != "" {
		var n int64
		if err := s.db.Model(&models.ProductLike{}).
			Where("visitor_id = ? AND product_id = ?", visitorID, productID).
			Count(&n).Error; err != nil {
			return nil, fmt.Errorf("failed to look up like: %w", err)
		}
		liked = n > 0
	}

	return &LikeResult{Liked: liked, ProductID: productID, LikeCount: count}, nil
}

// Favorites lists the visitor's liked products, most recently liked first.
func (s *TrackingService) Favorites(visitorID string, limit int) ([]models.Product, error) {
	if visitorID == "" {
		return []models.Product{}, nil
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}

	var likes []models.ProductLike
	if err := s.db.
		Where("visitor_id = ?", visitorID).
		Order("created_at DESC").
		Limit(limit).
		Find(&likes).Error; err != nil {
		return nil, fmt.Errorf("failed to list likes: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(likes))
	for _, like := range likes {
		ids = append(ids, like.ProductID)
	}
	return fetchProductsOrdered(s.db, ids)
}

// AddReview always inserts; visitors may review the same product repeatedly.
func (s *TrackingService) AddReview(ctx context.Context, visitorID string, productID uuid.UUID, clientIP string, name *string, reviewText string) (*models.ProductReview, error) {
	visitor, err := s.visitors.Ensure(ctx, visitorID, clientIP, nil, nil)
	if err != nil {
		return nil, err
	}

	var product models.Product
	if err := s.db.Select("id").First(&product, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}

	review := models.ProductReview{
		VisitorID:  visitor.VisitorID,
		ProductID:  productID,
		Name:       name,
		ReviewText: reviewText,
	}
	if err := s.db.Create(&review).Error; err != nil {
		return nil, fmt.Errorf("failed to create review: %w", err)
	}
	return &review, nil
}

// ListReviews returns all reviews for the product, newest first.
func (s *TrackingService) ListReviews(productID uuid.UUID) ([]models.ProductReview, error) {
	var product models.Product
	if err := s.db.Select("id").First(&product, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}

	var reviews []models.ProductReview
	if err := s.db.
		Where("product_id = ?", productID).
		Order("created_at DESC").
		Find(&reviews).Error; err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return reviews, nil
}

func (s *TrackingService) likeCount(productID uuid.UUID) (int64, error) {
	var count int64
	if err := s.db.Model(&models.ProductLike{}).Where("product_id = ?", productID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count likes: %w", err)
	}
	return count, nil
}

// fetchProductsOrdered loads products with images, preserving the order of
// the given ids. Ids with no matching product are silently dropped.
func fetchProductsOrdered(db *gorm.DB, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}

	var products []models.Product
	if err := db.Preload("Images").Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	ordered := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}
	return ordered, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
