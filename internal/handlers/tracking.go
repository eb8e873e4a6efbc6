// internal/handlers/tracking.go
package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/homedar/homedar-backend/internal/services"
	"github.com/homedar/homedar-backend/internal/utils"
)

// TrackingHandler exposes the anonymous visitor surface: view recording,
// the derived product rankings, likes and reviews. Identity is the
// client-generated visitor_id; no authentication is involved.
type TrackingHandler struct {
	tracking *services.TrackingService
	ranking  *services.RankingService
}

func NewTrackingHandler(tracking *services.TrackingService, ranking *services.RankingService) *TrackingHandler {
	return &TrackingHandler{
		tracking: tracking,
		ranking:  ranking,
	}
}

type recordViewRequest struct {
	VisitorID string   `json:"visitor_id"`
	ProductID string   `json:"product_id"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// POST /api/tracking/product-views
//
// visitor_id and product_id may arrive in the body or as query parameters;
// storefront beacons use whichever is convenient.
func (h *TrackingHandler) RecordView(c *gin.Context) {
	var req recordViewRequest
	_ = c.ShouldBindJSON(&req)

	if req.VisitorID == "" {
		req.VisitorID = c.Query("visitor_id")
	}
	if req.ProductID == "" {
		req.ProductID = c.Query("product_id")
	}

	if req.VisitorID == "" || len(req.VisitorID) > 64 {
		utils.BadRequestResponse(c, "visitor_id is required", nil)
		return
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid product id", nil)
		return
	}
	if req.Latitude != nil && (*req.Latitude < -90 || *req.Latitude > 90) {
		utils.BadRequestResponse(c, "Invalid latitude", nil)
		return
	}
	if req.Longitude != nil && (*req.Longitude < -180 || *req.Longitude > 180) {
		utils.BadRequestResponse(c, "Invalid longitude", nil)
		return
	}

	result, err := h.tracking.RecordView(c.Request.Context(), services.RecordViewInput{
		VisitorID: req.VisitorID,
		ProductID: productID,
		ClientIP:  c.ClientIP(),
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		h.writeTrackingError(c, err)
		return
	}

	if result.Duplicate {
		utils.SuccessResponse(c, gin.H{"duplicate": true})
		return
	}
	utils.CreatedResponse(c, gin.H{"duplicate": false})
}

// GET /api/tracking/recent-products?visitor_id=...&limit=...
func (h *TrackingHandler) RecentProducts(c *gin.Context) {
	visitorID := c.Query("visitor_id")
	if visitorID == "" {
		utils.BadRequestResponse(c, "visitor_id is required", nil)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	products, err := h.ranking.RecentForVisitor(visitorID, limit)
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}
	utils.SuccessResponse(c, gin.H{"results": products})
}

// GET /api/tracking/popular-products?period=7d&limit=10&visitor_id=...
func (h *TrackingHandler) PopularProducts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	products, period, err := h.ranking.Popular(c.Query("period"), limit, c.Query("visitor_id"))
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}
	utils.SuccessResponse(c, gin.H{"results": products, "period": period})
}

// GET /api/tracking/also-viewed/:product_id?limit=10&period=90d&visitor_id=...
func (h *TrackingHandler) AlsoViewed(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("product_id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid product id", nil)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	products, err := h.ranking.AlsoViewed(productID, limit, c.Query("period"), c.Query("visitor_id"))
	if err != nil {
		h.writeTrackingError(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{"results": products})
}

type likeRequest struct {
	VisitorID string `json:"visitor_id" validate:"required,max=64"`
	ProductID string `json:"product_id" validate:"required,uuid"`
}

// POST /api/tracking/product-like
func (h *TrackingHandler) ToggleLike(c *gin.Context) {
	var req likeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid product id", nil)
		return
	}

	result, err := h.tracking.ToggleLike(c.Request.Context(), req.VisitorID, productID, c.ClientIP())
	if err != nil {
		h.writeTrackingError(c, err)
		return
	}
	utils.SuccessResponse(c, result)
}

// GET /api/tracking/product-like/:product_id?visitor_id=...
func (h *TrackingHandler) LikeStatus(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("product_id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid product id", nil)
		return
	}

	result, err := h.tracking.LikeStatus(c.Query("visitor_id"), productID)
	if err != nil {
		h.writeTrackingError(c, err)
		return
	}
	utils.SuccessResponse(c, result)
}

// GET /api/tracking/favorite-products?visitor_id=...&limit=...
func (h *TrackingHandler) FavoriteProducts(c *gin.Context) {
	visitorID := c.Query("visitor_id")
	if visitorID == "" {
		utils.BadRequestResponse(c, "visitor_id is required", nil)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	products, err := h.tracking.Favorites(visitorID, limit)
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}
	utils.SuccessResponse(c, gin.H{"results": products, "count": len(products)})
}

type reviewRequest struct {
	VisitorID  string  `json:"visitor_id" validate:"required,max=64"`
	Name       *string `json:"name" validate:"omitempty,max=100"`
	ReviewText string  `json:"review_text" validate:"required,max=4000"`
}

// POST /api/products/:id/reviews
func (h *TrackingHandler) AddReview(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid product id", nil)
		return
	}

	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	// Logged-in reviewers who leave the name blank sign with their username.
	if req.Name == nil {
		if username := c.GetString("username"); username != "" {
			req.Name = &username
		}
	}

	review, err := h.tracking.AddReview(c.Request.Context(), req.VisitorID, productID, c.ClientIP(), req.Name, req.ReviewText)
	if err != nil {
		h.writeTrackingError(c, err)
		return
	}
	utils.CreatedResponse(c, gin.H{
		"review":        review,
		"reviewer_name": review.ReviewerName(),
	})
}

// GET /api/products/:id/reviews
func (h *TrackingHandler) ListReviews(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid product id", nil)
		return
	}

	reviews, err := h.tracking.ListReviews(productID)
	if err != nil {
		h.writeTrackingError(c, err)
		return
	}

	out := make([]gin.H, 0, len(reviews))
	for i := range reviews {
		out = append(out, gin.H{
			"id":            reviews[i].ID,
			"reviewer_name": reviews[i].ReviewerName(),
			"review_text":   reviews[i].ReviewText,
			"created_at":    reviews[i].CreatedAt,
		})
	}
	utils.SuccessResponse(c, gin.H{"results": out, "count": len(out)})
}

func (h *TrackingHandler) writeTrackingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrProductNotFound):
		utils.NotFoundResponse(c, "Product not found")
	case errors.Is(err, services.ErrVisitorIDRequired):
		utils.BadRequestResponse(c, "visitor_id is required", nil)
	default:
		utils.InternalErrorResponse(c, "")
	}
}
