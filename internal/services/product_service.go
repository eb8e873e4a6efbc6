// internal/services/product_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/homedar/homedar-backend/internal/models"
	"github.com/homedar/homedar-backend/internal/utils"
)

// ProductService serves the read-only catalog. Catalog management lives in a
// separate back office; this API only browses.
type ProductService struct {
	db *gorm.DB
}

type ProductFilters struct {
	Search   string
	MinPrice *float64
	MaxPrice *float64
}

func NewProductService(db *gorm.DB) *ProductService {
	return &ProductService{db: db}
}

// List returns a page of products with images preloaded.
func (s *ProductService) List(params utils.PaginationParams, filters ProductFilters) ([]models.Product, *utils.PaginationResult, error) {
	query := s.db.Model(&models.Product{})

	if filters.Search != "" {
		pattern := "%" + filters.Search + "%"
		query = query.Where("title LIKE ? OR description LIKE ?", pattern, pattern)
	}
	if filters.MinPrice != nil {
		query = query.Where("price >= ?", *filters.MinPrice)
	}
	if filters.MaxPrice != nil {
		query = query.Where("price <= ?", *filters.MaxPrice)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to count products: %w", err)
	}

	query = utils.ApplySort(query, params, []string{"created_at", "price", "title"})
	query = utils.ApplyPagination(query, params)

	var products []models.Product
	if err := query.Preload("Images").Find(&products).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to list products: %w", err)
	}

	result := utils.NewPaginationResult(products, total, params)
	return products, &result, nil
}

// Get loads one product with its images.
func (s *ProductService) Get(id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := s.db.Preload("Images").First(&product, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	return &product, nil
}

// SaveContactMessage stores a contact-form submission.
func SaveContactMessage(db *gorm.DB, msg *models.ContactMessage) error {
	if err := db.Create(msg).Error; err != nil {
		return fmt.Errorf("failed to save contact message: %w", err)
	}
	return nil
}
