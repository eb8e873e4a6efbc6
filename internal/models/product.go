// internal/models/product.go
package models

import (
	"github.com/google/uuid"
)

// Product is the catalog entity that tracking events reference. Catalog
// writes happen in the admin service; this backend only reads products.
type Product struct {
	BaseModel
	Title         string   `json:"title" gorm:"size:300;not null"`
	SKU           string   `json:"sku" gorm:"size:100;uniqueIndex;not null"`
	Price         float64  `json:"price" gorm:"type:decimal(10,2);not null"`
	DiscountPrice *float64 `json:"discount_price,omitempty" gorm:"type:decimal(10,2)"`
	Description   string   `json:"description" gorm:"type:text"`

	Images  []ProductImage  `json:"images,omitempty" gorm:"foreignKey:ProductID"`
	Views   []ProductView   `json:"-" gorm:"foreignKey:ProductID"`
	Likes   []ProductLike   `json:"-" gorm:"foreignKey:ProductID"`
	Reviews []ProductReview `json:"-" gorm:"foreignKey:ProductID"`
}

type ProductImage struct {
	BaseModel
	ProductID uuid.UUID `json:"product_id" gorm:"type:uuid;not null;index"`
	URL       string    `json:"url" gorm:"size:500;not null"`
	IsMain    bool      `json:"is_main" gorm:"default:false"`
}
