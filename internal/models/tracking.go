// internal/models/tracking.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VisitorProfile is an anonymous browsing identity keyed by a client-supplied
// opaque string. It carries no PII beyond the last observed IP and a coarse
// location derived from it.
type VisitorProfile struct {
	VisitorID string     `json:"visitor_id" gorm:"size:64;primary_key"`
	FirstSeen time.Time  `json:"first_seen" gorm:"autoCreateTime"`
	LastSeen  time.Time  `json:"last_seen" gorm:"index"`
	LastIP    string     `json:"last_ip" gorm:"size:45"`
	Country   *string    `json:"country,omitempty" gorm:"size:128"`
	City      *string    `json:"city,omitempty" gorm:"size:128"`
	Latitude  *float64   `json:"latitude,omitempty"`
	Longitude *float64   `json:"longitude,omitempty"`
}

func (v *VisitorProfile) BeforeCreate(tx *gorm.DB) error {
	if v.LastSeen.IsZero() {
		v.LastSeen = time.Now()
	}
	return nil
}

// ProductView is the core tracking event. The store never holds more than one
// row per (visitor, product) pair: repeat views update the existing row.
type ProductView struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	VisitorID string    `json:"visitor_id" gorm:"size:64;not null;index:idx_product_views_visitor_viewed"`
	ProductID uuid.UUID `json:"product_id" gorm:"type:uuid;not null;index:idx_product_views_product_viewed"`
	ViewedAt  time.Time `json:"viewed_at" gorm:"index:idx_product_views_visitor_viewed;index:idx_product_views_product_viewed"`
	Country   *string   `json:"country,omitempty" gorm:"size:128"`
	City      *string   `json:"city,omitempty" gorm:"size:128"`
	Latitude  *float64  `json:"latitude,omitempty"`
	Longitude *float64  `json:"longitude,omitempty"`
	UserAgent *string   `json:"user_agent,omitempty" gorm:"size:256"`

	Visitor VisitorProfile `json:"-" gorm:"foreignKey:VisitorID;references:VisitorID"`
	Product Product        `json:"-" gorm:"foreignKey:ProductID"`
}

func (v *ProductView) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.ViewedAt.IsZero() {
		v.ViewedAt = time.Now()
	}
	return nil
}

// ProductLike marks a (visitor, product) pair as liked. Presence means liked,
// unliking deletes the row.
type ProductLike struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	VisitorID string    `json:"visitor_id" gorm:"size:64;not null;uniqueIndex:idx_product_likes_pair"`
	ProductID uuid.UUID `json:"product_id" gorm:"type:uuid;not null;uniqueIndex:idx_product_likes_pair"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`

	Visitor VisitorProfile `json:"-" gorm:"foreignKey:VisitorID;references:VisitorID"`
	Product Product        `json:"-" gorm:"foreignKey:ProductID"`
}

func (l *ProductLike) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// ProductReview is free-form visitor feedback. A visitor may review the same
// product more than once; the name is optional and rendered as "Anonymous"
// at presentation time when absent.
type ProductReview struct {
	BaseModel
	VisitorID  string    `json:"visitor_id" gorm:"size:64;not null;index"`
	ProductID  uuid.UUID `json:"product_id" gorm:"type:uuid;not null;index"`
	Name       *string   `json:"name,omitempty" gorm:"size:200"`
	ReviewText string    `json:"review_text" gorm:"type:text;not null"`

	Visitor VisitorProfile `json:"-" gorm:"foreignKey:VisitorID;references:VisitorID"`
	Product Product        `json:"-" gorm:"foreignKey:ProductID"`
}

// ReviewerName returns the display name, substituting "Anonymous" for
// reviews submitted without one.
func (r *ProductReview) ReviewerName() string {
	if r.Name == nil || *r.Name == "" {
		return "Anonymous"
	}
	return *r.Name
}
