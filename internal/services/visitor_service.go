// internal/services/visitor_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/homedar/homedar-backend/internal/geo"
	"github.com/homedar/homedar-backend/internal/models"
)

// VisitorService owns anonymous visitor profiles. Every tracking operation
// funnels through Ensure, which keeps the profile's IP, location and
// last-seen timestamp current.
type VisitorService struct {
	db  *gorm.DB
	geo geo.Lookuper

	now func() time.Time
}

func NewVisitorService(db *gorm.DB, lookuper geo.Lookuper) *VisitorService {
	return &VisitorService{
		db:  db,
		geo: lookuper,
		now: time.Now,
	}
}

// Ensure creates the profile on first contact and refreshes it on every
// subsequent one. The forward geo lookup fires at most once per call, and
// only when the IP changed while the profile still lacks a place name;
// lookup failures leave the location fields empty and never surface.
func (s *VisitorService) Ensure(ctx context.Context, visitorID, clientIP string, browserLat, browserLon *float64) (*models.VisitorProfile, error) {
	if visitorID == "" {
		return nil, ErrVisitorIDRequired
	}

	now := s.now()

	var profile models.VisitorProfile
	err := s.db.First(&profile, "visitor_id = ?", visitorID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		profile = models.VisitorProfile{
			VisitorID: visitorID,
			FirstSeen: now,
			LastSeen:  now,
			LastIP:    clientIP,
			Latitude:  browserLat,
			Longitude: browserLon,
		}
		if err := s.db.Create(&profile).Error; err != nil {
			return nil, fmt.Errorf("failed to create visitor profile: %w", err)
		}
		return &profile, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load visitor profile: %w", err)
	}

	updates := map[string]interface{}{"last_seen": now}
	profile.LastSeen = now

	if clientIP != "" && clientIP != profile.LastIP {
		profile.LastIP = clientIP
		updates["last_ip"] = clientIP

		// The IP moved; fill in the place name if we never resolved one.
		if profile.Country == nil || profile.City == nil {
			loc := s.geo.Forward(ctx, clientIP)
			if loc.Country != "" {
				profile.Country = &loc.Country
				updates["country"] = loc.Country
			}
			if loc.City != "" {
				profile.City = &loc.City
				updates["city"] = loc.City
			}
			if loc.Latitude != nil {
				profile.Latitude = loc.Latitude
				updates["latitude"] = *loc.Latitude
			}
			if loc.Longitude != nil {
				profile.Longitude = loc.Longitude
				updates["longitude"] = *loc.Longitude
			}
		}
	}

	// Browser coordinates beat IP-derived ones; the backfill job re-resolves
	// the place name later.
	if browserLat != nil && (profile.Latitude == nil || *profile.Latitude != *browserLat) {
		profile.Latitude = browserLat
		updates["latitude"] = *browserLat
	}
	if browserLon != nil && (profile.Longitude == nil || *profile.Longitude != *browserLon) {
		profile.Longitude = browserLon
		updates["longitude"] = *browserLon
	}

	if err := s.db.Model(&models.VisitorProfile{}).Where("visitor_id = ?", visitorID).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update visitor profile: %w", err)
	}

	return &profile, nil
}

// Get returns the profile or nil when the visitor is unknown.
func (s *VisitorService) Get(visitorID string) (*models.VisitorProfile, error) {
	if visitorID == "" {
		return nil, nil
	}
	var profile models.VisitorProfile
	err := s.db.First(&profile, "visitor_id = ?", visitorID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load visitor profile: %w", err)
	}
	return &profile, nil
}
