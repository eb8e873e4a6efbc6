// internal/services/otp_service.go
package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/homedar/homedar-backend/internal/models"
	"github.com/homedar/homedar-backend/internal/utils"
)

// OTPTTL is how long an issued code stays valid.
const OTPTTL = 10 * time.Minute

var (
	ErrOTPInvalid         = errors.New("invalid verification code")
	ErrOTPExpired         = errors.New("verification code has expired")
	ErrOTPTooManyAttempts = errors.New("too many failed attempts, request a new code")
)

// OTPService issues and validates short-lived email verification codes.
// Issuing a new code supersedes the previous one for the same
// (email, purpose): at most one code per pair is ever live.
type OTPService struct {
	db *gorm.DB

	now func() time.Time
}

func NewOTPService(db *gorm.DB) *OTPService {
	return &OTPService{
		db:  db,
		now: time.Now,
	}
}

// Issue creates a fresh code for the email/purpose pair, retiring any code
// that is still active. The plaintext code is returned for delivery only and
// never serialized.
func (s *OTPService) Issue(email string, purpose models.OTPPurpose) (*models.EmailOTP, error) {
	email = NormalizeEmail(email)
	now := s.now()

	code, err := utils.GenerateOTPCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification code: %w", err)
	}

	otp := models.EmailOTP{
		Email:     email,
		Purpose:   purpose,
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(OTPTTL),
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.EmailOTP{}).
			Where("email = ? AND purpose = ? AND used = ? AND expires_at > ?", email, purpose, false, now).
			Updates(map[string]interface{}{"used": true, "expires_at": now}).Error; err != nil {
			return fmt.Errorf("failed to retire previous codes: %w", err)
		}
		if err := tx.Create(&otp).Error; err != nil {
			return fmt.Errorf("failed to store verification code: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &otp, nil
}

// Validate checks a submitted code against the newest code for the pair and
// consumes it on success. Outcomes are checked in a fixed order: a missing
// code reads the same as a wrong one, expiry beats lockout, and a locked
// code rejects even the correct digits.
func (s *OTPService) Validate(email string, purpose models.OTPPurpose, code string) error {
	email = NormalizeEmail(email)
	now := s.now()

	var otp models.EmailOTP
	err := s.db.
		Where("email = ? AND purpose = ? AND used = ?", email, purpose, false).
		Order("created_at DESC").
		First(&otp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrOTPInvalid
	}
	if err != nil {
		return fmt.Errorf("failed to look up verification code: %w", err)
	}

	if otp.IsExpired(now) {
		if err := s.db.Model(&otp).Update("used", true).Error; err != nil {
			return fmt.Errorf("failed to retire expired code: %w", err)
		}
		return ErrOTPExpired
	}

	if otp.IsLocked() {
		return ErrOTPTooManyAttempts
	}

	if otp.Code != code {
		otp.AttemptCount++
		if err := s.db.Model(&otp).Update("attempt_count", otp.AttemptCount).Error; err != nil {
			return fmt.Errorf("failed to record failed attempt: %w", err)
		}
		if otp.IsLocked() {
			return ErrOTPTooManyAttempts
		}
		return ErrOTPInvalid
	}

	if err := s.db.Model(&otp).Update("used", true).Error; err != nil {
		return fmt.Errorf("failed to consume verification code: %w", err)
	}
	return nil
}

// NormalizeEmail lowercases and trims an address so lookups and uniqueness
// checks agree on the key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
