// internal/models/otp.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OTPMaxAttempts is the number of wrong submissions allowed before a code
// locks itself.
const OTPMaxAttempts = 5

// EmailOTP is a short-lived 4-digit one-time code for signup and
// password-reset flows. Per (email, purpose) at most one active code exists:
// issuing a new one marks any prior active code used.
type EmailOTP struct {
	ID           uuid.UUID  `json:"id" gorm:"type:uuid;primary_key"`
	Email        string     `json:"email" gorm:"size:254;not null;index:idx_email_otps_pair"`
	Purpose      OTPPurpose `json:"purpose" gorm:"size:32;not null;index:idx_email_otps_pair"`
	Code         string     `json:"-" gorm:"size:4;not null"`
	CreatedAt    time.Time  `json:"created_at"`
	ExpiresAt    time.Time  `json:"expires_at"`
	Used         bool       `json:"used" gorm:"default:false"`
	AttemptCount int        `json:"attempt_count" gorm:"default:0"`
	MaxAttempts  int        `json:"max_attempts" gorm:"default:5"`
}

func (o *EmailOTP) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.MaxAttempts == 0 {
		o.MaxAttempts = OTPMaxAttempts
	}
	return nil
}

func (o *EmailOTP) IsExpired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

func (o *EmailOTP) IsLocked() bool {
	return o.AttemptCount >= o.MaxAttempts
}
