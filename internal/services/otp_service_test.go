// internal/services/otp_service_test.go
package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homedar/homedar-backend/internal/models"
)

func newOTPService(t *testing.T) *OTPService {
	return NewOTPService(openTestDB(t))
}

func TestIssueGenerates4DigitCode(t *testing.T) {
	svc := newOTPService(t)

	otp, err := svc.Issue("user@example.com", models.OTPPurposeSignup)
	require.NoError(t, err)
	assert.Len(t, otp.Code, 4)
	assert.WithinDuration(t, time.Now().Add(OTPTTL), otp.ExpiresAt, time.Second)
}

func TestIssueSupersedesPreviousCode(t *testing.T) {
	svc := newOTPService(t)

	first, err := svc.Issue("user@example.com", models.OTPPurposeSignup)
	require.NoError(t, err)
	second, err := svc.Issue("user@example.com", models.OTPPurposeSignup)
	require.NoError(t, err)

	// The first code is retired the moment the second is issued.
	var stored models.EmailOTP
	require.NoError(t, svc.db.First(&stored, "id = ?", first.ID).Error)
	assert.True(t, stored.Used)

	assert.NoError(t, svc.Validate("user@example.com", models.OTPPurposeSignup, second.Code))
}

func TestIssueKeepsPurposesSeparate(t *testing.T) {
	svc := newOTPService(t)

	signup, err := svc.Issue("user@example.com", models.OTPPurposeSignup)
	require.NoError(t, err)
	_, err = svc.Issue("user@example.com", models.OTPPurposePasswordReset)
	require.NoError(t, err)

	// A reset code must not retire the signup code.
	assert.NoError(t, svc.Validate("user@example.com", models.OTPPurposeSignup, signup.Code))
}

func TestValidateUnknownEmailReadsAsInvalid(t *testing.T) {
	svc := newOTPService(t)

	err := svc.Validate("nobody@example.com", models.OTPPurposeSignup, "1234")
	assert.ErrorIs(t, err, ErrOTPInvalid)
}

func TestValidateExpiredCode(t *testing.T) {
	svc := newOTPService(t)

	otp, err := svc.Issue("user@example.com", models.OTPPurposeSignup)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(OTPTTL + time.Minute) }

	err = svc.Validate("user@example.com", models.OTPPurposeSignup, otp.Code)
	assert.ErrorIs(t, err, ErrOTPExpired)

	// The expired code is retired; the next attempt sees nothing at all.
	err = svc.Validate("user@example.com", models.OTPPurposeSignup, otp.Code)
	assert.ErrorIs(t, err, ErrOTPInvalid)
}

func TestValidateLockoutAfterMaxAttempts(t *testing.T) {
	svc := newOTPService(t)

	otp, err := svc.Issue("user@example.com", models.OTPPurposeSignup)
	require.NoError(t, err)

	wrong := "0000"
	if otp.Code == wrong {
		wrong = "1111"
	}

	for i := 0; i < models.OTPMaxAttempts-1; i++ {
		err = svc.Validate("user@example.com", models.OTPPurposeSignup, wrong)
		assert.ErrorIs(t, err, ErrOTPInvalid)
	}

	// The attempt that crosses the limit reports the lockout.
	err = svc.Validate("user@example.com", models.OTPPurposeSignup, wrong)
	assert.ErrorIs(t, err, ErrOTPTooManyAttempts)

	// Even the correct digits are rejected once locked.
	err = svc.Validate("user@example.com", models.OTPPurposeSignup, otp.Code)
	assert.ErrorIs(t, err, ErrOTPTooManyAttempts)
}

func TestValidateLockedCodeDoesNotCountFurtherAttempts(t *testing.T) {
	svc := newOTPService(t)

	otp, err := svc.Issue("user@example.com", models.OTPPurposeSignup)
	require.NoError(t, err)

	require.NoError(t, svc.db.Model(&models.EmailOTP{}).
		Where("id = ?", otp.ID).
		Update("attempt_count", models.OTPMaxAttempts).Error)

	err = svc.Validate("user@example.com", models.OTPPurposeSignup, "9999")
	assert.ErrorIs(t, err, ErrOTPTooManyAttempts)

	var stored models.EmailOTP
	require.NoError(t, svc.db.First(&stored, "id = ?", otp.ID).Error)
	assert.Equal(t, models.OTPMaxAttempts, stored.AttemptCount)
}

func TestValidateSuccessConsumesCode(t *testing.T) {
	svc := newOTPService(t)

	otp, err := svc.Issue("user@example.com", models.OTPPurposeSignup)
	require.NoError(t, err)

	require.NoError(t, svc.Validate("user@example.com", models.OTPPurposeSignup, otp.Code))

	// Single use: the same code cannot be redeemed twice.
	err = svc.Validate("user@example.com", models.OTPPurposeSignup, otp.Code)
	assert.ErrorIs(t, err, ErrOTPInvalid)
}

func TestValidateNormalizesEmail(t *testing.T) {
	svc := newOTPService(t)

	otp, err := svc.Issue("  User@Example.COM ", models.OTPPurposeSignup)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", otp.Email)

	assert.NoError(t, svc.Validate("USER@example.com", models.OTPPurposeSignup, otp.Code))
}
