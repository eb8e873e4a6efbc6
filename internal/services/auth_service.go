// internal/services/auth_service.go
package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/homedar/homedar-backend/internal/config"
	"github.com/homedar/homedar-backend/internal/models"
	"github.com/homedar/homedar-backend/internal/utils"
)

// AuthService implements the code-first signup and password-reset flows plus
// plain login. Registration is two requests: the first emails a verification
// code, the second carries the code together with the account details.
type AuthService struct {
	db     *gorm.DB
	otps   *OTPService
	sender EmailSender
	jwtCfg config.JWTConfig
}

type SignupInput struct {
	FirstName string
	LastName  string
	Username  string
	Email     string
	Password  string
	Code      string
	VisitorID *string
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type AuthResult struct {
	User   *models.User
	Tokens TokenPair
}

func NewAuthService(db *gorm.DB, otps *OTPService, sender EmailSender, jwtCfg config.JWTConfig) *AuthService {
	return &AuthService{
		db:     db,
		otps:   otps,
		sender: sender,
		jwtCfg: jwtCfg,
	}
}

// RequestSignupCode emails a verification code to an address that is not yet
// registered.
func (s *AuthService) RequestSignupCode(email string) error {
	email = NormalizeEmail(email)

	var count int64
	if err := s.db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check email: %w", err)
	}
	if count > 0 {
		return ErrEmailTaken
	}

	otp, err := s.otps.Issue(email, models.OTPPurposeSignup)
	if err != nil {
		return err
	}

	if err := SendOTPEmail(s.sender, email, models.OTPPurposeSignup, otp.Code); err != nil {
		logrus.WithError(err).WithField("email", email).Error("Failed to deliver signup code")
	}
	return nil
}

// VerifySignupAndRegister consumes the verification code and creates the
// account. The code is checked before anything else so attackers cannot
// probe which usernames or emails exist without a valid code.
func (s *AuthService) VerifySignupAndRegister(in SignupInput) (*AuthResult, error) {
	email := NormalizeEmail(in.Email)

	if err := s.otps.Validate(email, models.OTPPurposeSignup, in.Code); err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	if err := s.db.Model(&models.User{}).Where("username = ?", in.Username).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if count > 0 {
		return nil, ErrUsernameTaken
	}

	// An unknown visitor id is rejected rather than silently dropped, so the
	// client learns its stored id went stale.
	if in.VisitorID != nil && *in.VisitorID != "" {
		var n int64
		if err := s.db.Model(&models.VisitorProfile{}).Where("visitor_id = ?", *in.VisitorID).Count(&n).Error; err != nil {
			return nil, fmt.Errorf("failed to check visitor profile: %w", err)
		}
		if n == 0 {
			return nil, ErrInvalidVisitorID
		}
	} else {
		in.VisitorID = nil
	}

	user := models.User{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Username:  in.Username,
		Email:     email,
		VisitorID: in.VisitorID,
	}
	if err := user.SetPassword(in.Password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	tokens, err := s.issueTokens(&user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: &user, Tokens: tokens}, nil
}

// Login authenticates by username or email. Both not-found and wrong-password
// collapse to the same error.
func (s *AuthService) Login(identifier, password string) (*AuthResult, error) {
	user, err := s.findByIdentifier(identifier)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidLogin
	}

	if err := user.CheckPassword(password); err != nil {
		return nil, ErrInvalidLogin
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Tokens: tokens}, nil
}

// Refresh exchanges a valid refresh token for a fresh token pair. A token
// for a user that no longer exists reads the same as a bad token.
func (s *AuthService) Refresh(refreshToken string) (*AuthResult, error) {
	subject, err := utils.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidRefresh
	}
	userID, err := uuid.Parse(subject)
	if err != nil {
		return nil, ErrInvalidRefresh
	}

	var user models.User
	err = s.db.First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidRefresh
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	tokens, err := s.issueTokens(&user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: &user, Tokens: tokens}, nil
}

// RequestPasswordResetCode emails a reset code to the account behind the
// given username or email. An unknown identifier gets the same nil result as
// a known one; the response must not reveal whether an account exists.
func (s *AuthService) RequestPasswordResetCode(identifier string) error {
	user, err := s.findByIdentifier(identifier)
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}

	otp, err := s.otps.Issue(user.Email, models.OTPPurposePasswordReset)
	if err != nil {
		return err
	}

	if err := SendOTPEmail(s.sender, user.Email, models.OTPPurposePasswordReset, otp.Code); err != nil {
		logrus.WithError(err).WithField("email", user.Email).Error("Failed to deliver password reset code")
	}
	return nil
}

// ConfirmPasswordReset consumes the reset code and sets the new password.
// An unknown identifier reads the same as a wrong code.
func (s *AuthService) ConfirmPasswordReset(identifier, code, newPassword string) error {
	user, err := s.findByIdentifier(identifier)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrOTPInvalid
	}

	if err := s.otps.Validate(user.Email, models.OTPPurposePasswordReset, code); err != nil {
		return err
	}

	if err := user.SetPassword(newPassword); err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.db.Model(user).Update("password_hash", user.PasswordHash).Error; err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// findByIdentifier resolves a username or email to a user, nil when no
// account matches.
func (s *AuthService) findByIdentifier(identifier string) (*models.User, error) {
	identifier = strings.TrimSpace(identifier)

	var user models.User
	err := s.db.
		Where("username = ? OR email = ?", identifier, NormalizeEmail(identifier)).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

// GetProfile loads a user by id.
func (s *AuthService) GetProfile(userID uuid.UUID) (*models.User, error) {
	var user models.User
	err := s.db.First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

func (s *AuthService) issueTokens(user *models.User) (TokenPair, error) {
	access, err := utils.GenerateJWT(user.ID, user.Username, s.jwtCfg.AccessTokenTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to sign access token: %w", err)
	}
	refresh, err := utils.GenerateRefreshToken(user.ID, s.jwtCfg.RefreshTokenTTL)
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
