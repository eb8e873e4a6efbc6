// internal/services/auth_service_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homedar/homedar-backend/internal/config"
	"github.com/homedar/homedar-backend/internal/models"
)

// captureSender records outgoing mail so tests can fish out the code.
type captureSender struct {
	to       []string
	subjects []string
	bodies   []string
}

func (s *captureSender) Send(to, subject, htmlBody string) error {
	s.to = append(s.to, to)
	s.subjects = append(s.subjects, subject)
	s.bodies = append(s.bodies, htmlBody)
	return nil
}

func newAuthService(t *testing.T) (*AuthService, *captureSender) {
	db := openTestDB(t)
	sender := &captureSender{}
	otps := NewOTPService(db)
	svc := NewAuthService(db, otps, sender, config.JWTConfig{
		SecretKey:       "test-secret",
		AccessTokenTTL:  1,
		RefreshTokenTTL: 24,
	})
	return svc, sender
}

// latestCode pulls the newest stored code straight from the database.
func latestCode(t *testing.T, svc *AuthService, email string, purpose models.OTPPurpose) string {
	t.Helper()

	var otp models.EmailOTP
	require.NoError(t, svc.db.
		Where("email = ? AND purpose = ?", email, purpose).
		Order("created_at DESC").
		First(&otp).Error)
	return otp.Code
}

func TestSignupFlow(t *testing.T) {
	svc, sender := newAuthService(t)

	require.NoError(t, svc.RequestSignupCode("new@example.com"))
	require.Len(t, sender.to, 1)
	assert.Equal(t, "new@example.com", sender.to[0])

	code := latestCode(t, svc, "new@example.com", models.OTPPurposeSignup)

	result, err := svc.VerifySignupAndRegister(SignupInput{
		FirstName: "Iva",
		LastName:  "Petrova",
		Username:  "iva_p",
		Email:     "new@example.com",
		Password:  "Sup3rSecret",
		Code:      code,
	})
	require.NoError(t, err)
	assert.Equal(t, "iva_p", result.User.Username)
	assert.NotEmpty(t, result.Tokens.AccessToken)
	assert.NotEmpty(t, result.Tokens.RefreshToken)
	assert.NotEqual(t, "Sup3rSecret", result.User.PasswordHash)
}

func TestSignupWrongCodeRejected(t *testing.T) {
	svc, _ := newAuthService(t)

	require.NoError(t, svc.RequestSignupCode("new@example.com"))
	code := latestCode(t, svc, "new@example.com", models.OTPPurposeSignup)

	wrong := "0000"
	if code == wrong {
		wrong = "1111"
	}

	_, err := svc.VerifySignupAndRegister(SignupInput{
		FirstName: "Iva",
		LastName:  "Petrova",
		Username:  "iva_p",
		Email:     "new@example.com",
		Password:  "Sup3rSecret",
		Code:      wrong,
	})
	assert.ErrorIs(t, err, ErrOTPInvalid)

	var count int64
	require.NoError(t, svc.db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestSignupCodeRequestForTakenEmail(t *testing.T) {
	svc, sender := newAuthService(t)
	registerUser(t, svc, "taken@example.com", "taken_user")

	err := svc.RequestSignupCode("taken@example.com")
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.Empty(t, sender.to)
}

func TestSignupLinksVisitorProfile(t *testing.T) {
	svc, _ := newAuthService(t)

	require.NoError(t, svc.db.Create(&models.VisitorProfile{VisitorID: "v-1"}).Error)
	require.NoError(t, svc.RequestSignupCode("new@example.com"))
	code := latestCode(t, svc, "new@example.com", models.OTPPurposeSignup)

	visitorID := "v-1"
	result, err := svc.VerifySignupAndRegister(SignupInput{
		FirstName: "Iva",
		LastName:  "Petrova",
		Username:  "iva_p",
		Email:     "new@example.com",
		Password:  "Sup3rSecret",
		Code:      code,
		VisitorID: &visitorID,
	})
	require.NoError(t, err)
	require.NotNil(t, result.User.VisitorID)
	assert.Equal(t, "v-1", *result.User.VisitorID)
}

func TestSignupUnknownVisitorIDRejected(t *testing.T) {
	svc, _ := newAuthService(t)

	require.NoError(t, svc.RequestSignupCode("new@example.com"))
	code := latestCode(t, svc, "new@example.com", models.OTPPurposeSignup)

	stale := "stale-visitor"
	_, err := svc.VerifySignupAndRegister(SignupInput{
		FirstName: "Iva",
		LastName:  "Petrova",
		Username:  "iva_p",
		Email:     "new@example.com",
		Password:  "Sup3rSecret",
		Code:      code,
		VisitorID: &stale,
	})
	assert.ErrorIs(t, err, ErrInvalidVisitorID)
}

func TestLoginByUsernameAndEmail(t *testing.T) {
	svc, _ := newAuthService(t)
	registerUser(t, svc, "iva@example.com", "iva_p")

	byUsername, err := svc.Login("iva_p", "Sup3rSecret")
	require.NoError(t, err)
	assert.Equal(t, "iva@example.com", byUsername.User.Email)

	byEmail, err := svc.Login("iva@example.com", "Sup3rSecret")
	require.NoError(t, err)
	assert.Equal(t, "iva_p", byEmail.User.Username)
}

func TestLoginFailuresCollapse(t *testing.T) {
	svc, _ := newAuthService(t)
	registerUser(t, svc, "iva@example.com", "iva_p")

	_, wrongPassword := svc.Login("iva_p", "nope")
	_, unknownUser := svc.Login("ghost", "nope")

	assert.ErrorIs(t, wrongPassword, ErrInvalidLogin)
	assert.ErrorIs(t, unknownUser, ErrInvalidLogin)
}

func TestRefreshIssuesNewTokenPair(t *testing.T) {
	svc, _ := newAuthService(t)
	registerUser(t, svc, "iva@example.com", "iva_p")

	login, err := svc.Login("iva_p", "Sup3rSecret")
	require.NoError(t, err)

	refreshed, err := svc.Refresh(login.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "iva_p", refreshed.User.Username)
	assert.NotEmpty(t, refreshed.Tokens.AccessToken)
	assert.NotEmpty(t, refreshed.Tokens.RefreshToken)
}

func TestRefreshRejectsGarbageToken(t *testing.T) {
	svc, _ := newAuthService(t)

	_, err := svc.Refresh("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestRefreshRejectsDeletedUser(t *testing.T) {
	svc, _ := newAuthService(t)
	user := registerUser(t, svc, "iva@example.com", "iva_p")

	login, err := svc.Login("iva_p", "Sup3rSecret")
	require.NoError(t, err)
	require.NoError(t, svc.db.Delete(&models.User{}, "id = ?", user.ID).Error)

	_, err = svc.Refresh(login.Tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestPasswordResetFlow(t *testing.T) {
	svc, sender := newAuthService(t)
	registerUser(t, svc, "iva@example.com", "iva_p")

	require.NoError(t, svc.RequestPasswordResetCode("iva@example.com"))
	require.Len(t, sender.to, 1)

	code := latestCode(t, svc, "iva@example.com", models.OTPPurposePasswordReset)
	require.NoError(t, svc.ConfirmPasswordReset("iva@example.com", code, "N3wPassword"))

	_, err := svc.Login("iva_p", "Sup3rSecret")
	assert.ErrorIs(t, err, ErrInvalidLogin)

	_, err = svc.Login("iva_p", "N3wPassword")
	assert.NoError(t, err)
}

func TestPasswordResetByUsername(t *testing.T) {
	svc, sender := newAuthService(t)
	registerUser(t, svc, "iva@example.com", "iva_p")

	// The code still goes to the account's email address.
	require.NoError(t, svc.RequestPasswordResetCode("iva_p"))
	require.Len(t, sender.to, 1)
	assert.Equal(t, "iva@example.com", sender.to[0])

	code := latestCode(t, svc, "iva@example.com", models.OTPPurposePasswordReset)
	require.NoError(t, svc.ConfirmPasswordReset("iva_p", code, "N3wPassword"))

	_, err := svc.Login("iva_p", "N3wPassword")
	assert.NoError(t, err)
}

func TestPasswordResetConfirmUnknownIdentifier(t *testing.T) {
	svc, _ := newAuthService(t)

	err := svc.ConfirmPasswordReset("ghost", "1234", "N3wPassword")
	assert.ErrorIs(t, err, ErrOTPInvalid)
}

func TestPasswordResetUnknownEmailSilent(t *testing.T) {
	svc, sender := newAuthService(t)

	// No account, no error, no mail. The response must not leak existence.
	require.NoError(t, svc.RequestPasswordResetCode("ghost@example.com"))
	assert.Empty(t, sender.to)
}

func registerUser(t *testing.T, svc *AuthService, email, username string) *models.User {
	t.Helper()

	user := models.User{
		FirstName: "Iva",
		LastName:  "Petrova",
		Username:  username,
		Email:     email,
	}
	require.NoError(t, user.SetPassword("Sup3rSecret"))
	require.NoError(t, svc.db.Create(&user).Error)
	return &user
}
