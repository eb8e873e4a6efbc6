// internal/handlers/auth.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/homedar/homedar-backend/internal/models"
	"github.com/homedar/homedar-backend/internal/services"
	"github.com/homedar/homedar-backend/internal/utils"
)

type AuthHandler struct {
	auth *services.AuthService
	gate *services.RateGate
}

func NewAuthHandler(auth *services.AuthService, gate *services.RateGate) *AuthHandler {
	return &AuthHandler{
		auth: auth,
		gate: gate,
	}
}

type requestCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// POST /api/auth/signup/request-code
func (h *AuthHandler) RequestSignupCode(c *gin.Context) {
	var req requestCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	gate := h.gate.Allow(models.RateScopeSignup, c.ClientIP(), services.NormalizeEmail(req.Email))
	if !gate.Allowed {
		utils.RateLimitedResponse(c, "Too many signup attempts, try again later", int(gate.RetryAfter.Seconds()))
		return
	}

	if err := h.auth.RequestSignupCode(req.Email); err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			utils.BadRequestResponse(c, err.Error(), nil)
			return
		}
		utils.InternalErrorResponse(c, "")
		return
	}
	utils.SuccessResponse(c, gin.H{"message": "Verification code sent"})
}

type signupRequest struct {
	FirstName string  `json:"first_name" validate:"required,max=100"`
	LastName  string  `json:"last_name" validate:"required,max=100"`
	Username  string  `json:"username" validate:"required,username"`
	Email     string  `json:"email" validate:"required,email"`
	Password  string  `json:"password" validate:"required,strong_password"`
	Code      string  `json:"code" validate:"required,len=4,numeric"`
	VisitorID *string `json:"visitor_id" validate:"omitempty,max=64"`
}

// POST /api/auth/signup/verify
func (h *AuthHandler) VerifySignup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	result, err := h.auth.VerifySignupAndRegister(services.SignupInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		Code:      req.Code,
		VisitorID: req.VisitorID,
	})
	if err != nil {
		h.writeAuthError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"user":          result.User,
		"token":         result.Tokens.AccessToken,
		"refresh_token": result.Tokens.RefreshToken,
		"visitor_id":    result.User.VisitorID,
	})
}

type loginRequest struct {
	Identifier string `json:"identifier" validate:"required,max=254"`
	Password   string `json:"password" validate:"required"`
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	gate := h.gate.Allow(models.RateScopeLogin, c.ClientIP(), req.Identifier)
	if !gate.Allowed {
		utils.RateLimitedResponse(c, "Too many login attempts, try again later", int(gate.RetryAfter.Seconds()))
		return
	}

	result, err := h.auth.Login(req.Identifier, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidLogin) {
			utils.UnauthorizedResponse(c, err.Error())
			return
		}
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"user":          result.User,
		"token":         result.Tokens.AccessToken,
		"refresh_token": result.Tokens.RefreshToken,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// POST /api/auth/token/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	result, err := h.auth.Refresh(req.RefreshToken)
	if err != nil {
		if errors.Is(err, services.ErrInvalidRefresh) {
			utils.UnauthorizedResponse(c, err.Error())
			return
		}
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"token":         result.Tokens.AccessToken,
		"refresh_token": result.Tokens.RefreshToken,
	})
}

type passwordResetRequest struct {
	UsernameOrEmail string `json:"username_or_email" validate:"required,max=254"`
}

// POST /api/auth/password-reset/request-code
func (h *AuthHandler) RequestPasswordResetCode(c *gin.Context) {
	var req passwordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	gate := h.gate.Allow(models.RateScopePasswordReset, c.ClientIP(), services.NormalizeEmail(req.UsernameOrEmail))
	if !gate.Allowed {
		utils.RateLimitedResponse(c, "Too many reset attempts, try again later", int(gate.RetryAfter.Seconds()))
		return
	}

	if err := h.auth.RequestPasswordResetCode(req.UsernameOrEmail); err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	// The same message goes out whether or not the account exists.
	utils.SuccessResponse(c, gin.H{"message": "If the account exists, a reset code has been sent"})
}

type passwordResetConfirmRequest struct {
	UsernameOrEmail string `json:"username_or_email" validate:"required,max=254"`
	Code            string `json:"code" validate:"required,len=4,numeric"`
	NewPassword     string `json:"new_password" validate:"required,strong_password"`
}

// POST /api/auth/password-reset/confirm
func (h *AuthHandler) ConfirmPasswordReset(c *gin.Context) {
	var req passwordResetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	if err := h.auth.ConfirmPasswordReset(req.UsernameOrEmail, req.Code, req.NewPassword); err != nil {
		h.writeAuthError(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{"message": "Password updated"})
}

// GET /api/auth/profile
func (h *AuthHandler) Profile(c *gin.Context) {
	userIDStr, ok := utils.GetUserIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		utils.UnauthorizedResponse(c, "")
		return
	}

	user, err := h.auth.GetProfile(userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			utils.NotFoundResponse(c, "User not found")
			return
		}
		utils.InternalErrorResponse(c, "")
		return
	}
	utils.SuccessResponse(c, user)
}

func (h *AuthHandler) writeAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrOTPInvalid):
		utils.ErrorResponse(c, http.StatusBadRequest, utils.CodeInvalidCode, "Invalid verification code", nil)
	case errors.Is(err, services.ErrOTPExpired):
		utils.ErrorResponse(c, http.StatusBadRequest, utils.CodeExpired, "Verification code has expired", nil)
	case errors.Is(err, services.ErrOTPTooManyAttempts):
		utils.ErrorResponse(c, http.StatusTooManyRequests, utils.CodeTooManyAttempts, "Too many failed attempts, request a new code", nil)
	case errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrUsernameTaken),
		errors.Is(err, services.ErrInvalidVisitorID):
		utils.BadRequestResponse(c, err.Error(), nil)
	case errors.Is(err, services.ErrUserNotFound):
		utils.NotFoundResponse(c, "User not found")
	default:
		utils.InternalErrorResponse(c, "")
	}
}
