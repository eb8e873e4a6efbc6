// internal/services/errors.go
package services

import "errors"

var (
	ErrVisitorIDRequired = errors.New("visitor id is required")
	ErrProductNotFound   = errors.New("product not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrEmailTaken        = errors.New("a user with this email already exists")
	ErrUsernameTaken     = errors.New("username already taken")
	ErrInvalidVisitorID  = errors.New("invalid visitor_id, visitor profile not found")
	ErrInvalidLogin      = errors.New("invalid username/email or password")
	ErrInvalidRefresh    = errors.New("invalid or expired refresh token")
)
