// internal/handlers/contact.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/homedar/homedar-backend/internal/models"
	"github.com/homedar/homedar-backend/internal/services"
	"github.com/homedar/homedar-backend/internal/utils"
)

type ContactHandler struct {
	db *gorm.DB
}

func NewContactHandler(db *gorm.DB) *ContactHandler {
	return &ContactHandler{db: db}
}

type contactRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Phone   string `json:"phone" validate:"required,max=20"`
	Email   string `json:"email" validate:"required,email"`
	Message string `json:"message" validate:"required,max=4000"`
}

// POST /api/contact-us
func (h *ContactHandler) Submit(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	msg := models.ContactMessage{
		Name:    req.Name,
		Phone:   req.Phone,
		Email:   services.NormalizeEmail(req.Email),
		Message: req.Message,
	}
	if err := services.SaveContactMessage(h.db, &msg); err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}
	utils.CreatedResponse(c, gin.H{"message": "Thanks, we will get back to you"})
}
