// internal/models/user.go
package models

import (
	"golang.org/x/crypto/bcrypt"
)

// User is a registered account. The optional visitor link carries anonymous
// tracking history (views, likes) over into the account for cross-device
// recommendations.
type User struct {
	BaseModel
	FirstName    string  `json:"first_name" gorm:"size:100;not null"`
	LastName     string  `json:"last_name" gorm:"size:100;not null"`
	Username     string  `json:"username" gorm:"size:150;uniqueIndex;not null"`
	Email        string  `json:"email" gorm:"size:254;uniqueIndex;not null"`
	PasswordHash string  `json:"-" gorm:"size:128;not null"`
	VisitorID    *string `json:"-" gorm:"size:64;index"`

	Visitor *VisitorProfile `json:"-" gorm:"foreignKey:VisitorID;references:VisitorID"`
}

func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// ContactMessage stores a contact-form submission.
type ContactMessage struct {
	BaseModel
	Name    string `json:"name" gorm:"size:200;not null"`
	Phone   string `json:"phone" gorm:"size:20;not null"`
	Email   string `json:"email" gorm:"size:254;not null"`
	Message string `json:"message" gorm:"type:text;not null"`
}
