package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a user of the store.
//
// OTP and OTPIssuedAt are both set on signup and on each resend, and both
// cleared together when verification succeeds. They are never half-set.
// IsVerified only ever moves from false to true.
type User struct {
	ID          string     `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	Username    string     `json:"username" gorm:"uniqueIndex;type:varchar(150)" validate:"required,min=3,max=150"`
	Email       string     `json:"email" gorm:"uniqueIndex;type:varchar(255)" validate:"required,email"`
	Phone       string     `json:"phone" gorm:"uniqueIndex;type:varchar(20)" validate:"required,min=6,max=20"`
	Password    string     `gorm:"type:varchar(255)" validate:"required,min=6"` // No json tag for security
	IsVerified  bool       `json:"is_verified" gorm:"default:false"`
	OTP         *string    `json:"-" gorm:"type:varchar(6)"`
	OTPIssuedAt *time.Time `json:"-"`
	gorm.Model             // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}
