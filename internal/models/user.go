package models

import "time"

// User stores account identity, credentials, and the outstanding OTP state used
// for email verification and password resets. At most one OTP of each kind is
// active at a time; issuing a new one overwrites the previous code.
type User struct {
	BaseModel

	Name     string `gorm:"not null" json:"name"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`

	IsVerified bool `gorm:"default:false" json:"is_verified"`

	VerifyOTP          string     `json:"-"`
	VerifyOTPExpiresAt *time.Time `json:"-"`

	ResetOTP          string     `json:"-"`
	ResetOTPExpiresAt *time.Time `json:"-"`

	LastLoginAt *time.Time `json:"last_login_at"`

	Tasks []Task `gorm:"foreignKey:UserID" json:"-"`
}
