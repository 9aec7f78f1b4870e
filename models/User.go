package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxFailedLoginAttempts is the number of consecutive failed sign-ins that locks an account.
const MaxFailedLoginAttempts = 5

// User represents an account that can authenticate against the auth gateway.
type User struct {
	ID                  uuid.UUID `gorm:"type:uuid;primaryKey"`
	Username            string    `gorm:"uniqueIndex;size:50;not null"`
	Email               string    `gorm:"uniqueIndex;size:255;not null"`
	PasswordHash        string    `gorm:"not null"`
	Enabled             bool      `gorm:"not null"`
	AccountLocked       bool      `gorm:"not null"`
	FailedLoginAttempts int       `gorm:"not null"`
	LastLogin           *time.Time
	Roles               RoleList `gorm:"type:varchar(255)"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// BeforeCreate assigns a random identifier when the caller did not provide one.
func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// RecordFailedLogin increments the failure counter and locks the account at the threshold.
func (u *User) RecordFailedLogin() {
	u.FailedLoginAttempts++
	if u.FailedLoginAttempts >= MaxFailedLoginAttempts {
		u.AccountLocked = true
	}
}

// RecordSuccessfulLogin resets the failure counter and stamps the login time.
func (u *User) RecordSuccessfulLogin(at time.Time) {
	u.FailedLoginAttempts = 0
	u.LastLogin = &at
}
