package user

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser   = "user"
	RoleEditor = "editor"
	RoleAdmin  = "admin"
)

// IsValidRole reports whether role is one of the known roles.
func IsValidRole(role string) bool {
	switch role {
	case RoleUser, RoleEditor, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID                      uuid.UUID  `json:"id"`
	Email                   string     `json:"email"`
	PasswordHash            *string    `json:"-"` // never serialized
	DisplayName             *string    `json:"displayName"`
	Role                    string     `json:"role"`
	EmailVerified           bool       `json:"emailVerified"`
	EmailVerificationToken  *string    `json:"-"`
	EmailVerificationSentAt *time.Time `json:"-"`
	CreatedAt               time.Time  `json:"createdAt"`
	UpdatedAt               time.Time  `json:"updatedAt"`
}

// HasPassword is false for accounts created without a local password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// CreateParams holds the fields needed to insert a user.
type CreateParams struct {
	Email             string
	PasswordHash      *string
	DisplayName       *string
	Role              string
	VerificationToken *string
}
