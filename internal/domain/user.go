package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of roles a user can hold within a business.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEditor   Role = "editor"
	RoleApprover Role = "approver"
	RoleViewer   Role = "viewer"
)

// DefaultRole is assigned when a user is created without an explicit role.
const DefaultRole = RoleViewer

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleEditor, RoleApprover, RoleViewer:
		return true
	}
	return false
}

// User represents an account. BusinessID is nil until the user is assigned
// to a business; an unassigned user cannot perform any business-scoped action.
type User struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Username     string     `json:"username" db:"username"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Role         Role       `json:"role" db:"role"`
	BusinessID   *uuid.UUID `json:"business_id" db:"business_id"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	DateJoined   time.Time  `json:"date_joined" db:"date_joined"`
}

// RefreshToken is an opaque, revocable token backing the JWT refresh flow.
type RefreshToken struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Token     string    `json:"token" db:"token"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	Revoked   bool      `json:"revoked" db:"revoked"`
}
