package domain

import (
	"errors"
	"time"
)

const (
	// RoleAdmin and RoleUser are the built-in roles seeded at startup.
	// Additional roles can be created at runtime but carry no permissions
	// until added to the permission table.
	RoleAdmin = "Admin"
	RoleUser  = "User"
)

var ErrUserExists = errors.New("user already exists")
var ErrUserNotFound = errors.New("user not found")
var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrRoleNotFound = errors.New("role not found")
var ErrForbidden = errors.New("access forbidden")
var ErrInvalidToken = errors.New("invalid token")
var ErrInvalidResetToken = errors.New("invalid or expired reset token")
var ErrInvalidInput = errors.New("invalid input")

// User models an authenticated actor in the system.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	RoleID       int64     `json:"role_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Role is an administrative grouping of users. Roles are immutable once
// referenced by a user.
type Role struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Claims is the decoded, time-bounded identity payload carried by a token.
// Never persisted; reconstructed on every verification.
type Claims struct {
	UserID    int64
	RoleID    int64
	ExpiresAt time.Time
}

// Permission names a privileged action gated by role.
type Permission string

const (
	PermManageRoles  Permission = "manage_roles"
	PermManageLedger Permission = "manage_ledger"
)

// rolePermissions is the declarative permission table: permission → role
// names allowed to perform it. Kept in one place so the policy is auditable
// and testable in isolation.
var rolePermissions = map[Permission][]string{
	PermManageRoles:  {RoleAdmin},
	PermManageLedger: {RoleAdmin},
}

// Allows reports whether the role is permitted to perform p.
func (r Role) Allows(p Permission) bool {
	for _, name := range rolePermissions[p] {
		if name == r.Name {
			return true
		}
	}
	return false
}
