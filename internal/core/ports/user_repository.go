package ports

import (
	"context"

	"github.com/element-app/backend/internal/core/domain"
)

// UserRepository defines persistence operations for user accounts.
type UserRepository interface {
	// Create persists a new user together with its role assignment as a
	// single write. Returns domain.ErrUserExists on duplicate username.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// UpdateRole reassigns the user's role.
	UpdateRole(ctx context.Context, userID, roleID int64) error
	// UpdatePassword replaces the stored password hash.
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
	// UpdateProfile updates the mutable profile fields.
	UpdateProfile(ctx context.Context, userID int64, email string) (*domain.User, error)
	Delete(ctx context.Context, userID int64) error
}
