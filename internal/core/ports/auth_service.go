package ports

import (
	"context"

	"github.com/element-app/backend/internal/core/domain"
)

type AuthService interface {
	Register(ctx context.Context, username, password, email string) (*domain.User, error)
	Login(ctx context.Context, username, password string) (string, *domain.User, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, token, newPassword string) error
}

// ResetTokenStore holds single-use password reset tokens with a TTL.
type ResetTokenStore interface {
	Store(ctx context.Context, token string, userID int64) error
	// Consume atomically reads and deletes the token. Returns
	// domain.ErrInvalidResetToken when absent or expired.
	Consume(ctx context.Context, token string) (int64, error)
}
