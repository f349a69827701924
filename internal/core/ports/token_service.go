package ports

import "github.com/element-app/backend/internal/core/domain"

// TokenService issues and verifies signed, time-bounded identity tokens.
// Both operations are pure and safe under unlimited concurrency.
type TokenService interface {
	Issue(userID, roleID int64) (string, error)
	// Verify returns domain.ErrInvalidToken for bad signature, malformed
	// payload, or expiry. The caller cannot distinguish the three.
	Verify(token string) (domain.Claims, error)
}
