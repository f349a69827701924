package ports

import (
	"context"

	"github.com/element-app/backend/internal/core/domain"
)

// RoleService covers role administration and the permission checks consulted
// by the authorization middleware.
type RoleService interface {
	CreateRole(ctx context.Context, name, description string) (*domain.Role, error)
	GetRoleByName(ctx context.Context, name string) (*domain.Role, error)
	ListRoles(ctx context.Context) ([]*domain.Role, error)
	// AssignRole succeeds only when the requester's role carries
	// domain.PermManageRoles; otherwise domain.ErrForbidden, no state mutated.
	AssignRole(ctx context.Context, targetUserID, roleID, requesterRoleID int64) error
	// Allows resolves roleID and consults the permission table.
	Allows(ctx context.Context, roleID int64, perm domain.Permission) (bool, error)
}
