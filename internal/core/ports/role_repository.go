package ports

import (
	"context"

	"github.com/element-app/backend/internal/core/domain"
)

// RoleRepository defines persistence operations for role definitions.
type RoleRepository interface {
	Create(ctx context.Context, role *domain.Role) (*domain.Role, error)
	FindByID(ctx context.Context, id int64) (*domain.Role, error)
	FindByName(ctx context.Context, name string) (*domain.Role, error)
	List(ctx context.Context) ([]*domain.Role, error)
}
