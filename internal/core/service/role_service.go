package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/element-app/backend/internal/core/domain"
	"github.com/element-app/backend/internal/core/ports"
)

// RoleService implements role administration and the permission checks used
// by the authorization middleware.
type RoleService struct {
	roles ports.RoleRepository
	users ports.UserRepository
	log   zerolog.Logger
}

func NewRoleService(roles ports.RoleRepository, users ports.UserRepository, log zerolog.Logger) *RoleService {
	return &RoleService{roles: roles, users: users, log: log}
}

func (s *RoleService) CreateRole(ctx context.Context, name, description string) (*domain.Role, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: role name cannot be empty", domain.ErrInvalidInput)
	}

	role, err := s.roles.Create(ctx, &domain.Role{Name: name, Description: description})
	if err != nil {
		return nil, fmt.Errorf("create role: %w", err)
	}

	s.log.Info().Str("role", name).Int64("role_id", role.ID).Msg("role created")
	return role, nil
}

func (s *RoleService) GetRoleByName(ctx context.Context, name string) (*domain.Role, error) {
	return s.roles.FindByName(ctx, name)
}

func (s *RoleService) ListRoles(ctx context.Context) ([]*domain.Role, error) {
	return s.roles.List(ctx)
}

// AssignRole reassigns the target user's role. The requester must hold a
// role carrying PermManageRoles; otherwise the call fails before any state
// is touched.
func (s *RoleService) AssignRole(ctx context.Context, targetUserID, roleID, requesterRoleID int64) error {
	allowed, err := s.Allows(ctx, requesterRoleID, domain.PermManageRoles)
	if err != nil {
		return err
	}
	if !allowed {
		return domain.ErrForbidden
	}

	if _, err := s.roles.FindByID(ctx, roleID); err != nil {
		return err
	}

	if err := s.users.UpdateRole(ctx, targetUserID, roleID); err != nil {
		return err
	}

	s.log.Info().Int64("user_id", targetUserID).Int64("role_id", roleID).Msg("role assigned")
	return nil
}

// Allows resolves the role and consults the permission table.
func (s *RoleService) Allows(ctx context.Context, roleID int64, perm domain.Permission) (bool, error) {
	role, err := s.roles.FindByID(ctx, roleID)
	if err != nil {
		return false, err
	}
	return role.Allows(perm), nil
}

// EnsureDefaults creates the built-in Admin and User roles when missing.
// Called once at startup; registration depends on the User role existing.
func (s *RoleService) EnsureDefaults(ctx context.Context) error {
	defaults := []domain.Role{
		{Name: domain.RoleAdmin, Description: "Platform administrator"},
		{Name: domain.RoleUser, Description: "Default role for registered users"},
	}
	for _, r := range defaults {
		_, err := s.roles.FindByName(ctx, r.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrRoleNotFound) {
			return err
		}
		if _, err := s.roles.Create(ctx, &r); err != nil {
			return fmt.Errorf("seed role %s: %w", r.Name, err)
		}
	}
	return nil
}
