package service

import (
	"context"
	"fmt"
	"time"

	"chatspace/internal/model"
	"chatspace/internal/policy"
	"chatspace/internal/repository"

	"github.com/google/uuid"
)

// --- DTOs ---

type AssignRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

type RoleResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsSystem    bool      `json:"is_system"`
	Permissions []string  `json:"permissions"`
	CreatedAt   string    `json:"created_at"`
}

// RoleService manages the role/permission catalog and user role assignment.
type RoleService interface {
	ListRoles(ctx context.Context) ([]RoleResponse, error)
	ListPermissions(ctx context.Context) ([]model.Permission, error)
	AssignRoleToUser(ctx context.Context, userID uuid.UUID, roleName string) error
	RevokeRoleFromUser(ctx context.Context, userID uuid.UUID, roleName string) error
	SeedDefaultRolesAndPermissions(ctx context.Context) error
}

type roleService struct {
	roles repository.RoleRepository
	users repository.UserRepository
}

// NewRoleService returns a new instance of RoleService
func NewRoleService(roles repository.RoleRepository, users repository.UserRepository) RoleService {
	return &roleService{roles: roles, users: users}
}

func toRoleResponse(role model.Role) RoleResponse {
	perms := make([]string, 0, len(role.Permissions))
	for _, p := range role.Permissions {
		perms = append(perms, p.Code)
	}
	return RoleResponse{
		ID:          role.ID,
		Name:        role.Name,
		Description: role.Description,
		IsSystem:    role.IsSystem,
		Permissions: perms,
		CreatedAt:   role.CreatedAt.Format(time.RFC3339),
	}
}

func (s *roleService) ListRoles(ctx context.Context) ([]RoleResponse, error) {
	roles, err := s.roles.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roles: %w", err)
	}

	res := make([]RoleResponse, 0, len(roles))
	for _, r := range roles {
		res = append(res, toRoleResponse(r))
	}
	return res, nil
}

func (s *roleService) ListPermissions(ctx context.Context) ([]model.Permission, error) {
	return s.roles.ListPermissions(ctx)
}

func (s *roleService) AssignRoleToUser(ctx context.Context, userID uuid.UUID, roleName string) error {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return ErrNotFound
	}
	role, err := s.roles.FindByName(ctx, roleName)
	if err != nil {
		return ErrNotFound
	}
	return s.users.AssignRole(ctx, userID, role.ID)
}

func (s *roleService) RevokeRoleFromUser(ctx context.Context, userID uuid.UUID, roleName string) error {
	role, err := s.roles.FindByName(ctx, roleName)
	if err != nil {
		return ErrNotFound
	}
	return s.users.RevokeRole(ctx, userID, role.ID)
}

// SeedDefaultRolesAndPermissions creates the built-in permissions and role
// bundles if not already present. Roles are flat: master is just the role
// holding every permission, there is no inheritance.
func (s *roleService) SeedDefaultRolesAndPermissions(ctx context.Context) error {
	defaultPermissions := []model.Permission{
		{Code: policy.PermSendMessages, Name: "Send messages to rooms", Group: "messages"},
		{Code: policy.PermCreateRooms, Name: "Create chat rooms", Group: "rooms"},
		{Code: policy.PermLeaveRoom, Name: "Leave a joined room", Group: "rooms"},
		{Code: policy.PermDeleteAnyMessage, Name: "Delete any user's message", Group: "messages"},
		{Code: policy.PermEditAnyMessage, Name: "Edit any user's message", Group: "messages"},
		{Code: policy.PermDeleteAnyRoom, Name: "Delete any room", Group: "rooms"},
		{Code: policy.PermAddMemberRoom, Name: "Add members to rooms", Group: "rooms"},
	}

	for i := range defaultPermissions {
		if err := s.roles.FindOrCreatePermission(ctx, &defaultPermissions[i]); err != nil {
			return fmt.Errorf("failed to seed permission '%s': %w", defaultPermissions[i].Code, err)
		}
	}

	permByCode := make(map[string]model.Permission, len(defaultPermissions))
	for _, p := range defaultPermissions {
		permByCode[p.Code] = p
	}

	userPerms := []string{policy.PermSendMessages, policy.PermCreateRooms, policy.PermLeaveRoom}
	managerPerms := append([]string{policy.PermDeleteAnyMessage}, userPerms...)
	adminPerms := append([]string{policy.PermEditAnyMessage, policy.PermDeleteAnyRoom, policy.PermAddMemberRoom}, managerPerms...)
	allPerms := make([]string, 0, len(defaultPermissions))
	for _, p := range defaultPermissions {
		allPerms = append(allPerms, p.Code)
	}

	roleDefinitions := []struct {
		Name        string
		Description string
		PermCodes   []string
	}{
		{model.RoleUser, "Regular user with basic chat capabilities", userPerms},
		{model.RoleManager, "Moderator who can also remove messages", managerPerms},
		{model.RoleAdmin, "Administrator with room and message management", adminPerms},
		{model.RoleMaster, "Holds every permission", allPerms},
	}

	for _, def := range roleDefinitions {
		role, err := s.roles.FindOrCreateByName(ctx, def.Name, def.Description)
		if err != nil {
			return fmt.Errorf("failed to seed role '%s': %w", def.Name, err)
		}

		perms := make([]model.Permission, 0, len(def.PermCodes))
		for _, code := range def.PermCodes {
			perms = append(perms, permByCode[code])
		}
		if err := s.roles.ReplacePermissions(ctx, role.ID, perms); err != nil {
			return fmt.Errorf("failed to assign permissions to role '%s': %w", def.Name, err)
		}
	}

	return nil
}
