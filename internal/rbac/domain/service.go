package domain

import (
	"context"
	"errors"
)

type CreateRoleRequest struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	PermissionIDs []string `json:"permission_ids"`
}

// UpdateRoleRequest renames a role and replaces (not merges) its
// permission set.
type UpdateRoleRequest struct {
	ID            string   `json:"-"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	PermissionIDs []string `json:"permission_ids"`
}

type CreatePermissionRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type GrantPermissionRequest struct {
	RoleID       string `json:"role_id"`
	PermissionID string `json:"permission_id"`
}

type AssignRoleRequest struct {
	AccountID string `json:"account_id"`
	RoleID    string `json:"role_id"`
}

// SyncRolesRequest replaces an account's role set in one shot. Roles
// not listed are removed, roles listed but not held are added.
type SyncRolesRequest struct {
	AccountID string   `json:"account_id"`
	RoleNames []string `json:"roles"`
}

type RoleResponse struct {
	Role
	Permissions []Permission `json:"permissions,omitempty"`
}

type Service interface {
	CreateRole(ctx context.Context, req CreateRoleRequest) (*Role, error)
	UpdateRole(ctx context.Context, req UpdateRoleRequest) (*RoleResponse, error)
	ListRoles(ctx context.Context) ([]RoleResponse, error)
	DeleteRole(ctx context.Context, id string) error

	CreatePermission(ctx context.Context, req CreatePermissionRequest) (*Permission, error)
	ListPermissions(ctx context.Context) ([]Permission, error)
	DeletePermission(ctx context.Context, id string) error

	GrantPermission(ctx context.Context, req GrantPermissionRequest) error
	RevokePermission(ctx context.Context, req GrantPermissionRequest) error

	AssignRole(ctx context.Context, req AssignRoleRequest) error
	RemoveRole(ctx context.Context, req AssignRoleRequest) error
	SyncRoles(ctx context.Context, req SyncRolesRequest) error

	RolesForAccount(ctx context.Context, accountID string) ([]Role, error)
	RoleSetForAccount(ctx context.Context, accountID string) (RoleSet, error)
}

// ChangeListener is notified after any mutation commits, so derived
// policy stores can resync.
type ChangeListener interface {
	PoliciesChanged(ctx context.Context)
}

var (
	ErrRoleNotFound       = errors.New("role_not_found")
	ErrPermissionNotFound = errors.New("permission_not_found")
	ErrInvalidRole        = errors.New("invalid_role")
	ErrInvalidPermission  = errors.New("invalid_permission")
	ErrUnknownPermission  = errors.New("unknown_permission")
	ErrInvalidAccount     = errors.New("invalid_account")
	ErrProtectedRole      = errors.New("protected_role")
	ErrRoleInUse          = errors.New("role_in_use")
	ErrPermissionInUse    = errors.New("permission_in_use")
	ErrAlreadyAssigned    = errors.New("already_assigned")
	ErrNotAssigned        = errors.New("not_assigned")
	ErrLastAdmin          = errors.New("last_admin")
	ErrDuplicateName      = errors.New("duplicate_name")
)
