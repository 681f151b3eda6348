package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	CreateRole(ctx context.Context, db *gorm.DB, role *Role) error
	FindRoleByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Role, error)
	LockRole(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	FindRoleByName(ctx context.Context, db *gorm.DB, name string) (*Role, error)
	FindRolesByNames(ctx context.Context, db *gorm.DB, names []string) ([]Role, error)
	UpdateRole(ctx context.Context, db *gorm.DB, role *Role) error
	ListRoles(ctx context.Context, db *gorm.DB) ([]Role, error)
	DeleteRole(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	CountAccountsWithRole(ctx context.Context, db *gorm.DB, roleID snowflake.ID) (int64, error)

	CreatePermission(ctx context.Context, db *gorm.DB, permission *Permission) error
	FindPermissionByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Permission, error)
	FindPermissionByName(ctx context.Context, db *gorm.DB, name string) (*Permission, error)
	ListPermissions(ctx context.Context, db *gorm.DB) ([]Permission, error)
	DeletePermission(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	CountRolesWithPermission(ctx context.Context, db *gorm.DB, permissionID snowflake.ID) (int64, error)

	GrantPermission(ctx context.Context, db *gorm.DB, link *RolePermission) error
	RevokePermission(ctx context.Context, db *gorm.DB, roleID, permissionID snowflake.ID) error
	HasRolePermission(ctx context.Context, db *gorm.DB, roleID, permissionID snowflake.ID) (bool, error)
	ListPermissionsForRole(ctx context.Context, db *gorm.DB, roleID snowflake.ID) ([]Permission, error)
	ListRolePermissions(ctx context.Context, db *gorm.DB) ([]RolePermission, error)
	ReplaceRolePermissions(ctx context.Context, db *gorm.DB, roleID snowflake.ID, permissionIDs []snowflake.ID) error

	AssignRole(ctx context.Context, db *gorm.DB, link *AccountRole) error
	RemoveRole(ctx context.Context, db *gorm.DB, accountID, roleID snowflake.ID) error
	HasAccountRole(ctx context.Context, db *gorm.DB, accountID, roleID snowflake.ID) (bool, error)
	ListRolesForAccount(ctx context.Context, db *gorm.DB, accountID snowflake.ID) ([]Role, error)
	ListAccountRoles(ctx context.Context, db *gorm.DB) ([]AccountRole, error)
	ReplaceAccountRoles(ctx context.Context, db *gorm.DB, accountID snowflake.ID, roleIDs []snowflake.ID) error
}
