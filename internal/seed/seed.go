// Package seed bootstraps the default roles, permissions and admin
// account so a fresh install is immediately usable.
package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	authdomain "github.com/leadwayhq/leadway/internal/auth/domain"
	"github.com/leadwayhq/leadway/internal/auth/password"
	"github.com/leadwayhq/leadway/internal/config"
	rbacdomain "github.com/leadwayhq/leadway/internal/rbac/domain"
)

const adminDisplayName = "Leadway Admin"

var defaultPermissions = []string{
	"manage users",
	"manage companies",
	"manage customers",
	"edit campaigns",
	"view reports",
}

// rolePermissions maps each default role to the permissions it is
// granted on first boot. The admin role also bypasses permission checks
// entirely, so its grants here are informational.
var rolePermissions = map[string][]string{
	rbacdomain.AdminRoleName: defaultPermissions,
	"manager":                defaultPermissions,
	"user":                   {"edit campaigns", "view reports"},
}

var roleOrder = []string{rbacdomain.AdminRoleName, "manager", "user"}

// EnsureDefaults seeds roles, permissions and the bootstrap admin
// account. It is idempotent and safe to run on every startup.
func EnsureDefaults(db *gorm.DB, cfg config.Config) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		permissions, err := ensurePermissions(ctx, tx, node)
		if err != nil {
			return err
		}

		roles, err := ensureRoles(ctx, tx, node, permissions)
		if err != nil {
			return err
		}

		admin, err := ensureAdminAccount(ctx, tx, node, cfg)
		if err != nil {
			return err
		}

		return ensureAccountRole(ctx, tx, admin.ID, roles[rbacdomain.AdminRoleName].ID)
	})
}

func ensurePermissions(ctx context.Context, tx *gorm.DB, node *snowflake.Node) (map[string]rbacdomain.Permission, error) {
	out := make(map[string]rbacdomain.Permission, len(defaultPermissions))
	for _, name := range defaultPermissions {
		var permission rbacdomain.Permission
		err := tx.WithContext(ctx).Where("name = ?", name).First(&permission).Error
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
			now := time.Now().UTC()
			permission = rbacdomain.Permission{
				ID:        node.Generate(),
				Name:      name,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := tx.WithContext(ctx).Create(&permission).Error; err != nil {
				return nil, err
			}
		}
		out[name] = permission
	}
	return out, nil
}

func ensureRoles(ctx context.Context, tx *gorm.DB, node *snowflake.Node, permissions map[string]rbacdomain.Permission) (map[string]rbacdomain.Role, error) {
	out := make(map[string]rbacdomain.Role, len(roleOrder))
	for _, name := range roleOrder {
		var role rbacdomain.Role
		err := tx.WithContext(ctx).Where("name = ?", name).First(&role).Error
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
			now := time.Now().UTC()
			role = rbacdomain.Role{
				ID:        node.Generate(),
				Name:      name,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := tx.WithContext(ctx).Create(&role).Error; err != nil {
				return nil, err
			}
		}
		out[name] = role

		for _, permissionName := range rolePermissions[name] {
			permission, ok := permissions[permissionName]
			if !ok {
				continue
			}
			if err := ensureRolePermission(ctx, tx, role.ID, permission.ID); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func ensureRolePermission(ctx context.Context, tx *gorm.DB, roleID, permissionID snowflake.ID) error {
	var link rbacdomain.RolePermission
	err := tx.WithContext(ctx).
		Where("role_id = ? AND permission_id = ?", roleID, permissionID).
		First(&link).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	link = rbacdomain.RolePermission{
		RoleID:       roleID,
		PermissionID: permissionID,
		CreatedAt:    time.Now().UTC(),
	}
	return tx.WithContext(ctx).Create(&link).Error
}

func ensureAdminAccount(ctx context.Context, tx *gorm.DB, node *snowflake.Node, cfg config.Config) (*authdomain.Account, error) {
	email := strings.ToLower(strings.TrimSpace(cfg.BootstrapAdminEmail))
	if email == "" {
		return nil, errors.New("bootstrap admin email is required")
	}

	var account authdomain.Account
	err := tx.WithContext(ctx).Where("email = ?", email).First(&account).Error
	if err == nil {
		return &account, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashed, err := password.Hash(cfg.BootstrapAdminPassword)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	account = authdomain.Account{
		ID:           node.Generate(),
		Name:         adminDisplayName,
		Email:        email,
		PasswordHash: &hashed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := tx.WithContext(ctx).Create(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func ensureAccountRole(ctx context.Context, tx *gorm.DB, accountID, roleID snowflake.ID) error {
	var link rbacdomain.AccountRole
	err := tx.WithContext(ctx).
		Where("account_id = ? AND role_id = ?", accountID, roleID).
		First(&link).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	link = rbacdomain.AccountRole{
		AccountID: accountID,
		RoleID:    roleID,
		CreatedAt: time.Now().UTC(),
	}
	return tx.WithContext(ctx).Create(&link).Error
}
