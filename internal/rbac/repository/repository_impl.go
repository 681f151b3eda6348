package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/leadwayhq/leadway/internal/rbac/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) CreateRole(ctx context.Context, db *gorm.DB, role *domain.Role) error {
	return db.WithContext(ctx).Create(role).Error
}

func (r *repo) FindRoleByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Role, error) {
	var role domain.Role
	err := db.WithContext(ctx).Where("id = ?", id).First(&role).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &role, nil
}

// LockRole takes a row lock on the role until the surrounding
// transaction commits, so concurrent membership checks against the same
// role see each other's writes.
func (r *repo) LockRole(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	stmt := db.WithContext(ctx).Model(&domain.Role{})
	// sqlite has no FOR UPDATE; its single writer already serializes.
	if db.Dialector.Name() != "sqlite" {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var role domain.Role
	return stmt.Where("id = ?", id).Take(&role).Error
}

func (r *repo) FindRoleByName(ctx context.Context, db *gorm.DB, name string) (*domain.Role, error) {
	var role domain.Role
	err := db.WithContext(ctx).Where("name = ?", name).First(&role).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &role, nil
}

func (r *repo) FindRolesByNames(ctx context.Context, db *gorm.DB, names []string) ([]domain.Role, error) {
	if len(names) == 0 {
		return nil, nil
	}
	var roles []domain.Role
	err := db.WithContext(ctx).Where("name IN ?", names).Find(&roles).Error
	if err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *repo) UpdateRole(ctx context.Context, db *gorm.DB, role *domain.Role) error {
	return db.WithContext(ctx).
		Model(&domain.Role{}).
		Where("id = ?", role.ID).
		Updates(map[string]any{
			"name":        role.Name,
			"description": role.Description,
			"updated_at":  role.UpdatedAt,
		}).Error
}

func (r *repo) ListRoles(ctx context.Context, db *gorm.DB) ([]domain.Role, error) {
	var roles []domain.Role
	err := db.WithContext(ctx).Order("name").Find(&roles).Error
	if err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *repo) DeleteRole(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Role{}).Error
}

func (r *repo) CountAccountsWithRole(ctx context.Context, db *gorm.DB, roleID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.AccountRole{}).
		Where("role_id = ?", roleID).
		Count(&count).Error
	return count, err
}

func (r *repo) CreatePermission(ctx context.Context, db *gorm.DB, permission *domain.Permission) error {
	return db.WithContext(ctx).Create(permission).Error
}

func (r *repo) FindPermissionByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Permission, error) {
	var permission domain.Permission
	err := db.WithContext(ctx).Where("id = ?", id).First(&permission).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &permission, nil
}

func (r *repo) FindPermissionByName(ctx context.Context, db *gorm.DB, name string) (*domain.Permission, error) {
	var permission domain.Permission
	err := db.WithContext(ctx).Where("name = ?", name).First(&permission).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &permission, nil
}

func (r *repo) ListPermissions(ctx context.Context, db *gorm.DB) ([]domain.Permission, error) {
	var permissions []domain.Permission
	err := db.WithContext(ctx).Order("name").Find(&permissions).Error
	if err != nil {
		return nil, err
	}
	return permissions, nil
}

func (r *repo) DeletePermission(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Permission{}).Error
}

func (r *repo) CountRolesWithPermission(ctx context.Context, db *gorm.DB, permissionID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.RolePermission{}).
		Where("permission_id = ?", permissionID).
		Count(&count).Error
	return count, err
}

func (r *repo) GrantPermission(ctx context.Context, db *gorm.DB, link *domain.RolePermission) error {
	return db.WithContext(ctx).Create(link).Error
}

func (r *repo) RevokePermission(ctx context.Context, db *gorm.DB, roleID, permissionID snowflake.ID) error {
	return db.WithContext(ctx).
		Where("role_id = ? AND permission_id = ?", roleID, permissionID).
		Delete(&domain.RolePermission{}).Error
}

func (r *repo) HasRolePermission(ctx context.Context, db *gorm.DB, roleID, permissionID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.RolePermission{}).
		Where("role_id = ? AND permission_id = ?", roleID, permissionID).
		Count(&count).Error
	return count > 0, err
}

func (r *repo) ListPermissionsForRole(ctx context.Context, db *gorm.DB, roleID snowflake.ID) ([]domain.Permission, error) {
	var permissions []domain.Permission
	err := db.WithContext(ctx).
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Where("role_permissions.role_id = ?", roleID).
		Order("permissions.name").
		Find(&permissions).Error
	if err != nil {
		return nil, err
	}
	return permissions, nil
}

func (r *repo) ListRolePermissions(ctx context.Context, db *gorm.DB) ([]domain.RolePermission, error) {
	var links []domain.RolePermission
	err := db.WithContext(ctx).Find(&links).Error
	if err != nil {
		return nil, err
	}
	return links, nil
}

func (r *repo) ReplaceRolePermissions(ctx context.Context, db *gorm.DB, roleID snowflake.ID, permissionIDs []snowflake.ID) error {
	if err := db.WithContext(ctx).
		Where("role_id = ?", roleID).
		Delete(&domain.RolePermission{}).Error; err != nil {
		return err
	}
	if len(permissionIDs) == 0 {
		return nil
	}
	links := make([]domain.RolePermission, 0, len(permissionIDs))
	for _, permissionID := range permissionIDs {
		links = append(links, domain.RolePermission{RoleID: roleID, PermissionID: permissionID})
	}
	return db.WithContext(ctx).Create(&links).Error
}

func (r *repo) AssignRole(ctx context.Context, db *gorm.DB, link *domain.AccountRole) error {
	return db.WithContext(ctx).Create(link).Error
}

func (r *repo) RemoveRole(ctx context.Context, db *gorm.DB, accountID, roleID snowflake.ID) error {
	return db.WithContext(ctx).
		Where("account_id = ? AND role_id = ?", accountID, roleID).
		Delete(&domain.AccountRole{}).Error
}

func (r *repo) HasAccountRole(ctx context.Context, db *gorm.DB, accountID, roleID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.AccountRole{}).
		Where("account_id = ? AND role_id = ?", accountID, roleID).
		Count(&count).Error
	return count > 0, err
}

func (r *repo) ListRolesForAccount(ctx context.Context, db *gorm.DB, accountID snowflake.ID) ([]domain.Role, error) {
	var roles []domain.Role
	err := db.WithContext(ctx).
		Joins("JOIN account_roles ON account_roles.role_id = roles.id").
		Where("account_roles.account_id = ?", accountID).
		Order("roles.name").
		Find(&roles).Error
	if err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *repo) ListAccountRoles(ctx context.Context, db *gorm.DB) ([]domain.AccountRole, error) {
	var links []domain.AccountRole
	err := db.WithContext(ctx).Find(&links).Error
	if err != nil {
		return nil, err
	}
	return links, nil
}

func (r *repo) ReplaceAccountRoles(ctx context.Context, db *gorm.DB, accountID snowflake.ID, roleIDs []snowflake.ID) error {
	if err := db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Delete(&domain.AccountRole{}).Error; err != nil {
		return err
	}
	if len(roleIDs) == 0 {
		return nil
	}
	links := make([]domain.AccountRole, 0, len(roleIDs))
	for _, roleID := range roleIDs {
		links = append(links, domain.AccountRole{AccountID: accountID, RoleID: roleID})
	}
	return db.WithContext(ctx).Create(&links).Error
}
