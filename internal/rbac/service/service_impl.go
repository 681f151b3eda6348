package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/leadwayhq/leadway/internal/clock"
	"github.com/leadwayhq/leadway/internal/rbac/domain"
	pkgdb "github.com/leadwayhq/leadway/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository

	listeners []domain.ChangeListener
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository

	Listeners []domain.ChangeListener `group:"rbac.listeners"`
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("rbac.service"),

		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,

		listeners: p.Listeners,
	}
}

// CreateRole implements domain.Service.
func (s *Service) CreateRole(ctx context.Context, req domain.CreateRoleRequest) (*domain.Role, error) {
	name := strings.TrimSpace(strings.ToLower(req.Name))
	if name == "" {
		return nil, domain.ErrInvalidRole
	}

	now := s.clock.Now()
	role := &domain.Role{
		ID:          s.genID.Generate(),
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		permissionIDs, err := s.resolvePermissionIDs(ctx, tx, req.PermissionIDs)
		if err != nil {
			return err
		}

		if err := s.repo.CreateRole(ctx, tx, role); err != nil {
			if pkgdb.IsDuplicateKeyErr(err) {
				return domain.ErrDuplicateName
			}
			return err
		}

		return s.repo.ReplaceRolePermissions(ctx, tx, role.ID, permissionIDs)
	})
	if err != nil {
		return nil, err
	}

	s.notifyChanged(ctx)
	return role, nil
}

// UpdateRole implements domain.Service. The permission set is replaced
// wholesale, not merged. The admin role keeps its name.
func (s *Service) UpdateRole(ctx context.Context, req domain.UpdateRoleRequest) (*domain.RoleResponse, error) {
	roleID, err := s.parseID(req.ID, domain.ErrInvalidRole)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(strings.ToLower(req.Name))
	if name == "" {
		return nil, domain.ErrInvalidRole
	}

	var response *domain.RoleResponse
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		role, err := s.repo.FindRoleByID(ctx, tx, roleID)
		if err != nil {
			return err
		}
		if role == nil {
			return domain.ErrRoleNotFound
		}
		if role.Protected() && name != role.Name {
			return domain.ErrProtectedRole
		}

		existing, err := s.repo.FindRoleByName(ctx, tx, name)
		if err != nil {
			return err
		}
		if existing != nil && existing.ID != role.ID {
			return domain.ErrDuplicateName
		}

		permissionIDs, err := s.resolvePermissionIDs(ctx, tx, req.PermissionIDs)
		if err != nil {
			return err
		}

		role.Name = name
		role.Description = strings.TrimSpace(req.Description)
		role.UpdatedAt = s.clock.Now()

		if err := s.repo.UpdateRole(ctx, tx, role); err != nil {
			if pkgdb.IsDuplicateKeyErr(err) {
				return domain.ErrDuplicateName
			}
			return err
		}

		if err := s.repo.ReplaceRolePermissions(ctx, tx, role.ID, permissionIDs); err != nil {
			return err
		}

		permissions, err := s.repo.ListPermissionsForRole(ctx, tx, role.ID)
		if err != nil {
			return err
		}

		response = &domain.RoleResponse{Role: *role, Permissions: permissions}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyChanged(ctx)
	return response, nil
}

// resolvePermissionIDs parses and verifies every referenced permission.
// One unknown id fails the whole mutation.
func (s *Service) resolvePermissionIDs(ctx context.Context, tx *gorm.DB, raw []string) ([]snowflake.ID, error) {
	ids := make([]snowflake.ID, 0, len(raw))
	seen := make(map[snowflake.ID]struct{}, len(raw))
	for _, value := range raw {
		id, err := s.parseID(value, domain.ErrInvalidPermission)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[id]; ok {
			continue
		}

		permission, err := s.repo.FindPermissionByID(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if permission == nil {
			return nil, domain.ErrUnknownPermission
		}

		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

// ListRoles implements domain.Service.
func (s *Service) ListRoles(ctx context.Context) ([]domain.RoleResponse, error) {
	roles, err := s.repo.ListRoles(ctx, s.db)
	if err != nil {
		return nil, err
	}

	responses := make([]domain.RoleResponse, 0, len(roles))
	for _, role := range roles {
		permissions, err := s.repo.ListPermissionsForRole(ctx, s.db, role.ID)
		if err != nil {
			return nil, err
		}
		responses = append(responses, domain.RoleResponse{Role: role, Permissions: permissions})
	}

	return responses, nil
}

// DeleteRole implements domain.Service. The admin role is never
// deletable, and a role still assigned to any account stays.
func (s *Service) DeleteRole(ctx context.Context, id string) error {
	roleID, err := s.parseID(id, domain.ErrInvalidRole)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		role, err := s.repo.FindRoleByID(ctx, tx, roleID)
		if err != nil {
			return err
		}
		if role == nil {
			return domain.ErrRoleNotFound
		}
		if role.Protected() {
			return domain.ErrProtectedRole
		}

		assigned, err := s.repo.CountAccountsWithRole(ctx, tx, roleID)
		if err != nil {
			return err
		}
		if assigned > 0 {
			return domain.ErrRoleInUse
		}

		return s.repo.DeleteRole(ctx, tx, roleID)
	})
	if err != nil {
		return err
	}

	s.notifyChanged(ctx)
	return nil
}

// CreatePermission implements domain.Service.
func (s *Service) CreatePermission(ctx context.Context, req domain.CreatePermissionRequest) (*domain.Permission, error) {
	name := strings.TrimSpace(strings.ToLower(req.Name))
	if name == "" {
		return nil, domain.ErrInvalidPermission
	}

	now := s.clock.Now()
	permission := &domain.Permission{
		ID:          s.genID.Generate(),
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.CreatePermission(ctx, s.db, permission); err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateName
		}
		return nil, err
	}

	return permission, nil
}

// ListPermissions implements domain.Service.
func (s *Service) ListPermissions(ctx context.Context) ([]domain.Permission, error) {
	return s.repo.ListPermissions(ctx, s.db)
}

// DeletePermission implements domain.Service. A permission still granted
// to any role cannot go.
func (s *Service) DeletePermission(ctx context.Context, id string) error {
	permissionID, err := s.parseID(id, domain.ErrInvalidPermission)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		permission, err := s.repo.FindPermissionByID(ctx, tx, permissionID)
		if err != nil {
			return err
		}
		if permission == nil {
			return domain.ErrPermissionNotFound
		}

		granted, err := s.repo.CountRolesWithPermission(ctx, tx, permissionID)
		if err != nil {
			return err
		}
		if granted > 0 {
			return domain.ErrPermissionInUse
		}

		return s.repo.DeletePermission(ctx, tx, permissionID)
	})
	if err != nil {
		return err
	}

	s.notifyChanged(ctx)
	return nil
}

// GrantPermission implements domain.Service.
func (s *Service) GrantPermission(ctx context.Context, req domain.GrantPermissionRequest) error {
	roleID, err := s.parseID(req.RoleID, domain.ErrInvalidRole)
	if err != nil {
		return err
	}
	permissionID, err := s.parseID(req.PermissionID, domain.ErrInvalidPermission)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		role, err := s.repo.FindRoleByID(ctx, tx, roleID)
		if err != nil {
			return err
		}
		if role == nil {
			return domain.ErrRoleNotFound
		}

		permission, err := s.repo.FindPermissionByID(ctx, tx, permissionID)
		if err != nil {
			return err
		}
		if permission == nil {
			return domain.ErrPermissionNotFound
		}

		has, err := s.repo.HasRolePermission(ctx, tx, roleID, permissionID)
		if err != nil {
			return err
		}
		if has {
			return domain.ErrAlreadyAssigned
		}

		return s.repo.GrantPermission(ctx, tx, &domain.RolePermission{
			RoleID:       roleID,
			PermissionID: permissionID,
			CreatedAt:    s.clock.Now(),
		})
	})
	if err != nil {
		return err
	}

	s.notifyChanged(ctx)
	return nil
}

// RevokePermission implements domain.Service.
func (s *Service) RevokePermission(ctx context.Context, req domain.GrantPermissionRequest) error {
	roleID, err := s.parseID(req.RoleID, domain.ErrInvalidRole)
	if err != nil {
		return err
	}
	permissionID, err := s.parseID(req.PermissionID, domain.ErrInvalidPermission)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		has, err := s.repo.HasRolePermission(ctx, tx, roleID, permissionID)
		if err != nil {
			return err
		}
		if !has {
			return domain.ErrNotAssigned
		}

		return s.repo.RevokePermission(ctx, tx, roleID, permissionID)
	})
	if err != nil {
		return err
	}

	s.notifyChanged(ctx)
	return nil
}

// AssignRole implements domain.Service.
func (s *Service) AssignRole(ctx context.Context, req domain.AssignRoleRequest) error {
	accountID, err := s.parseID(req.AccountID, domain.ErrInvalidAccount)
	if err != nil {
		return err
	}
	roleID, err := s.parseID(req.RoleID, domain.ErrInvalidRole)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		role, err := s.repo.FindRoleByID(ctx, tx, roleID)
		if err != nil {
			return err
		}
		if role == nil {
			return domain.ErrRoleNotFound
		}

		has, err := s.repo.HasAccountRole(ctx, tx, accountID, roleID)
		if err != nil {
			return err
		}
		if has {
			return domain.ErrAlreadyAssigned
		}

		return s.repo.AssignRole(ctx, tx, &domain.AccountRole{
			AccountID: accountID,
			RoleID:    roleID,
			CreatedAt: s.clock.Now(),
		})
	})
	if err != nil {
		return err
	}

	s.notifyChanged(ctx)
	return nil
}

// RemoveRole implements domain.Service. Taking the admin role away from
// the only remaining admin is refused.
func (s *Service) RemoveRole(ctx context.Context, req domain.AssignRoleRequest) error {
	accountID, err := s.parseID(req.AccountID, domain.ErrInvalidAccount)
	if err != nil {
		return err
	}
	roleID, err := s.parseID(req.RoleID, domain.ErrInvalidRole)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		role, err := s.repo.FindRoleByID(ctx, tx, roleID)
		if err != nil {
			return err
		}
		if role == nil {
			return domain.ErrRoleNotFound
		}

		has, err := s.repo.HasAccountRole(ctx, tx, accountID, roleID)
		if err != nil {
			return err
		}
		if !has {
			return domain.ErrNotAssigned
		}

		if err := s.guardLastAdmin(ctx, tx, *role, accountID); err != nil {
			return err
		}

		return s.repo.RemoveRole(ctx, tx, accountID, roleID)
	})
	if err != nil {
		return err
	}

	s.notifyChanged(ctx)
	return nil
}

// SyncRoles implements domain.Service. The whole replacement happens in
// one transaction, and dropping admin from the last admin fails the sync
// as a unit.
func (s *Service) SyncRoles(ctx context.Context, req domain.SyncRolesRequest) error {
	accountID, err := s.parseID(req.AccountID, domain.ErrInvalidAccount)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(req.RoleNames))
	seen := make(map[string]struct{}, len(req.RoleNames))
	for _, name := range req.RoleNames {
		name = strings.TrimSpace(strings.ToLower(name))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		roles, err := s.repo.FindRolesByNames(ctx, tx, names)
		if err != nil {
			return err
		}
		if len(roles) != len(names) {
			return domain.ErrRoleNotFound
		}

		keepsAdmin := false
		roleIDs := make([]snowflake.ID, 0, len(roles))
		for _, role := range roles {
			roleIDs = append(roleIDs, role.ID)
			if role.Name == domain.AdminRoleName {
				keepsAdmin = true
			}
		}

		if !keepsAdmin {
			adminRole, err := s.repo.FindRoleByName(ctx, tx, domain.AdminRoleName)
			if err != nil {
				return err
			}
			if adminRole != nil {
				if err := s.guardLastAdmin(ctx, tx, *adminRole, accountID); err != nil {
					return err
				}
			}
		}

		return s.repo.ReplaceAccountRoles(ctx, tx, accountID, roleIDs)
	})
	if err != nil {
		return err
	}

	s.notifyChanged(ctx)
	return nil
}

// RolesForAccount implements domain.Service.
func (s *Service) RolesForAccount(ctx context.Context, accountID string) ([]domain.Role, error) {
	id, err := s.parseID(accountID, domain.ErrInvalidAccount)
	if err != nil {
		return nil, err
	}
	return s.repo.ListRolesForAccount(ctx, s.db, id)
}

// RoleSetForAccount implements domain.Service.
func (s *Service) RoleSetForAccount(ctx context.Context, accountID string) (domain.RoleSet, error) {
	roles, err := s.RolesForAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	set := make(domain.RoleSet, len(roles))
	for _, role := range roles {
		set[role.Name] = struct{}{}
	}
	return set, nil
}

// guardLastAdmin refuses to strip the admin role from accountID when it
// is the only account that still holds it. Both the single remove path
// and the bulk sync path run through here. The role row is locked for
// the rest of the transaction so two concurrent removals cannot both
// count two admins and leave none.
func (s *Service) guardLastAdmin(ctx context.Context, tx *gorm.DB, role domain.Role, accountID snowflake.ID) error {
	if role.Name != domain.AdminRoleName {
		return nil
	}

	if err := s.repo.LockRole(ctx, tx, role.ID); err != nil {
		return err
	}

	has, err := s.repo.HasAccountRole(ctx, tx, accountID, role.ID)
	if err != nil {
		return err
	}
	if !has {
		return nil
	}

	admins, err := s.repo.CountAccountsWithRole(ctx, tx, role.ID)
	if err != nil {
		return err
	}
	if admins <= 1 {
		return domain.ErrLastAdmin
	}

	return nil
}

func (s *Service) notifyChanged(ctx context.Context) {
	for _, listener := range s.listeners {
		listener.PoliciesChanged(ctx)
	}
}

func (s *Service) parseID(raw string, invalid error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, invalid
	}
	return id, nil
}
