package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	rbacdomain "github.com/leadwayhq/leadway/internal/rbac/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	RbacRepo rbacdomain.Repository
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	rbacRepo rbacdomain.Repository
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) (*ServiceImpl, error) {
	svc := &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		rbacRepo: p.RbacRepo,
	}
	if err := svc.Resync(context.Background()); err != nil {
		return nil, err
	}
	return svc, nil
}

func (s *ServiceImpl) Authorize(ctx context.Context, accountID string, permission string) error {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return ErrInvalidActor
	}
	if _, err := snowflake.ParseString(accountID); err != nil {
		return ErrInvalidActor
	}
	permission = strings.TrimSpace(permission)
	if permission == "" {
		return ErrInvalidPermission
	}

	allowed, err := s.enforcer.Enforce(subjectFor(accountID), permission)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Debug("capability denied",
			zap.String("account_id", accountID),
			zap.String("permission", permission),
		)
		return ErrForbidden
	}
	return nil
}

// Resync drops and rebuilds every grouping and policy rule from the
// role store. Mutations there are rare enough that a full rebuild is
// simpler than tracking deltas.
func (s *ServiceImpl) Resync(ctx context.Context) error {
	roles, err := s.rbacRepo.ListRoles(ctx, s.db)
	if err != nil {
		return err
	}
	permissions, err := s.rbacRepo.ListPermissions(ctx, s.db)
	if err != nil {
		return err
	}
	rolePermissions, err := s.rbacRepo.ListRolePermissions(ctx, s.db)
	if err != nil {
		return err
	}
	accountRoles, err := s.rbacRepo.ListAccountRoles(ctx, s.db)
	if err != nil {
		return err
	}

	roleNames := make(map[snowflake.ID]string, len(roles))
	for _, role := range roles {
		roleNames[role.ID] = role.Name
	}
	permissionNames := make(map[snowflake.ID]string, len(permissions))
	for _, permission := range permissions {
		permissionNames[permission.ID] = permission.Name
	}

	s.enforcer.ClearPolicy()

	for _, link := range rolePermissions {
		roleName, ok := roleNames[link.RoleID]
		if !ok {
			continue
		}
		permissionName, ok := permissionNames[link.PermissionID]
		if !ok {
			continue
		}
		if _, err := s.enforcer.AddPolicy(roleFor(roleName), permissionName); err != nil {
			return err
		}
	}

	for _, link := range accountRoles {
		roleName, ok := roleNames[link.RoleID]
		if !ok {
			continue
		}
		if _, err := s.enforcer.AddGroupingPolicy(subjectFor(link.AccountID.String()), roleFor(roleName)); err != nil {
			return err
		}
	}

	s.enforcer.BuildRoleLinks()
	return nil
}

// PoliciesChanged implements rbacdomain.ChangeListener.
func (s *ServiceImpl) PoliciesChanged(ctx context.Context) {
	if err := s.Resync(ctx); err != nil {
		s.log.Error("policy resync failed", zap.Error(err))
	}
}

func subjectFor(accountID string) string { return fmt.Sprintf("user:%s", accountID) }

func roleFor(name string) string { return fmt.Sprintf("role:%s", strings.ToLower(name)) }
