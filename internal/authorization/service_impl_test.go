package authorization

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	rbacdomain "github.com/leadwayhq/leadway/internal/rbac/domain"
	rbacrepository "github.com/leadwayhq/leadway/internal/rbac/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupService(t *testing.T) (*ServiceImpl, *gorm.DB, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&rbacdomain.Role{},
		&rbacdomain.Permission{},
		&rbacdomain.RolePermission{},
		&rbacdomain.AccountRole{},
	))

	enforcer, err := NewEnforcer(db)
	require.NoError(t, err)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc, err := NewService(Params{
		DB:       db,
		Log:      zap.NewNop(),
		Enforcer: enforcer,
		RbacRepo: rbacrepository.Provide(),
	})
	require.NoError(t, err)

	return svc, db, node
}

func seedRole(t *testing.T, db *gorm.DB, node *snowflake.Node, name string) rbacdomain.Role {
	t.Helper()
	role := rbacdomain.Role{ID: node.Generate(), Name: name, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	require.NoError(t, db.Create(&role).Error)
	return role
}

func seedPermission(t *testing.T, db *gorm.DB, node *snowflake.Node, name string) rbacdomain.Permission {
	t.Helper()
	permission := rbacdomain.Permission{ID: node.Generate(), Name: name, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	require.NoError(t, db.Create(&permission).Error)
	return permission
}

func TestAuthorizeMirrorsStore(t *testing.T) {
	svc, db, node := setupService(t)

	manager := seedRole(t, db, node, "manager")
	edit := seedPermission(t, db, node, "edit campaigns")
	require.NoError(t, db.Create(&rbacdomain.RolePermission{RoleID: manager.ID, PermissionID: edit.ID}).Error)

	account := node.Generate()
	require.NoError(t, db.Create(&rbacdomain.AccountRole{AccountID: account, RoleID: manager.ID}).Error)

	require.NoError(t, svc.Resync(context.Background()))

	assert.NoError(t, svc.Authorize(context.Background(), account.String(), "edit campaigns"))
	assert.ErrorIs(t, svc.Authorize(context.Background(), account.String(), "manage users"), ErrForbidden)
}

func TestAuthorizeAdminBypass(t *testing.T) {
	svc, db, node := setupService(t)

	admin := seedRole(t, db, node, rbacdomain.AdminRoleName)
	account := node.Generate()
	require.NoError(t, db.Create(&rbacdomain.AccountRole{AccountID: account, RoleID: admin.ID}).Error)

	require.NoError(t, svc.Resync(context.Background()))

	assert.NoError(t, svc.Authorize(context.Background(), account.String(), "manage companies"))
}

func TestAuthorizeRejectsBadInput(t *testing.T) {
	svc, _, node := setupService(t)

	assert.ErrorIs(t, svc.Authorize(context.Background(), "", "edit campaigns"), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(context.Background(), "not-a-snowflake", "edit campaigns"), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(context.Background(), node.Generate().String(), " "), ErrInvalidPermission)
}

func TestResyncDropsStaleRules(t *testing.T) {
	svc, db, node := setupService(t)

	manager := seedRole(t, db, node, "manager")
	view := seedPermission(t, db, node, "view reports")
	require.NoError(t, db.Create(&rbacdomain.RolePermission{RoleID: manager.ID, PermissionID: view.ID}).Error)

	account := node.Generate()
	require.NoError(t, db.Create(&rbacdomain.AccountRole{AccountID: account, RoleID: manager.ID}).Error)
	require.NoError(t, svc.Resync(context.Background()))
	require.NoError(t, svc.Authorize(context.Background(), account.String(), "view reports"))

	require.NoError(t, db.Where("role_id = ?", manager.ID).Delete(&rbacdomain.RolePermission{}).Error)
	require.NoError(t, svc.Resync(context.Background()))

	assert.ErrorIs(t, svc.Authorize(context.Background(), account.String(), "view reports"), ErrForbidden)
}
