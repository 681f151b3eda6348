package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/leadwayhq/leadway/internal/clock"
	"github.com/leadwayhq/leadway/internal/rbac/domain"
	"github.com/leadwayhq/leadway/internal/rbac/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type recordingListener struct {
	calls int
}

func (l *recordingListener) PoliciesChanged(ctx context.Context) { l.calls++ }

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&domain.Role{},
		&domain.Permission{},
		&domain.RolePermission{},
		&domain.AccountRole{},
	))

	return db
}

func newTestService(t *testing.T, db *gorm.DB, listeners ...domain.ChangeListener) *Service {
	t.Helper()

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return &Service{
		db:        db,
		log:       zap.NewNop(),
		genID:     node,
		clock:     clock.NewFakeClock(time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)),
		repo:      repository.Provide(),
		listeners: listeners,
	}
}

func mustCreateRole(t *testing.T, svc *Service, name string) *domain.Role {
	t.Helper()
	role, err := svc.CreateRole(context.Background(), domain.CreateRoleRequest{Name: name})
	require.NoError(t, err)
	return role
}

func mustCreatePermission(t *testing.T, svc *Service, name string) *domain.Permission {
	t.Helper()
	permission, err := svc.CreatePermission(context.Background(), domain.CreatePermissionRequest{Name: name})
	require.NoError(t, err)
	return permission
}

func mustAssign(t *testing.T, svc *Service, accountID snowflake.ID, role *domain.Role) {
	t.Helper()
	require.NoError(t, svc.AssignRole(context.Background(), domain.AssignRoleRequest{
		AccountID: accountID.String(),
		RoleID:    role.ID.String(),
	}))
}

func TestCreateRoleNormalizesAndDeduplicates(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)

	role, err := svc.CreateRole(context.Background(), domain.CreateRoleRequest{Name: "  Manager "})
	require.NoError(t, err)
	assert.Equal(t, "manager", role.Name)

	_, err = svc.CreateRole(context.Background(), domain.CreateRoleRequest{Name: "manager"})
	assert.ErrorIs(t, err, domain.ErrDuplicateName)

	_, err = svc.CreateRole(context.Background(), domain.CreateRoleRequest{Name: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidRole)
}

func TestDeleteRoleProtectsAdmin(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)

	admin := mustCreateRole(t, svc, domain.AdminRoleName)

	err := svc.DeleteRole(context.Background(), admin.ID.String())
	assert.ErrorIs(t, err, domain.ErrProtectedRole)

	roles, err := svc.ListRoles(context.Background())
	require.NoError(t, err)
	assert.Len(t, roles, 1)
}

func TestDeleteRoleInUse(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)

	manager := mustCreateRole(t, svc, "manager")
	accountID := svc.genID.Generate()
	mustAssign(t, svc, accountID, manager)

	err := svc.DeleteRole(context.Background(), manager.ID.String())
	assert.ErrorIs(t, err, domain.ErrRoleInUse)

	require.NoError(t, svc.RemoveRole(context.Background(), domain.AssignRoleRequest{
		AccountID: accountID.String(),
		RoleID:    manager.ID.String(),
	}))
	require.NoError(t, svc.DeleteRole(context.Background(), manager.ID.String()))
}

func TestDeletePermissionInUse(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)

	manager := mustCreateRole(t, svc, "manager")
	perm := mustCreatePermission(t, svc, "edit campaigns")

	require.NoError(t, svc.GrantPermission(context.Background(), domain.GrantPermissionRequest{
		RoleID:       manager.ID.String(),
		PermissionID: perm.ID.String(),
	}))

	err := svc.DeletePermission(context.Background(), perm.ID.String())
	assert.ErrorIs(t, err, domain.ErrPermissionInUse)

	require.NoError(t, svc.RevokePermission(context.Background(), domain.GrantPermissionRequest{
		RoleID:       manager.ID.String(),
		PermissionID: perm.ID.String(),
	}))
	require.NoError(t, svc.DeletePermission(context.Background(), perm.ID.String()))
}

func TestGrantPermissionTwice(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)

	manager := mustCreateRole(t, svc, "manager")
	perm := mustCreatePermission(t, svc, "view reports")

	req := domain.GrantPermissionRequest{
		RoleID:       manager.ID.String(),
		PermissionID: perm.ID.String(),
	}
	require.NoError(t, svc.GrantPermission(context.Background(), req))

	err := svc.GrantPermission(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrAlreadyAssigned)
}

func TestRevokePermissionNotAssigned(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)

	manager := mustCreateRole(t, svc, "manager")
	perm := mustCreatePermission(t, svc, "view reports")

	err := svc.RevokePermission(context.Background(), domain.GrantPermissionRequest{
		RoleID:       manager.ID.String(),
		PermissionID: perm.ID.String(),
	})
	assert.ErrorIs(t, err, domain.ErrNotAssigned)
}

func TestAssignRoleTwice(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)

	manager := mustCreateRole(t, svc, "manager")
	accountID := svc.genID.Generate()
	mustAssign(t, svc, accountID, manager)

	err := svc.AssignRole(context.Background(), domain.AssignRoleRequest{
		AccountID: accountID.String(),
		RoleID:    manager.ID.String(),
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyAssigned)
}

func TestRemoveRoleLastAdmin(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)

	admin := mustCreateRole(t, svc, domain.AdminRoleName)
	onlyAdmin := svc.genID.Generate()
	mustAssign(t, svc, onlyAdmin, admin)

	err := svc.RemoveRole(context.Background(), domain.AssignRoleRequest{
		AccountID: onlyAdmin.String(),
		RoleID:    admin.ID.String(),
	})
	assert.ErrorIs(t, err, domain.ErrLastAdmin)

	// With a second admin in place the removal goes through.
	secondAdmin := svc.genID.Generate()
	mustAssign(t, svc, secondAdmin, admin)

	require.NoError(t, svc.RemoveRole(context.Background(), domain.AssignRoleRequest{
		AccountID: onlyAdmin.String(),
		RoleID:    admin.ID.String(),
	}))

	set, err := svc.RoleSetForAccount(context.Background(), onlyAdmin.String())
	require.NoError(t, err)
	assert.False(t, set.IsAdmin())
}

func TestSyncRolesLastAdmin(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)

	admin := mustCreateRole(t, svc, domain.AdminRoleName)
	mustCreateRole(t, svc, "manager")
	onlyAdmin := svc.genID.Generate()
	mustAssign(t, svc, onlyAdmin, admin)

	err := svc.SyncRoles(context.Background(), domain.SyncRolesRequest{
		AccountID: onlyAdmin.String(),
		RoleNames: []string{"manager"},
	})
	assert.ErrorIs(t, err, domain.ErrLastAdmin)

	// The failed sync must not have touched the account's roles.
	set, err := svc.RoleSetForAccount(context.Background(), onlyAdmin.String())
	require.NoError(t, err)
	assert.True(t, set.IsAdmin())
	assert.False(t, set.Has("manager"))
}

func TestSyncRolesReplacesSet(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)

	admin := mustCreateRole(t, svc, domain.AdminRoleName)
	mustCreateRole(t, svc, "manager")
	mustCreateRole(t, svc, "user")

	first := svc.genID.Generate()
	second := svc.genID.Generate()
	mustAssign(t, svc, first, admin)
	mustAssign(t, svc, second, admin)

	require.NoError(t, svc.SyncRoles(context.Background(), domain.SyncRolesRequest{
		AccountID: first.String(),
		RoleNames: []string{"Manager", "user", "manager"},
	}))

	set, err := svc.RoleSetForAccount(context.Background(), first.String())
	require.NoError(t, err)
	assert.False(t, set.IsAdmin())
	assert.True(t, set.Has("manager"))
	assert.True(t, set.Has("user"))
}

func TestSyncRolesUnknownRole(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)

	accountID := svc.genID.Generate()
	err := svc.SyncRoles(context.Background(), domain.SyncRolesRequest{
		AccountID: accountID.String(),
		RoleNames: []string{"ghost"},
	})
	assert.ErrorIs(t, err, domain.ErrRoleNotFound)
}

func TestMutationsNotifyListeners(t *testing.T) {
	db := setupTestDB(t)
	listener := &recordingListener{}
	svc := newTestService(t, db, listener)

	manager := mustCreateRole(t, svc, "manager")
	perm := mustCreatePermission(t, svc, "view reports")

	require.NoError(t, svc.GrantPermission(context.Background(), domain.GrantPermissionRequest{
		RoleID:       manager.ID.String(),
		PermissionID: perm.ID.String(),
	}))
	accountID := svc.genID.Generate()
	mustAssign(t, svc, accountID, manager)

	assert.Equal(t, 3, listener.calls)
}

func TestCreateRoleAttachesPermissions(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)

	view := mustCreatePermission(t, svc, "view reports")
	edit := mustCreatePermission(t, svc, "edit campaigns")

	role, err := svc.CreateRole(context.Background(), domain.CreateRoleRequest{
		Name:          "manager",
		PermissionIDs: []string{view.ID.String(), edit.ID.String()},
	})
	require.NoError(t, err)

	roles, err := svc.ListRoles(context.Background())
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, role.ID, roles[0].ID)
	assert.Len(t, roles[0].Permissions, 2)
}

func TestCreateRoleUnknownPermission(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)

	_, err := svc.CreateRole(context.Background(), domain.CreateRoleRequest{
		Name:          "manager",
		PermissionIDs: []string{snowflake.ID(99999).String()},
	})
	assert.ErrorIs(t, err, domain.ErrUnknownPermission)

	roles, err := svc.ListRoles(context.Background())
	require.NoError(t, err)
	assert.Empty(t, roles)
}

func TestUpdateRoleReplacesPermissions(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)

	view := mustCreatePermission(t, svc, "view reports")
	edit := mustCreatePermission(t, svc, "edit campaigns")

	role, err := svc.CreateRole(context.Background(), domain.CreateRoleRequest{
		Name:          "manager",
		PermissionIDs: []string{view.ID.String()},
	})
	require.NoError(t, err)

	updated, err := svc.UpdateRole(context.Background(), domain.UpdateRoleRequest{
		ID:            role.ID.String(),
		Name:          "Supervisor",
		PermissionIDs: []string{edit.ID.String()},
	})
	require.NoError(t, err)
	assert.Equal(t, "supervisor", updated.Name)
	require.Len(t, updated.Permissions, 1)
	assert.Equal(t, "edit campaigns", updated.Permissions[0].Name)
}

func TestUpdateRoleDuplicateName(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)

	mustCreateRole(t, svc, "manager")
	role := mustCreateRole(t, svc, "support")

	_, err := svc.UpdateRole(context.Background(), domain.UpdateRoleRequest{
		ID:   role.ID.String(),
		Name: "manager",
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateName)

	renamed, err := svc.UpdateRole(context.Background(), domain.UpdateRoleRequest{
		ID:   role.ID.String(),
		Name: "support",
	})
	require.NoError(t, err)
	assert.Equal(t, "support", renamed.Name)
}

func TestUpdateRoleKeepsAdminName(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)

	admin := mustCreateRole(t, svc, domain.AdminRoleName)

	_, err := svc.UpdateRole(context.Background(), domain.UpdateRoleRequest{
		ID:   admin.ID.String(),
		Name: "superuser",
	})
	assert.ErrorIs(t, err, domain.ErrProtectedRole)
}

func TestRemoveRoleNeverDropsBothAdmins(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)

	admin := mustCreateRole(t, svc, domain.AdminRoleName)
	first := svc.genID.Generate()
	second := svc.genID.Generate()
	mustAssign(t, svc, first, admin)
	mustAssign(t, svc, second, admin)

	// Two admins each giving up the role: the role lock inside
	// guardLastAdmin orders the transactions, so whichever commits
	// second must see a single remaining admin and refuse.
	require.NoError(t, svc.RemoveRole(context.Background(), domain.AssignRoleRequest{
		AccountID: first.String(),
		RoleID:    admin.ID.String(),
	}))

	err := svc.RemoveRole(context.Background(), domain.AssignRoleRequest{
		AccountID: second.String(),
		RoleID:    admin.ID.String(),
	})
	assert.ErrorIs(t, err, domain.ErrLastAdmin)

	admins, err := svc.repo.CountAccountsWithRole(context.Background(), db, admin.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, admins)
}

func TestCreatePermissionDuplicate(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)

	_, err := svc.CreatePermission(context.Background(), domain.CreatePermissionRequest{Name: "manage users"})
	require.NoError(t, err)

	_, err = svc.CreatePermission(context.Background(), domain.CreatePermissionRequest{Name: "manage users"})
	assert.ErrorIs(t, err, domain.ErrDuplicateName)

	permissions, err := svc.ListPermissions(context.Background())
	require.NoError(t, err)
	assert.Len(t, permissions, 1)
}
