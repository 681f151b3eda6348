package seed

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	authdomain "github.com/leadwayhq/leadway/internal/auth/domain"
	"github.com/leadwayhq/leadway/internal/auth/password"
	"github.com/leadwayhq/leadway/internal/config"
	rbacdomain "github.com/leadwayhq/leadway/internal/rbac/domain"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&authdomain.Account{},
		&rbacdomain.Role{},
		&rbacdomain.Permission{},
		&rbacdomain.RolePermission{},
		&rbacdomain.AccountRole{},
	))
	return db
}

func testConfig() config.Config {
	return config.Config{
		BootstrapAdminEmail:    "admin@leadway.local",
		BootstrapAdminPassword: "admin",
	}
}

func TestEnsureDefaults(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, EnsureDefaults(db, testConfig()))

	var permissionCount int64
	require.NoError(t, db.Model(&rbacdomain.Permission{}).Count(&permissionCount).Error)
	assert.Equal(t, int64(len(defaultPermissions)), permissionCount)

	var roles []rbacdomain.Role
	require.NoError(t, db.Order("name asc").Find(&roles).Error)
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, role.Name)
	}
	assert.Equal(t, []string{"admin", "manager", "user"}, names)

	var admin authdomain.Account
	require.NoError(t, db.Where("email = ?", "admin@leadway.local").First(&admin).Error)
	require.NotNil(t, admin.PasswordHash)
	assert.True(t, password.Verify("admin", *admin.PasswordHash))

	var adminRole rbacdomain.Role
	require.NoError(t, db.Where("name = ?", rbacdomain.AdminRoleName).First(&adminRole).Error)

	var link rbacdomain.AccountRole
	require.NoError(t, db.Where("account_id = ? AND role_id = ?", admin.ID, adminRole.ID).First(&link).Error)
}

func TestEnsureDefaultsIsIdempotent(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, EnsureDefaults(db, testConfig()))
	require.NoError(t, EnsureDefaults(db, testConfig()))

	var roleCount int64
	require.NoError(t, db.Model(&rbacdomain.Role{}).Count(&roleCount).Error)
	assert.Equal(t, int64(3), roleCount)

	var accountCount int64
	require.NoError(t, db.Model(&authdomain.Account{}).Count(&accountCount).Error)
	assert.Equal(t, int64(1), accountCount)
}

func TestEnsureDefaultsGrantsUserRoleSubset(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, EnsureDefaults(db, testConfig()))

	var userRole rbacdomain.Role
	require.NoError(t, db.Where("name = ?", "user").First(&userRole).Error)

	var grants int64
	require.NoError(t, db.Model(&rbacdomain.RolePermission{}).
		Where("role_id = ?", userRole.ID).
		Count(&grants).Error)
	assert.Equal(t, int64(2), grants)
}
