// Package domain contains the role and permission model. Roles gate
// whole areas of the app; permissions are finer-grained capabilities
// attached to roles.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// AdminRoleName is the protected role. It can never be deleted and at
// least one account must hold it at all times.
const AdminRoleName = "admin"

type Role struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	Name        string       `gorm:"type:text;not null;uniqueIndex:ux_roles_name" json:"name"`
	Description string       `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Role) TableName() string { return "roles" }

// Protected reports whether the role is exempt from deletion.
func (r Role) Protected() bool { return r.Name == AdminRoleName }

type Permission struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	Name        string       `gorm:"type:text;not null;uniqueIndex:ux_permissions_name" json:"name"`
	Description string       `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Permission) TableName() string { return "permissions" }

// RolePermission links one permission to one role.
type RolePermission struct {
	RoleID       snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"role_id"`
	PermissionID snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"permission_id"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (RolePermission) TableName() string { return "role_permissions" }

// AccountRole links one role to one account.
type AccountRole struct {
	AccountID snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"account_id"`
	RoleID    snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"role_id"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (AccountRole) TableName() string { return "account_roles" }

// RoleSet is the resolved set of role names held by one account, loaded
// once per request by the identity middleware.
type RoleSet map[string]struct{}

func NewRoleSet(names ...string) RoleSet {
	set := make(RoleSet, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}

func (s RoleSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

func (s RoleSet) HasAny(names ...string) bool {
	for _, name := range names {
		if s.Has(name) {
			return true
		}
	}
	return false
}

func (s RoleSet) IsAdmin() bool { return s.Has(AdminRoleName) }
