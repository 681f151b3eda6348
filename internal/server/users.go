package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	authdomain "github.com/leadwayhq/leadway/internal/auth/domain"
	rbacdomain "github.com/leadwayhq/leadway/internal/rbac/domain"
)

type createUserRequest struct {
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Roles    []string `json:"roles"`
}

type assignRoleRequest struct {
	RoleID string `json:"role_id"`
}

type syncRolesRequest struct {
	Roles []string `json:"roles"`
}

type userResponse struct {
	*authdomain.Account
	Roles []rbacdomain.Role `json:"roles"`
}

func (s *Server) ListUsers(c *gin.Context) {
	accounts, err := s.accountRepo.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	users := make([]userResponse, 0, len(accounts))
	for i := range accounts {
		account := accounts[i]
		roles, err := s.rbacSvc.RolesForAccount(c.Request.Context(), account.ID.String())
		if err != nil {
			AbortWithError(c, err)
			return
		}
		users = append(users, userResponse{Account: &account, Roles: roles})
	}

	c.JSON(http.StatusOK, gin.H{"data": users})
}

func (s *Server) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	account, err := s.authsvc.CreateAccount(c.Request.Context(), authdomain.CreateAccountRequest{
		Name:     strings.TrimSpace(req.Name),
		Email:    strings.TrimSpace(req.Email),
		Password: req.Password,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if len(req.Roles) > 0 {
		err = s.rbacSvc.SyncRoles(c.Request.Context(), rbacdomain.SyncRolesRequest{
			AccountID: account.ID.String(),
			RoleNames: req.Roles,
		})
		if err != nil {
			AbortWithError(c, err)
			return
		}
	}

	s.auditMutation(c, "user.create", "account", account.ID.String(), map[string]any{
		"email": account.Email,
		"roles": req.Roles,
	})
	c.JSON(http.StatusOK, gin.H{"data": account})
}

func (s *Server) ListUserRoles(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	roles, err := s.rbacSvc.RolesForAccount(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": roles})
}

func (s *Server) AssignUserRole(c *gin.Context) {
	accountID := strings.TrimSpace(c.Param("id"))

	var req assignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err := s.rbacSvc.AssignRole(c.Request.Context(), rbacdomain.AssignRoleRequest{
		AccountID: accountID,
		RoleID:    req.RoleID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditMutation(c, "user.assign_role", "account", accountID, map[string]any{
		"role_id": req.RoleID,
	})
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) RemoveUserRole(c *gin.Context) {
	accountID := strings.TrimSpace(c.Param("id"))
	roleID := strings.TrimSpace(c.Param("roleId"))

	err := s.rbacSvc.RemoveRole(c.Request.Context(), rbacdomain.AssignRoleRequest{
		AccountID: accountID,
		RoleID:    roleID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditMutation(c, "user.remove_role", "account", accountID, map[string]any{
		"role_id": roleID,
	})
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) SyncUserRoles(c *gin.Context) {
	accountID := strings.TrimSpace(c.Param("id"))

	var req syncRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err := s.rbacSvc.SyncRoles(c.Request.Context(), rbacdomain.SyncRolesRequest{
		AccountID: accountID,
		RoleNames: req.Roles,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditMutation(c, "user.sync_roles", "account", accountID, map[string]any{
		"roles": req.Roles,
	})
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
