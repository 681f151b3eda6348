package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	rbacdomain "github.com/leadwayhq/leadway/internal/rbac/domain"
)

type createRoleRequest struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	PermissionIDs []string `json:"permission_ids"`
}

type updateRoleRequest struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	PermissionIDs []string `json:"permission_ids"`
}

type createPermissionRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type grantPermissionRequest struct {
	PermissionID string `json:"permission_id"`
}

func (s *Server) ListRoles(c *gin.Context) {
	roles, err := s.rbacSvc.ListRoles(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": roles})
}

func (s *Server) CreateRole(c *gin.Context) {
	var req createRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	role, err := s.rbacSvc.CreateRole(c.Request.Context(), rbacdomain.CreateRoleRequest{
		Name:          req.Name,
		Description:   req.Description,
		PermissionIDs: req.PermissionIDs,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditMutation(c, "role.create", "role", role.ID.String(), map[string]any{
		"name": role.Name,
	})
	c.JSON(http.StatusOK, gin.H{"data": role})
}

func (s *Server) UpdateRole(c *gin.Context) {
	var req updateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	role, err := s.rbacSvc.UpdateRole(c.Request.Context(), rbacdomain.UpdateRoleRequest{
		ID:            strings.TrimSpace(c.Param("id")),
		Name:          req.Name,
		Description:   req.Description,
		PermissionIDs: req.PermissionIDs,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditMutation(c, "role.update", "role", role.ID.String(), map[string]any{
		"name": role.Name,
	})
	c.JSON(http.StatusOK, gin.H{"data": role})
}

func (s *Server) DeleteRole(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.rbacSvc.DeleteRole(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditMutation(c, "role.delete", "role", id, nil)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) ListPermissions(c *gin.Context) {
	permissions, err := s.rbacSvc.ListPermissions(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": permissions})
}

func (s *Server) CreatePermission(c *gin.Context) {
	var req createPermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	permission, err := s.rbacSvc.CreatePermission(c.Request.Context(), rbacdomain.CreatePermissionRequest{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditMutation(c, "permission.create", "permission", permission.ID.String(), map[string]any{
		"name": permission.Name,
	})
	c.JSON(http.StatusOK, gin.H{"data": permission})
}

func (s *Server) DeletePermission(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.rbacSvc.DeletePermission(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditMutation(c, "permission.delete", "permission", id, nil)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) GrantPermission(c *gin.Context) {
	roleID := strings.TrimSpace(c.Param("id"))

	var req grantPermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err := s.rbacSvc.GrantPermission(c.Request.Context(), rbacdomain.GrantPermissionRequest{
		RoleID:       roleID,
		PermissionID: req.PermissionID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditMutation(c, "role.grant_permission", "role", roleID, map[string]any{
		"permission_id": req.PermissionID,
	})
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) RevokePermission(c *gin.Context) {
	roleID := strings.TrimSpace(c.Param("id"))
	permissionID := strings.TrimSpace(c.Param("permissionId"))

	err := s.rbacSvc.RevokePermission(c.Request.Context(), rbacdomain.GrantPermissionRequest{
		RoleID:       roleID,
		PermissionID: permissionID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.auditMutation(c, "role.revoke_permission", "role", roleID, map[string]any{
		"permission_id": permissionID,
	})
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) auditMutation(c *gin.Context, action, targetType, targetID string, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}

	var actorID *string
	if account, ok := currentAccount(c); ok {
		id := account.ID.String()
		actorID = &id
	}

	var target *string
	if strings.TrimSpace(targetID) != "" {
		target = &targetID
	}
	_ = s.auditSvc.AuditLog(c.Request.Context(), "account", actorID, action, targetType, target, metadata)
}
