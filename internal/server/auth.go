package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	authdomain "github.com/leadwayhq/leadway/internal/auth/domain"
	"github.com/leadwayhq/leadway/internal/auth/password"
	"github.com/leadwayhq/leadway/internal/ratelimit"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (s *Server) Login(c *gin.Context) {
	if s.limiter.Enabled() {
		result, err := s.limiter.AllowLogin(c.Request.Context(), c.ClientIP())
		if err == nil && !result.Allowed {
			c.Header("Retry-After", ratelimit.RetryAfterSeconds(result.RetryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"message": "too many login attempts"})
			return
		}
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	email := strings.TrimSpace(req.Email)
	result, err := s.authsvc.Login(c.Request.Context(), authdomain.LoginRequest{
		Email:     email,
		Password:  req.Password,
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
	})
	if err != nil {
		s.obsMetrics.RecordLoginAttempt("failure")
		if s.auditSvc != nil {
			_ = s.auditSvc.AuditLog(c.Request.Context(), "account", nil, "account.login_failed", "account", nil, map[string]any{
				"email": email,
			})
		}
		AbortWithError(c, err)
		return
	}

	s.sessions.Set(c, result.RawToken, result.ExpiresAt)

	s.obsMetrics.RecordLoginAttempt("success")
	if s.auditSvc != nil {
		accountID := result.Account.ID.String()
		_ = s.auditSvc.AuditLog(c.Request.Context(), "account", &accountID, "account.login", "account", &accountID, map[string]any{
			"email": email,
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": result.Account})
}

func (s *Server) Logout(c *gin.Context) {
	token, ok := s.sessions.ReadToken(c)
	if ok && strings.TrimSpace(token) != "" {
		_ = s.authsvc.Logout(c.Request.Context(), token)
	}

	s.sessions.Clear(c)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) Me(c *gin.Context) {
	account, ok := currentAccount(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	roles, err := s.rbacSvc.RolesForAccount(c.Request.Context(), account.ID.String())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"account": account,
			"roles":   roles,
		},
	})
}

func (s *Server) ChangePassword(c *gin.Context) {
	account, ok := currentAccount(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	currentPassword := strings.TrimSpace(req.CurrentPassword)
	newPassword := strings.TrimSpace(req.NewPassword)
	if currentPassword == "" {
		AbortWithError(c, newValidationError("current_password", "required", "current password is required"))
		return
	}
	if newPassword == "" {
		AbortWithError(c, newValidationError("new_password", "required", "new password is required"))
		return
	}
	if currentPassword == newPassword {
		AbortWithError(c, newValidationError("new_password", "must_differ", "new password must be different"))
		return
	}

	if account.PasswordHash == nil || !password.Verify(currentPassword, *account.PasswordHash) {
		AbortWithError(c, newValidationError("current_password", "invalid_credentials", "current password is incorrect"))
		return
	}

	if err := s.authsvc.ChangePassword(c.Request.Context(), account.ID.String(), newPassword); err != nil {
		AbortWithError(c, err)
		return
	}

	if s.auditSvc != nil {
		accountID := account.ID.String()
		_ = s.auditSvc.AuditLog(c.Request.Context(), "account", &accountID, "account.change_password", "account", &accountID, nil)
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
