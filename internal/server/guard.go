package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/leadwayhq/leadway/internal/authorization"
	"github.com/leadwayhq/leadway/internal/entitlement"
)

const (
	loginPath = "/login"
	homePath  = "/"
	plansPath = "/subscription/plans"

	flashCookieName   = "_flash"
	flashCookieMaxAge = 60
)

func (s *Server) denyUnauthenticated(c *gin.Context) {
	if wantsJSON(c) {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	c.Redirect(http.StatusFound, loginPath)
	c.Abort()
}

// RequireRoles passes when the account holds at least one of the named
// roles. It must run after AuthRequired.
func (s *Server) RequireRoles(roles ...string) gin.HandlerFunc {
	message := roleDenialMessage(roles)

	return func(c *gin.Context) {
		account, ok := currentAccount(c)
		if !ok {
			s.denyUnauthenticated(c)
			return
		}

		held := currentRoles(c)
		if held.HasAny(roles...) {
			c.Next()
			return
		}

		s.obsMetrics.RecordAccessDenied("role", "missing_role")
		s.auditDenial(c, account.ID.String(), "access.denied_role", map[string]any{
			"path":           c.Request.URL.Path,
			"required_roles": roles,
		})

		if wantsJSON(c) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": message})
			return
		}
		s.setFlash(c, message)
		c.Redirect(http.StatusFound, homePath)
		c.Abort()
	}
}

// RequirePermission passes when the account may exercise the named
// permission. Admins pass every check. It must run after AuthRequired.
func (s *Server) RequirePermission(permission string) gin.HandlerFunc {
	message := fmt.Sprintf("Access denied. The %s permission is required.", permission)

	return func(c *gin.Context) {
		account, ok := currentAccount(c)
		if !ok {
			s.denyUnauthenticated(c)
			return
		}

		err := s.authzSvc.Authorize(c.Request.Context(), account.ID.String(), permission)
		if err == nil {
			c.Next()
			return
		}
		if !errors.Is(err, authorization.ErrForbidden) {
			AbortWithError(c, err)
			return
		}

		s.obsMetrics.RecordAccessDenied("permission", "missing_permission")
		s.auditDenial(c, account.ID.String(), "access.denied_permission", map[string]any{
			"path":       c.Request.URL.Path,
			"permission": permission,
		})

		if wantsJSON(c) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": message})
			return
		}
		s.setFlash(c, message)
		c.Redirect(http.StatusFound, homePath)
		c.Abort()
	}
}

// SubscriptionRequired passes when the account's subscription mirror
// grants entitlement. Admins bypass the check so billing problems never
// lock the operators out. It must run after AuthRequired.
func (s *Server) SubscriptionRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		account, ok := currentAccount(c)
		if !ok {
			s.denyUnauthenticated(c)
			return
		}

		if currentRoles(c).IsAdmin() {
			c.Next()
			return
		}

		subscriptions, err := s.billingSvc.ListByAccount(c.Request.Context(), account.ID)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		decision := entitlement.Resolve(subscriptions, s.clock.Now())
		if decision.Entitled {
			c.Next()
			return
		}

		feature := entitlement.FeatureLabel(c.Request.URL.Path, s.features.Get())
		message := fmt.Sprintf("Access denied. Active subscription required to access %s.", feature)

		s.obsMetrics.RecordAccessDenied("entitlement", string(decision.Reason))
		s.auditDenial(c, account.ID.String(), "access.denied_subscription", map[string]any{
			"path":    c.Request.URL.Path,
			"feature": feature,
			"reason":  string(decision.Reason),
		})

		if wantsJSON(c) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"message":  message,
				"redirect": plansPath,
			})
			return
		}
		s.setFlash(c, message)
		c.Redirect(http.StatusFound, plansPath)
		c.Abort()
	}
}

func (s *Server) auditDenial(c *gin.Context, accountID string, action string, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	_ = s.auditSvc.AuditLog(c.Request.Context(), "account", &accountID, action, "route", nil, metadata)
}

func (s *Server) setFlash(c *gin.Context, message string) {
	c.SetCookie(flashCookieName, message, flashCookieMaxAge, "/", "", s.cfg.AuthCookieSecure, false)
}

// roleDenialMessage names the missing roles so the caller knows what to
// ask for, e.g. "Access denied. Admin or Manager role required."
func roleDenialMessage(roles []string) string {
	if len(roles) == 0 {
		return "Access denied."
	}

	titled := make([]string, 0, len(roles))
	for _, role := range roles {
		role = strings.TrimSpace(role)
		if role == "" {
			continue
		}
		titled = append(titled, strings.ToUpper(role[:1])+role[1:])
	}
	return fmt.Sprintf("Access denied. %s role required.", strings.Join(titled, " or "))
}
