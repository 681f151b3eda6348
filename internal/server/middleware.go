package server

import (
	"strings"

	"github.com/gin-gonic/gin"

	authdomain "github.com/leadwayhq/leadway/internal/auth/domain"
	rbacdomain "github.com/leadwayhq/leadway/internal/rbac/domain"
)

const (
	contextAccountKey = "current_account"
	contextRolesKey   = "current_roles"
)

// AuthRequired authenticates the session cookie and loads the account
// and its role set once, so downstream stages and handlers read from
// the request context instead of hitting the store again.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := s.sessions.ReadToken(c)
		if !ok || strings.TrimSpace(token) == "" {
			s.denyUnauthenticated(c)
			return
		}

		sess, err := s.authsvc.Authenticate(c.Request.Context(), token)
		if err != nil {
			s.denyUnauthenticated(c)
			return
		}

		account, err := s.authsvc.GetAccount(c.Request.Context(), sess.AccountID.String())
		if err != nil {
			AbortWithError(c, err)
			return
		}

		roles, err := s.rbacSvc.RoleSetForAccount(c.Request.Context(), account.ID.String())
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(contextAccountKey, account)
		c.Set(contextRolesKey, roles)
		c.Next()
	}
}

func currentAccount(c *gin.Context) (*authdomain.Account, bool) {
	value, ok := c.Get(contextAccountKey)
	if !ok {
		return nil, false
	}
	account, ok := value.(*authdomain.Account)
	return account, ok && account != nil
}

func currentRoles(c *gin.Context) rbacdomain.RoleSet {
	value, ok := c.Get(contextRolesKey)
	if !ok {
		return rbacdomain.RoleSet{}
	}
	roles, ok := value.(rbacdomain.RoleSet)
	if !ok {
		return rbacdomain.RoleSet{}
	}
	return roles
}

// wantsJSON distinguishes API-style clients from browser navigation.
// API clients get structured 401/403 payloads, browsers get redirects.
func wantsJSON(c *gin.Context) bool {
	if strings.EqualFold(c.GetHeader("X-Requested-With"), "XMLHttpRequest") {
		return true
	}

	accept := c.GetHeader("Accept")
	if strings.Contains(accept, "application/json") {
		return true
	}
	if strings.Contains(accept, "text/html") {
		return false
	}

	contentType := c.ContentType()
	return strings.Contains(contentType, "application/json")
}
