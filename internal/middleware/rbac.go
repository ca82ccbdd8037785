package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classroom-quest-api/internal/models"
	appErrors "github.com/noah-isme/classroom-quest-api/pkg/errors"
	"github.com/noah-isme/classroom-quest-api/pkg/response"
)

// RBAC admits sessions whose role or scope is in allowed. SYSTEM sessions are always admitted.
func RBAC(allowed ...string) gin.HandlerFunc {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		allowedSet[a] = struct{}{}
	}

	return func(c *gin.Context) {
		session := SessionFromContext(c)
		if session == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if session.IsSystem() {
			c.Next()
			return
		}
		if _, ok := allowedSet[string(session.Role)]; ok {
			c.Next()
			return
		}
		if _, ok := allowedSet[string(session.Scope)]; ok {
			c.Next()
			return
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}

// RequireRoles is a helper that accepts a list of roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make([]string, len(roles))
	for i, r := range roles {
		allowed[i] = string(r)
	}
	return RBAC(allowed...)
}

// RequireScopes admits school admins and/or system sessions.
func RequireScopes(scopes ...models.SessionScope) gin.HandlerFunc {
	allowed := make([]string, len(scopes))
	for i, s := range scopes {
		allowed[i] = string(s)
	}
	return RBAC(allowed...)
}
