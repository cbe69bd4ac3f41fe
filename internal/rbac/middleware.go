package rbac

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ContextRoleKey is the gin context key the auth middleware stores the
// session role under.
const ContextRoleKey = "role"

func roleFromGin(c *gin.Context) (Role, bool) {
	v, ok := c.Get(ContextRoleKey)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	r, err := ParseRole(s)
	if err != nil {
		return "", false
	}
	return r, true
}

// RequireSession rejects requests that carry no resolved session role.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := roleFromGin(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "session required"})
			return
		}
		c.Next()
	}
}

// Require allows the request only if p holds for the session role.
func Require(p Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := roleFromGin(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "session required"})
			return
		}
		if !Allowed(p, role, true) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "message": "forbidden"})
			return
		}
		c.Next()
	}
}

// RequireAnyRole allows access if the caller has any of the provided roles.
func RequireAnyRole(allowed ...Role) gin.HandlerFunc {
	allowedSet := make(map[Role]struct{}, len(allowed))
	for _, r := range allowed {
		allowedSet[r] = struct{}{}
	}
	return Require(func(r Role) bool {
		_, ok := allowedSet[r]
		return ok
	})
}
