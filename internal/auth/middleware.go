package auth

import (
	"net/http"
	"strings"

	"arrest-log/pkg/logger"

	"github.com/gin-gonic/gin"
)

const authorizationHeader = "Authorization"
const bearerPrefix = "Bearer "

// Gin context keys set by RequireAccessToken.
const (
	ContextUserIDKey    = "user_id"
	ContextUsernameKey  = "username"
	ContextRoleKey      = "role"
	ContextSessionIDKey = "session_id"
)

// RequireAccessToken verifies an access token, resolves its session snapshot
// and injects the identity into the request context.
// It does not perform RBAC checks; those belong to internal/rbac.
func RequireAccessToken(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(authorizationHeader))
		if raw == "" || !strings.HasPrefix(raw, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "missing bearer token"})
			return
		}
		tok := strings.TrimPrefix(raw, bearerPrefix)

		id, err := svc.Authenticate(c.Request.Context(), tok)
		if err != nil {
			logger.FromGin(c).Debug("authentication rejected", "err", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid or expired session"})
			return
		}

		ctx := WithIdentity(c.Request.Context(), id)
		ctx = logger.With(ctx, logger.From(ctx).With("user_id", id.User.ID))
		c.Request = c.Request.WithContext(ctx)

		c.Set(ContextUserIDKey, id.User.ID)
		c.Set(ContextUsernameKey, id.User.Username)
		c.Set(ContextRoleKey, string(id.User.Role))
		c.Set(ContextSessionIDKey, id.SessionID)

		c.Next()
	}
}

// IdentityFrom returns the identity set by RequireAccessToken.
func IdentityFrom(c *gin.Context) (Identity, bool) {
	id, err := FromContext(c.Request.Context())
	return id, err == nil
}
