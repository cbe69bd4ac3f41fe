package httpapi

import (
	"net/http"
	"strconv"

	"arrest-log/internal/rbac"
	"arrest-log/internal/settings"

	"github.com/gin-gonic/gin"
)

const (
	defaultLogLimit = 200
	maxLogLimit     = 1000
)

func (h Handlers) ListUsers(c *gin.Context) {
	list, err := h.Users.List(c.Request.Context())
	if err != nil {
		internalError(c, "list users", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": list})
}

type changeRoleRequest struct {
	Role string `json:"role"`
}

func (h Handlers) ChangeUserRole(c *gin.Context) {
	u, ok := actor(c)
	if !ok {
		return
	}
	var req changeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "json inválido")
		return
	}
	role, err := rbac.ParseRole(req.Role)
	if err != nil {
		fail(c, http.StatusBadRequest, "papel inválido")
		return
	}
	updated, err := h.Users.ChangeRole(c.Request.Context(), u, c.Param("id"), role)
	if err != nil {
		respondErr(c, "change role", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": updated})
}

func (h Handlers) RemoveUser(c *gin.Context) {
	u, ok := actor(c)
	if !ok {
		return
	}
	removed, err := h.Users.RemoveUser(c.Request.Context(), u, c.Param("id"))
	if err != nil {
		respondErr(c, "remove user", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": removed})
}

func (h Handlers) ListLogs(c *gin.Context) {
	limit := defaultLogLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			fail(c, http.StatusBadRequest, "limit inválido")
			return
		}
		limit = min(n, maxLogLimit)
	}
	logs, err := h.Audit.List(c.Request.Context(), limit)
	if err != nil {
		internalError(c, "list logs", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

func (h Handlers) GetSettings(c *gin.Context) {
	u, ok := actor(c)
	if !ok {
		return
	}
	s, err := h.Settings.Get(c.Request.Context())
	if err != nil {
		internalError(c, "get settings", err)
		return
	}
	if !rbac.CanManageSettings(u.Role) {
		s = s.Redacted()
	}
	c.JSON(http.StatusOK, gin.H{"settings": s})
}

func (h Handlers) PutSettings(c *gin.Context) {
	u, ok := actor(c)
	if !ok {
		return
	}
	var req settings.AppSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "json inválido")
		return
	}
	saved, err := h.Settings.Put(c.Request.Context(), u, req)
	if err != nil {
		respondErr(c, "put settings", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "settings": saved})
}
