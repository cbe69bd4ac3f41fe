package httpapi

import (
	"net/http"

	"arrest-log/internal/auth"
	"arrest-log/internal/rbac"

	"github.com/gin-gonic/gin"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h Handlers) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "json inválido")
		return
	}
	u, err := h.Auth.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondErr(c, "register", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "cadastro realizado, aguarde aprovação",
		"user":    u,
	})
}

func (h Handlers) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "json inválido")
		return
	}
	res, err := h.Auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondErr(c, "login", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     "login realizado",
		"user":        res.User,
		"sessionId":   res.SessionID,
		"tokens":      res.Tokens,
		"permissions": rbac.Evaluate(res.User.Role, true),
	})
}

func (h Handlers) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		fail(c, http.StatusBadRequest, "refreshToken obrigatório")
		return
	}
	pair, err := h.Auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondErr(c, "refresh", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "tokens": pair})
}

func (h Handlers) Logout(c *gin.Context) {
	id, ok := auth.IdentityFrom(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "sessão necessária")
		return
	}
	if err := h.Auth.Logout(c.Request.Context(), id.SessionID); err != nil {
		internalError(c, "logout", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h Handlers) Me(c *gin.Context) {
	id, ok := auth.IdentityFrom(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "sessão necessária")
		return
	}
	u, found, err := h.Auth.CurrentUser(c.Request.Context(), id.SessionID)
	if err != nil {
		internalError(c, "current user", err)
		return
	}
	if !found {
		fail(c, http.StatusUnauthorized, "sessão expirada")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u, "roleLabel": u.RoleLabel()})
}

func (h Handlers) TouchActivity(c *gin.Context) {
	id, ok := auth.IdentityFrom(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "sessão necessária")
		return
	}
	if err := h.Auth.UpdateActivity(c.Request.Context(), id.SessionID); err != nil {
		internalError(c, "update activity", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h Handlers) Permissions(c *gin.Context) {
	u, ok := actor(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"role":        u.Role,
		"roleLabel":   u.Role.Label(),
		"permissions": rbac.Evaluate(u.Role, true),
	})
}

type roleView struct {
	Value rbac.Role `json:"value"`
	Label string    `json:"label"`
}

func (h Handlers) Roles(c *gin.Context) {
	out := make([]roleView, 0, len(rbac.Roles))
	for _, r := range rbac.Roles {
		out = append(out, roleView{Value: r, Label: r.Label()})
	}
	c.JSON(http.StatusOK, gin.H{"roles": out})
}
