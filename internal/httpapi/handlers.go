package httpapi

import (
	"context"
	"errors"
	"net/http"

	"arrest-log/internal/audit"
	"arrest-log/internal/auth"
	"arrest-log/internal/imagerelay"
	"arrest-log/internal/records"
	"arrest-log/internal/reporting"
	"arrest-log/internal/settings"
	"arrest-log/internal/users"
	"arrest-log/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth     *auth.Service
	Users    *users.Service
	Records  *records.Service
	Audit    *audit.Service
	Settings *settings.Service
	Images   *imagerelay.Client
	Reports  *reporting.Service

	// Ready reports backend health for /healthz. Optional.
	Ready func(ctx context.Context) error
}

func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}

// internalError logs err and answers 500 without leaking it.
func internalError(c *gin.Context, op string, err error) {
	logger.FromGin(c).Error(op+" failed", "err", err)
	_ = c.Error(err)
	fail(c, http.StatusInternalServerError, "erro interno")
}

// actor returns the session user set by auth.RequireAccessToken.
func actor(c *gin.Context) (users.User, bool) {
	id, ok := auth.IdentityFrom(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "sessão necessária")
		return users.User{}, false
	}
	return id.User, true
}

func (h Handlers) Healthz(c *gin.Context) {
	if h.Ready != nil {
		if err := h.Ready(c.Request.Context()); err != nil {
			logger.FromGin(c).Warn("readiness check failed", "err", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func statusFor(err error) (int, string, bool) {
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		return http.StatusBadRequest, "usuário e senha são obrigatórios", true
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "usuário ou senha incorretos", true
	case errors.Is(err, auth.ErrPendingApproval):
		return http.StatusForbidden, "conta aguardando aprovação", true
	case errors.Is(err, auth.ErrSessionNotFound):
		return http.StatusUnauthorized, "sessão expirada", true
	case errors.Is(err, users.ErrDuplicateUsername):
		return http.StatusConflict, "usuário já existe", true
	case errors.Is(err, users.ErrNotFound):
		return http.StatusNotFound, "usuário não encontrado", true
	case errors.Is(err, users.ErrSelfRemoval):
		return http.StatusBadRequest, "não é possível remover a própria conta", true
	case errors.Is(err, users.ErrInvalidArgument):
		return http.StatusBadRequest, "requisição inválida", true
	case errors.Is(err, records.ErrForbidden), errors.Is(err, settings.ErrForbidden), errors.Is(err, users.ErrForbidden):
		return http.StatusForbidden, "sem permissão", true
	case errors.Is(err, records.ErrVersionConflict):
		return http.StatusConflict, "registro alterado por outro usuário", true
	case errors.Is(err, records.ErrInvalidRecord), errors.Is(err, settings.ErrInvalidSettings):
		return http.StatusBadRequest, err.Error(), true
	case errors.Is(err, reporting.ErrInvalidRequest):
		return http.StatusBadRequest, "período inválido", true
	}
	return 0, "", false
}

// respondErr renders a known domain error, or a 500 for anything else.
func respondErr(c *gin.Context, op string, err error) {
	if status, msg, ok := statusFor(err); ok {
		fail(c, status, msg)
		return
	}
	internalError(c, op, err)
}
