package main

import (
	"log/slog"

	"arrest-log/internal/httpapi"
	"arrest-log/pkg/logger"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

// newRouter builds the engine and its middleware chain.
// Keep this file free of business logic; routes live in httpapi.Handlers.Routes.
func newRouter(log *slog.Logger, h httpapi.Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	// Record lists carry inline base64 screenshots; compress them.
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/healthz"})))

	h.Routes(r)
	return r
}
