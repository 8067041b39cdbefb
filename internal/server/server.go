package server

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/coeurdepaille/matching-service/internal/app"
	"github.com/coeurdepaille/matching-service/internal/config"
	"github.com/coeurdepaille/matching-service/internal/service/auth"
)

// Registrar is a common interface for all HTTP handler groups. Public
// routes skip the auth middleware; authed routes run behind it.
type Registrar interface {
	Register(public, authed *gin.RouterGroup)
}

// NewRouter builds the gin engine and mounts all provided handler
// groups under /api/v1.
func NewRouter(appCtx *app.AppContext, tokens *auth.TokenManager, registrars ...Registrar) *gin.Engine {
	if appCtx.Config.App.ENV != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(Recovery(appCtx.Logger))

	r.GET("/health", func(c *gin.Context) {
		OK(c, gin.H{"status": "ok"})
	})

	public := r.Group("/api/v1")
	authed := r.Group("/api/v1")
	authed.Use(AuthMiddleware(tokens))

	for _, reg := range registrars {
		reg.Register(public, authed)
	}

	return r
}

// Start runs the HTTP server on the configured address. Blocks until
// the listener fails.
func Start(cfg *config.Config, engine *gin.Engine) error {
	addr := fmt.Sprintf("%s:%s", cfg.HTTP.Host, cfg.HTTP.Port)
	if err := engine.Run(addr); err != nil {
		return fmt.Errorf("http server stopped: %w", err)
	}
	return nil
}
