package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"natours-api/internal/core/server"
	"natours-api/internal/domain"
	mdw "natours-api/internal/transport/http/middleware"
)

// NewAdminEngine serves /admin/v1. Every route requires the admin role.
func NewAdminEngine(l *zap.Logger, o server.Options, guard *mdw.Authenticator, mods *Registry) *gin.Engine {
	r := server.NewRouter(l, o)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	admin := r.Group("/admin/v1", guard.Protect(), mdw.Authorize(domain.RoleAdmin))
	mods.MountAdmin(admin)
	return r
}
