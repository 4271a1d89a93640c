package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"natours-api/internal/core/server"
)

// NewAPIEngine serves the public API under /api/v1.
func NewAPIEngine(l *zap.Logger, o server.Options, mods *Registry) *gin.Engine {
	r := server.NewRouter(l, o)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	mods.MountAPI(api)
	return r
}
