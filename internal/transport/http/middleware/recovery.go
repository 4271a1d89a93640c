package middleware

import (
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	resp "natours-api/internal/transport/http/response"
)

// Recovery logs panics through zap and answers with the error envelope.
func Recovery(l *zap.Logger, dev bool) gin.HandlerFunc {
	r := resp.Renderer{Log: l, Dev: dev}
	return ginzap.CustomRecoveryWithZap(l, true, r.Panic)
}
