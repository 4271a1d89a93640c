package main

import (
	"context"
	"fmt"
	"os"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"natours-api/internal/app"
	"natours-api/internal/core/config"
	"natours-api/internal/core/logger"
	"natours-api/internal/core/server"
	"natours-api/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	log, cleanup := logger.New(logger.FromConfig(cfg.Log))
	defer cleanup()
	defer logger.RedirectStdLog(log, zapcore.InfoLevel)()

	if cfg.App.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	gin.DefaultWriter = logger.ToWriter(log, zapcore.DebugLevel)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Mongo.TimeoutSec)*time.Second)
	a, err := app.New(ctx, cfg, log)
	cancel()
	if err != nil {
		log.Fatal("startup failed", zap.Error(err))
	}

	r := router.NewAdminEngine(log, server.OptionsFrom(cfg.App), a.Guard, a.Registry())

	addr := server.Addr(cfg.App.Admin.Host, cfg.App.Admin.Port)
	srv := server.BuildServer(addr, r, 5*time.Second, 10*time.Second, 60*time.Second,
		logger.ToStdLogger(log, zapcore.ErrorLevel))

	host4human := cfg.App.Admin.Host
	if host4human == "" || host4human == "0.0.0.0" {
		host4human = "127.0.0.1"
	}
	baseURL := "http://" + host4human + ":" + fmt.Sprint(cfg.App.Admin.Port)
	log.Info("admin api starting",
		zap.String("open", baseURL),
		zap.String("health", baseURL+"/health"),
		zap.String("admin_v1", baseURL+"/admin/v1"),
	)

	if err := server.Serve(srv, log, "admin", 10*time.Second); err != nil {
		log.Error("admin api stopped with error", zap.Error(err))
	}
	if err := a.Close(context.Background()); err != nil {
		log.Warn("close resources", zap.Error(err))
	}
	log.Info("admin api stopped gracefully")
}
