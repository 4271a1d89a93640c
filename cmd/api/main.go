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
	"natours-api/internal/repo"
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
	if err != nil {
		cancel()
		log.Fatal("startup failed", zap.Error(err))
	}
	if err := repo.EnsureIndexes(ctx, a.DB); err != nil {
		log.Warn("ensure indexes", zap.Error(err))
	}
	cancel()

	r := router.NewAPIEngine(log, server.OptionsFrom(cfg.App), a.Registry())

	addr := server.Addr(cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	srv := server.BuildServer(
		addr, r,
		time.Duration(cfg.App.HTTP.ReadTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.WriteTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.IdleTimeoutSec)*time.Second,
		logger.ToStdLogger(log, zapcore.ErrorLevel),
	)

	host4human := cfg.App.HTTP.Host
	if host4human == "" || host4human == "0.0.0.0" {
		host4human = "127.0.0.1"
	}
	baseURL := "http://" + host4human + ":" + fmt.Sprint(cfg.App.HTTP.Port)
	log.Info("natours api starting",
		zap.String("env", cfg.App.Env),
		zap.String("open", baseURL),
		zap.String("health", baseURL+"/health"),
		zap.String("api_v1", baseURL+"/api/v1"),
	)

	if err := server.Serve(srv, log, "api", 10*time.Second); err != nil {
		log.Error("natours api stopped with error", zap.Error(err))
	}
	if err := a.Close(context.Background()); err != nil {
		log.Warn("close resources", zap.Error(err))
	}
	log.Info("natours api stopped gracefully")
}
