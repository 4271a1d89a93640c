package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"natours-api/internal/app"
	"natours-api/internal/core/config"
	"natours-api/internal/core/logger"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:           "natoursctl",
	Short:         "Natours maintenance commands",
	Long:          "natoursctl seeds development data, builds indexes and issues tokens against the stores configured for the Natours API.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $CONFIG_PATH or configs/config.local.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level")
}

// withApp loads config, opens every store and hands the app to fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	_ = godotenv.Load()
	cfg, err := config.Read(cfgFile)
	if err != nil {
		return err
	}
	log, cleanup := logger.New(logger.Options{Level: logLevel})
	defer cleanup()

	ctx := cmd.Context()
	openCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Mongo.TimeoutSec)*time.Second)
	defer cancel()
	a, err := app.New(openCtx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(context.WithoutCancel(ctx)); err != nil {
			log.Warn("close resources", zap.Error(err))
		}
	}()
	return fn(ctx, a)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
