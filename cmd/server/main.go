package main

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arnavshah/leave-scheduler-go/pkg/app"
	"github.com/arnavshah/leave-scheduler-go/pkg/config"
	"github.com/arnavshah/leave-scheduler-go/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Must(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = logger.Sync() }()

	gin.SetMode(cfg.GinMode)

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatal("could not start", zap.Error(err))
	}

	logger.Info("server starting", zap.String("port", cfg.Port), zap.Bool("metrics", cfg.MetricsEnabled))
	if err := a.Router.Run(":" + cfg.Port); err != nil {
		logger.Fatal("could not run server", zap.Error(err))
	}
}
