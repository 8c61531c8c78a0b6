// Package app wires the store, authentication, metrics and HTTP handlers
// into a router. The server binary and the serverless entry point share it.
package app

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/arnavshah/leave-scheduler-go/pkg/auth"
	"github.com/arnavshah/leave-scheduler-go/pkg/config"
	"github.com/arnavshah/leave-scheduler-go/pkg/database"
	"github.com/arnavshah/leave-scheduler-go/pkg/handlers"
	"github.com/arnavshah/leave-scheduler-go/pkg/metrics"
)

// App is a fully wired server
type App struct {
	Router  *gin.Engine
	Store   *database.Store
	Handler *handlers.Handler
}

// New opens the database, seeds the admin user and builds the router
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	store, err := database.Open(cfg.DatabaseURL, cfg.DataPath)
	if err != nil {
		return nil, err
	}

	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET not set, tokens will not survive a restart")
	}
	if cfg.APIMasterSecret == "" {
		logger.Warn("API_MASTER_SECRET not set, integration keys are disabled")
	}
	manager := auth.NewManager(cfg.JWTSecret, cfg.APIMasterSecret, cfg.TokenTTL)
	if err := auth.EnsureAdminExists(store, cfg.AdminUsername, cfg.AdminPassword, logger); err != nil {
		return nil, err
	}

	var (
		recorder metrics.Recorder = metrics.NewNop()
		gatherer prometheus.Gatherer
	)
	if cfg.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		recorder = metrics.NewPrometheus(reg, "")
		gatherer = reg
	}

	h, err := handlers.New(store, manager, cfg, logger, recorder, gatherer)
	if err != nil {
		return nil, err
	}
	return &App{Router: handlers.NewRouter(h), Store: store, Handler: h}, nil
}
