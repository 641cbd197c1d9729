package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"pokertracker/internal/auth"
	"pokertracker/internal/cache"
	"pokertracker/internal/cli"
	apphttp "pokertracker/internal/http"
	"pokertracker/internal/log"
	"pokertracker/internal/services"
)

func main() {
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.SetupLogger(nil).Error("Configuration validation failed",
			log.FieldError, err, log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg)

	result, backendCfg, err := cli.InitBackend(context.Background(), logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	statsSvc := services.NewStatsService(result.Store, cfg.StatsCacheTTL, logger)
	sessionSvc := services.NewSessionService(result.Store, result.Publisher, statsSvc, logger)
	authSvc := services.NewAuthService(result.Store, auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL), cfg.BcryptCost, logger)

	caches := cache.NewManager()
	if c := statsSvc.Cache(); c != nil {
		caches.Register(c)
		caches.StartCleanup(10 * time.Minute)
	}

	srv := apphttp.NewServer(apphttp.ServerConfig{
		Addr:               cfg.Addr(),
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	}, apphttp.Dependencies{
		Sessions: sessionSvc,
		Stats:    statsSvc,
		Auth:     authSvc,
		Ready:    result.Store,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		caches.Stop()
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Starting pokertracker server",
		"addr", cfg.Addr(),
		"backend", backendCfg.Type,
		"amqp_enabled", result.Publisher != nil,
		log.FieldOperation, log.OpStartup)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "addr", cfg.Addr())
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
