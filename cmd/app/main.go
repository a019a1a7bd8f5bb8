package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/heic2pdf/backend/internal/api/v1/router"
	"github.com/heic2pdf/backend/internal/bootstrap"
	"github.com/heic2pdf/backend/internal/db"
	"github.com/heic2pdf/backend/internal/logger"
)

// @title HEIC2PDF API
// @version 1.0
// @description HEIC to PDF conversion with a daily free allowance and Pro subscriptions.
// @host localhost:8080
// @BasePath /v1
// @Schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	logger := logger.New()

	// 1. Load configuration
	cfg, err := bootstrap.LoadConfig(context.Background(), logger)
	if err != nil {
		logger.Fatal().Msgf("Error loading config: %v", err)
	}

	// 2. Connect to the database and apply migrations if asked to
	pool, err := db.Connect(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal().Msgf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if cfg.DBAutoMigrate {
		if err := db.Migrate(context.Background(), pool, logger); err != nil {
			logger.Fatal().Msgf("Failed to migrate database: %v", err)
		}
	}

	// 3. Build router
	r, billing, err := router.New(context.Background(), cfg, pool, logger)
	if err != nil {
		logger.Fatal().Msgf("Failed to build router: %v", err)
	}
	defer billing.Close()

	// 4. Create HTTP server. Conversions can take a while upstream.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.ConvertAPITimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Msgf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Msgf("Listen: %s", err)
		}
	}()

	// 5. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("Shutdown signal received, exiting...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Msgf("Server forced to shutdown: %v", err)
	}
	logger.Info().Msg("Server shut down gracefully")
}
