package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"github.com/heic2pdf/backend/internal/bootstrap"
	"github.com/heic2pdf/backend/internal/db"
	"github.com/heic2pdf/backend/internal/logger"
	"github.com/heic2pdf/backend/internal/orchestrator/expiry"
)

func main() {
	mode := flag.String("mode", "expiry", "Orchestrator mode: expiry")
	once := flag.Bool("once", false, "Run a single pass and exit (for cron jobs)")
	flag.Parse()

	logger := logger.New()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := bootstrap.LoadConfig(ctx, logger)
	if err != nil {
		logger.Fatal().Msgf("Error loading config: %v", err)
	}

	pool, err := db.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Msgf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	billing, err := bootstrap.NewBilling(ctx, cfg, pool, logger)
	if err != nil {
		logger.Fatal().Msgf("Failed to build billing services: %v", err)
	}
	defer billing.Close()

	var runErr error
	switch *mode {
	case "expiry":
		runErr = expiry.Run(ctx, logger, billing.Reconciler, cfg.ExpirySweepInterval, *once)
	default:
		logger.Fatal().Msgf("Invalid mode: %s", *mode)
	}

	if runErr != nil {
		logger.Fatal().Msgf("%s orchestrator failed: %v", *mode, runErr)
	}

	logger.Info().Msgf("%s orchestrator stopped gracefully", *mode)
}
