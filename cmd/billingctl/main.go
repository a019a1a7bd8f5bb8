package main

import (
	"context"
	"os"

	"github.com/heic2pdf/backend/internal/bootstrap"
	"github.com/heic2pdf/backend/internal/cli"
	"github.com/heic2pdf/backend/internal/db"
	"github.com/heic2pdf/backend/internal/logger"
)

func main() {
	logger := logger.New()

	load := func(ctx context.Context) (*cli.App, error) {
		cfg, err := bootstrap.LoadConfig(ctx, logger)
		if err != nil {
			return nil, err
		}
		pool, err := db.Connect(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		billing, err := bootstrap.NewBilling(ctx, cfg, pool, logger)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return &cli.App{
			Resolver:   billing.Resolver,
			Reconciler: billing.Reconciler,
			Migrate: func(ctx context.Context) error {
				return db.Migrate(ctx, pool, logger)
			},
			Close: func() error {
				err := billing.Close()
				pool.Close()
				return err
			},
		}, nil
	}

	if err := cli.NewRootCmd(load).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
