package db

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var migrations embed.FS

var ErrFailedToApplyMigrations = errors.New("failed to apply migrations")

// Migrate applies the embedded schema migrations through goose.
// goose speaks database/sql, so the pool is bridged with pgx's stdlib adapter.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger) error {
	sqlDB := stdlib.OpenDBFromPool(pool)
	defer func() {
		if err := sqlDB.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close migration connection")
		}
	}()

	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{logger: logger.With().Str("component", "migrations").Logger()})
	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}
	if err := goose.UpContext(ctx, sqlDB, "migrations"); err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}
	return nil
}

// gooseLogger routes goose output through zerolog.
type gooseLogger struct {
	logger zerolog.Logger
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.logger.Error().Msg(fmt.Sprintf(format, v...))
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.logger.Info().Msg(fmt.Sprintf(format, v...))
}
