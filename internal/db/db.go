package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/heic2pdf/backend/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

var (
	ErrFailedToParseConfig = errors.New("failed to parse database config")
	ErrFailedToConnect     = errors.New("failed to open database connection")
	ErrHealthcheckFailed   = errors.New("database healthcheck failed")
)

// Connect opens a pgx pool, retrying with a linear backoff while the database comes up.
func Connect(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(normalizeDSN(cfg.DBConnectionString, cfg.IsDevelopment()))
	if err != nil {
		return nil, errors.Join(ErrFailedToParseConfig, err)
	}
	poolCfg.MaxConns = cfg.DBMaxConns
	poolCfg.MinConns = cfg.DBMinConns
	poolCfg.MaxConnIdleTime = cfg.DBMaxConnIdleTime

	attempts := max(cfg.DBRetryAttempts, 1)
	var lastErr error
	for i := range attempts {
		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				logger.Info().Int("attempt", i+1).Msg("Database connection successful")
				return pool, nil
			}
			pool.Close()
		}
		lastErr = err
		logger.Warn().Err(err).Int("attempt", i+1).Msg("Database not ready, retrying")

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrFailedToConnect, ctx.Err())
		case <-time.After(time.Duration(i+1) * cfg.DBRetryInterval):
		}
	}
	return nil, errors.Join(ErrFailedToConnect, lastErr)
}

// Healthcheck returns a closure suitable for a readiness endpoint.
func Healthcheck(pool *pgxpool.Pool) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}

// normalizeDSN disables SSL for local databases and forces the simple protocol
// elsewhere, since hosted Postgres sits behind a transaction pooler.
func normalizeDSN(dsn string, development bool) string {
	if development && !strings.Contains(dsn, "sslmode") {
		dsn = appendParam(dsn, "sslmode=disable")
	}
	if !development && !strings.Contains(dsn, "default_query_exec_mode") {
		dsn = appendParam(dsn, "default_query_exec_mode=simple_protocol")
	}
	return dsn
}

func appendParam(dsn, param string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		if strings.Contains(dsn, "?") {
			return dsn + "&" + param
		}
		return dsn + "?" + param
	}
	return fmt.Sprintf("%s %s", dsn, param)
}
