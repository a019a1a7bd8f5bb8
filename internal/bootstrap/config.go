package bootstrap

import (
	"context"

	"github.com/heic2pdf/backend/internal/config"
	"github.com/heic2pdf/backend/internal/service"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// LoadConfig reads .env (when present) and the environment, then replaces
// sm:// references with their Secret Manager values.
func LoadConfig(ctx context.Context, logger zerolog.Logger) (*config.Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("Warning: no .env file found")
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	fields := cfg.SecretFields()
	if !service.HasSecretRefs(fields) {
		return cfg, nil
	}
	resolver, err := service.NewSecretManagerResolver(ctx, cfg.GCPProjectID)
	if err != nil {
		return nil, err
	}
	if err := service.ResolveSecrets(ctx, resolver, fields); err != nil {
		return nil, err
	}
	logger.Info().Msg("Secrets resolved from Secret Manager")
	return cfg, nil
}
