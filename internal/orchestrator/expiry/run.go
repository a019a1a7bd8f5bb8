package expiry

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper expires subscriptions whose paid period has ended.
type Sweeper interface {
	SweepExpired(ctx context.Context) ([]string, error)
}

// Run sweeps once immediately and then every interval until ctx is done.
// With once set it returns after the first sweep.
func Run(ctx context.Context, logger zerolog.Logger, sweeper Sweeper, interval time.Duration, once bool) error {
	logger.Info().Dur("interval", interval).Bool("once", once).Msg("Starting expiry orchestrator")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		users, err := sweeper.SweepExpired(ctx)
		switch {
		case err != nil && once:
			return err
		case err != nil:
			logger.Error().Err(err).Msg("Error sweeping expired subscriptions")
		case len(users) > 0:
			logger.Info().Int("count", len(users)).Strs("user_ids", users).Msg("Expired subscriptions")
		default:
			logger.Debug().Msg("No subscriptions to expire")
		}
		if once {
			return nil
		}

		select {
		case <-ctx.Done():
			logger.Info().Msg("Shutting down expiry orchestrator")
			return nil
		case <-ticker.C:
		}
	}
}
