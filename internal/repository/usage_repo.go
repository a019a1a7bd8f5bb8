package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UsageRepository tracks per-user daily conversion counters keyed by UTC day.
type UsageRepository interface {
	// CheckAndMaybeReset returns the user's count for today. A missing record is created
	// and a record from an earlier day is reset, both with a count of zero.
	CheckAndMaybeReset(ctx context.Context, userID string, today time.Time) (int, error)
	// RecordConversion atomically resets a stale record and increments the count, returning the new value.
	RecordConversion(ctx context.Context, userID string, today time.Time) (int, error)
}

type usageRepo struct {
	pool *pgxpool.Pool
}

// NewUsageRepo creates a Postgres backed UsageRepository.
func NewUsageRepo(pool *pgxpool.Pool) UsageRepository {
	return &usageRepo{pool: pool}
}

// CheckAndMaybeReset creates or resets the row in one upsert. The conditional
// DO UPDATE only fires for stale rows, so a fresh row returns nothing and is read back.
func (r *usageRepo) CheckAndMaybeReset(ctx context.Context, userID string, today time.Time) (int, error) {
	const upsertQ = `
		INSERT INTO user_conversion_usage (user_id, daily_count, last_counted_date, updated_at)
		VALUES ($1, 0, $2::date, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET daily_count = 0,
			last_counted_date = EXCLUDED.last_counted_date,
			updated_at = NOW()
		WHERE user_conversion_usage.last_counted_date < EXCLUDED.last_counted_date
		RETURNING daily_count
	`
	var count int
	err := r.pool.QueryRow(ctx, upsertQ, userID, today).Scan(&count)
	if err == nil {
		return count, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("resetting usage for user %s: %w", userID, err)
	}

	const selectQ = `SELECT daily_count FROM user_conversion_usage WHERE user_id = $1`
	if err := r.pool.QueryRow(ctx, selectQ, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("reading usage for user %s: %w", userID, err)
	}
	return count, nil
}

// RecordConversion increments today's counter in a single statement so concurrent
// requests for the same user never lose an increment.
func (r *usageRepo) RecordConversion(ctx context.Context, userID string, today time.Time) (int, error) {
	const q = `
		INSERT INTO user_conversion_usage (user_id, daily_count, last_counted_date, updated_at)
		VALUES ($1, 1, $2::date, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET daily_count = CASE
				WHEN user_conversion_usage.last_counted_date < EXCLUDED.last_counted_date THEN 1
				ELSE user_conversion_usage.daily_count + 1
			END,
			last_counted_date = GREATEST(user_conversion_usage.last_counted_date, EXCLUDED.last_counted_date),
			updated_at = NOW()
		RETURNING daily_count
	`
	var count int
	if err := r.pool.QueryRow(ctx, q, userID, today).Scan(&count); err != nil {
		return 0, fmt.Errorf("recording conversion for user %s: %w", userID, err)
	}
	return count, nil
}
